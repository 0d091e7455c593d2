package attendance

import (
	"fmt"

	"github.com/shrimpsizemoose/klassbok/internal/models"
)

// EligibleCandidates lists students that may be borrowed into scope: grouped
// students from any other group. The whole class has no other group.
func EligibleCandidates(roster []models.Student, scope string) []models.Student {
	if scope == ScopeAll {
		return []models.Student{}
	}
	candidates := make([]models.Student, 0)
	for i := range roster {
		if roster[i].HasGroup() && *roster[i].Group != scope {
			candidates = append(candidates, roster[i])
		}
	}
	return candidates
}

// Admit adds studentID as an absent temporary student. Admitting twice keeps
// the first admission, including the group captured then.
func (s *Session) Admit(roster []models.Student, studentID string) error {
	if _, ok := s.Temporary[studentID]; ok {
		return nil
	}
	student, ok := findStudent(roster, studentID)
	if !ok {
		return fmt.Errorf("admit %s: %w", studentID, ErrUnknownStudent)
	}
	if s.ActiveScope == ScopeAll || !student.HasGroup() || *student.Group == s.ActiveScope {
		return fmt.Errorf("admit %s to %s: %w", studentID, s.ActiveScope, ErrNotEligible)
	}

	s.Temporary[studentID] = models.TemporaryStudent{
		OriginalGroup: models.GroupPtr(*student.Group),
		Present:       false,
	}
	return nil
}

func (s *Session) ToggleTemporary(studentID string) error {
	tmp, ok := s.Temporary[studentID]
	if !ok {
		return fmt.Errorf("toggle %s: %w", studentID, ErrNotAdmitted)
	}
	tmp.Present = !tmp.Present
	s.Temporary[studentID] = tmp
	return nil
}

func (s *Session) RemoveTemporary(studentID string) {
	delete(s.Temporary, studentID)
}
