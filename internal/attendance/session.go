package attendance

import (
	"fmt"
	"slices"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/klassbok/internal/models"
)

// ScopeState is the working data of one scope, kept while another scope is active.
type ScopeState struct {
	Presence  map[string]bool                    `json:"presence"`
	Temporary map[string]models.TemporaryStudent `json:"temporary"`
}

// Session is the working state of one open attendance form. Nothing here is
// persisted until Flatten is committed, so discarding a session is always safe.
type Session struct {
	ClassID     string                             `json:"classId"`
	Date        string                             `json:"date"`
	ActiveScope string                             `json:"activeScope"`
	Visited     map[string]bool                    `json:"visited"`
	Presence    map[string]bool                    `json:"presence"`
	Temporary   map[string]models.TemporaryStudent `json:"temporary"`
	Stash       map[string]ScopeState              `json:"stash"`
	Persisted   *models.AttendanceRecord           `json:"persisted,omitempty"`
}

// Outcome reports what a scope change did. Applied is false when nothing
// changed, either because the scope was already active or the user declined.
type Outcome struct {
	Action  Action `json:"action"`
	Applied bool   `json:"applied"`
	Prompt  string `json:"prompt,omitempty"`
	Scope   string `json:"scope"`
}

// NewSession opens a session for date. With a saved record the session starts
// from it, otherwise from the default scope with everyone absent.
func NewSession(classID, date string, roster []models.Student, cfg *models.ClassConfig, persisted *models.AttendanceRecord) *Session {
	s := &Session{
		ClassID:   classID,
		Date:      date,
		Visited:   make(map[string]bool),
		Presence:  make(map[string]bool),
		Temporary: make(map[string]models.TemporaryStudent),
		Stash:     make(map[string]ScopeState),
		Persisted: persisted.Clone(),
	}

	if persisted != nil {
		s.ActiveScope = persisted.Scope
		s.loadPersisted(roster)
	} else {
		s.ActiveScope = DefaultScope(roster, cfg)
		s.fillAbsent(roster)
	}
	s.Visited[s.ActiveScope] = true

	return s
}

// Key identifies the session within a class.
func (s *Session) Key() string {
	return s.ClassID + "/" + s.Date
}

func (s *Session) fillAbsent(roster []models.Student) {
	for _, student := range ScopeMembers(roster, s.ActiveScope) {
		if _, ok := s.Presence[student.ID]; !ok {
			s.Presence[student.ID] = false
		}
	}
}

func (s *Session) loadPersisted(roster []models.Student) {
	s.Presence = make(map[string]bool, len(s.Persisted.Data))
	for id, present := range s.Persisted.Data {
		s.Presence[id] = present
	}
	s.Temporary = make(map[string]models.TemporaryStudent, len(s.Persisted.TemporaryStudents))
	for id, tmp := range s.Persisted.TemporaryStudents {
		s.Temporary[id] = tmp.Clone()
	}
	s.fillAbsent(roster)
}

func (s *Session) stashActive() {
	state := ScopeState{
		Presence:  make(map[string]bool, len(s.Presence)),
		Temporary: make(map[string]models.TemporaryStudent, len(s.Temporary)),
	}
	for id, present := range s.Presence {
		state.Presence[id] = present
	}
	for id, tmp := range s.Temporary {
		state.Temporary[id] = tmp.Clone()
	}
	s.Stash[s.ActiveScope] = state
}

func (s *Session) restoreStash(roster []models.Student) {
	state, ok := s.Stash[s.ActiveScope]
	s.Presence = make(map[string]bool)
	s.Temporary = make(map[string]models.TemporaryStudent)
	if ok {
		for id, present := range state.Presence {
			s.Presence[id] = present
		}
		for id, tmp := range state.Temporary {
			s.Temporary[id] = tmp.Clone()
		}
	}
	s.fillAbsent(roster)
}

// SwitchScope applies the scope-change policy. A reset asks confirm first;
// when declined the session keeps its previous scope and data. Scopes other
// than ScopeAll must name a group of roster.
func (s *Session) SwitchScope(roster []models.Student, newScope string, confirm Confirmer) (Outcome, error) {
	oldScope := s.ActiveScope
	if newScope != oldScope && newScope != ScopeAll && !slices.Contains(Groups(roster), newScope) {
		return Outcome{Action: ActionNone, Scope: oldScope}, fmt.Errorf("switch to %q: %w", newScope, ErrUnknownScope)
	}
	hasPersisted := s.Persisted != nil && s.Persisted.Scope == newScope
	action := Decide(oldScope, newScope, hasPersisted, s.Visited[newScope])
	out := Outcome{Action: action, Scope: oldScope}

	if action == ActionNone {
		return out, nil
	}

	if action == ActionConfirmReset {
		out.Prompt = resetPrompt(oldScope)
		if confirm == nil || !confirm.Confirm(out.Prompt) {
			logger.Debug.Printf("Scope switch %s -> %s declined for %s", oldScope, newScope, s.Key())
			return out, nil
		}
	}

	s.stashActive()
	s.ActiveScope = newScope

	switch action {
	case ActionReloadVisited:
		s.restoreStash(roster)
	case ActionReloadPersisted:
		s.loadPersisted(roster)
	case ActionConfirmReset:
		s.Presence = make(map[string]bool)
		s.Temporary = make(map[string]models.TemporaryStudent)
		s.fillAbsent(roster)
	}

	s.Visited[newScope] = true
	logger.Debug.Printf("Scope switch %s -> %s (%s) for %s", oldScope, newScope, action, s.Key())

	out.Applied = true
	out.Scope = newScope
	return out, nil
}

// TogglePresence flips the flag of a member of the active scope.
func (s *Session) TogglePresence(roster []models.Student, studentID string) error {
	student, ok := findStudent(roster, studentID)
	if !ok {
		return fmt.Errorf("toggle %s: %w", studentID, ErrUnknownStudent)
	}
	if !InScope(student, s.ActiveScope) {
		return fmt.Errorf("toggle %s in %s: %w", studentID, s.ActiveScope, ErrNotInScope)
	}
	s.Presence[studentID] = !s.Presence[studentID]
	return nil
}

// Members returns the active scope members with their working flags, in roster order.
func (s *Session) Members(roster []models.Student) []MemberState {
	members := ScopeMembers(roster, s.ActiveScope)
	out := make([]MemberState, 0, len(members))
	for _, student := range members {
		out = append(out, MemberState{Student: student, Present: s.Presence[student.ID]})
	}
	return out
}

type MemberState struct {
	models.Student
	Present bool `json:"present"`
}

// Flatten builds the record to commit: one flag per current scope member and
// every temporary student that is not also a member.
func (s *Session) Flatten(roster []models.Student) *models.AttendanceRecord {
	record := models.NewAttendanceRecord(s.ActiveScope)
	for _, student := range ScopeMembers(roster, s.ActiveScope) {
		record.Data[student.ID] = s.Presence[student.ID]
	}
	if s.ActiveScope == ScopeAll {
		return record
	}
	for id, tmp := range s.Temporary {
		if _, member := record.Data[id]; member {
			continue
		}
		record.TemporaryStudents[id] = tmp.Clone()
	}
	return record
}
