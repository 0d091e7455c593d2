package attendance

import (
	"errors"
	"fmt"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/klassbok/internal/models"
)

// ScopeAll selects the whole class.
const ScopeAll = "ALL"

var (
	ErrMissingEntry   = errors.New("no journal entry for date")
	ErrUnknownStudent = errors.New("student not in roster")
	ErrNotInScope     = errors.New("student not in active scope")
	ErrUnknownScope   = errors.New("no such group in class")
	ErrNotEligible    = errors.New("student cannot be admitted to active scope")
	ErrNotAdmitted    = errors.New("student not admitted to session")
	ErrNoSession      = errors.New("no open attendance session")
)

// LoadForDate returns the record of the first entry dated date, or nil when
// there is no such entry or it predates attendance records.
func LoadForDate(entries []models.JournalEntry, date string) *models.AttendanceRecord {
	for i := range entries {
		if entries[i].Date == date {
			return entries[i].Attendance
		}
	}
	return nil
}

// Commit replaces the attendance of the first entry dated date with a copy of record.
// The entry itself has to exist beforehand.
func Commit(entries []models.JournalEntry, date string, record *models.AttendanceRecord) error {
	for i := range entries {
		if entries[i].Date == date {
			entries[i].Attendance = record.Clone()
			return nil
		}
	}
	logger.Info.Printf("warning: attendance for %s not saved, journal entry does not exist yet", date)
	return fmt.Errorf("commit %s: %w", date, ErrMissingEntry)
}

// InScope reports whether student belongs to scope.
func InScope(student *models.Student, scope string) bool {
	if scope == ScopeAll {
		return true
	}
	return student.HasGroup() && *student.Group == scope
}

// ScopeMembers returns the students of roster belonging to scope, in roster order.
func ScopeMembers(roster []models.Student, scope string) []models.Student {
	members := make([]models.Student, 0, len(roster))
	for i := range roster {
		if InScope(&roster[i], scope) {
			members = append(members, roster[i])
		}
	}
	return members
}

func findStudent(roster []models.Student, id string) (*models.Student, bool) {
	for i := range roster {
		if roster[i].ID == id {
			return &roster[i], true
		}
	}
	return nil, false
}

// CheckRecord verifies the partition invariants of record against roster.
// Ids no longer in the roster are ignored.
func CheckRecord(record *models.AttendanceRecord, roster []models.Student) error {
	if record == nil {
		return nil
	}
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid record: %w", err)
	}

	for id := range record.Data {
		if _, dup := record.TemporaryStudents[id]; dup {
			return fmt.Errorf("student %s is both a member and a temporary student", id)
		}
		student, ok := findStudent(roster, id)
		if !ok {
			continue
		}
		if !InScope(student, record.Scope) {
			return fmt.Errorf("student %s of group %q recorded under scope %q", id, student.GroupLabel(), record.Scope)
		}
	}

	if record.Scope == ScopeAll && len(record.TemporaryStudents) > 0 {
		return fmt.Errorf("scope %q cannot carry temporary students", ScopeAll)
	}
	for id := range record.TemporaryStudents {
		student, ok := findStudent(roster, id)
		if !ok {
			continue
		}
		if InScope(student, record.Scope) {
			return fmt.Errorf("temporary student %s already belongs to scope %q", id, record.Scope)
		}
	}

	return nil
}
