package attendance

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/klassbok/internal/metrics"
	"github.com/shrimpsizemoose/klassbok/internal/models"
)

type Roster interface {
	ListStudents(ctx context.Context, classID string) ([]models.Student, error)
	// GetClassConfig returns nil, nil when the class has no configuration.
	GetClassConfig(ctx context.Context, classID string) (*models.ClassConfig, error)
}

type Journal interface {
	// FindEntry returns nil, nil when no entry exists for date.
	FindEntry(ctx context.Context, classID, date string) (*models.JournalEntry, error)
	SaveAttendance(ctx context.Context, classID, date string, record *models.AttendanceRecord) error
}

// Flusher is implemented by journals that buffer writes until flushed.
type Flusher interface {
	Flush(ctx context.Context) error
}

type Service struct {
	roster  Roster
	journal Journal
}

func NewService(roster Roster, journal Journal) *Service {
	return &Service{roster: roster, journal: journal}
}

func (s *Service) students(ctx context.Context, classID string) ([]models.Student, error) {
	roster, err := s.roster.ListStudents(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster of %s: %w", classID, err)
	}
	return roster, nil
}

func (s *Service) InitializeSession(ctx context.Context, classID, date string) (*Session, error) {
	roster, err := s.students(ctx, classID)
	if err != nil {
		return nil, err
	}

	cfg, err := s.roster.GetClassConfig(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to load config of %s: %w", classID, err)
	}

	entry, err := s.journal.FindEntry(ctx, classID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to find journal entry %s/%s: %w", classID, date, err)
	}

	var persisted *models.AttendanceRecord
	if entry != nil {
		persisted = entry.Attendance
	}

	return NewSession(classID, date, roster, cfg, persisted), nil
}

func (s *Service) SwitchScope(ctx context.Context, sess *Session, newScope string, confirm Confirmer) (Outcome, error) {
	if sess == nil {
		return Outcome{}, ErrNoSession
	}
	roster, err := s.students(ctx, sess.ClassID)
	if err != nil {
		return Outcome{}, err
	}

	out, err := sess.SwitchScope(roster, newScope, confirm)
	if err != nil {
		return out, err
	}
	if out.Action != ActionNone {
		metrics.ScopeSwitchesTotal.WithLabelValues(
			sess.ClassID,
			out.Action.String(),
			strconv.FormatBool(out.Applied),
		).Inc()
	}
	return out, nil
}

func (s *Service) TogglePresence(ctx context.Context, sess *Session, studentID string) error {
	if sess == nil {
		return ErrNoSession
	}
	roster, err := s.students(ctx, sess.ClassID)
	if err != nil {
		return err
	}
	return sess.TogglePresence(roster, studentID)
}

func (s *Service) ToggleTemporaryPresence(sess *Session, studentID string) error {
	if sess == nil {
		return ErrNoSession
	}
	return sess.ToggleTemporary(studentID)
}

func (s *Service) AdmitTemporaryStudent(ctx context.Context, sess *Session, studentID string) error {
	if sess == nil {
		return ErrNoSession
	}
	roster, err := s.students(ctx, sess.ClassID)
	if err != nil {
		return err
	}
	return sess.Admit(roster, studentID)
}

func (s *Service) RemoveTemporaryStudent(sess *Session, studentID string) error {
	if sess == nil {
		return ErrNoSession
	}
	sess.RemoveTemporary(studentID)
	return nil
}

func (s *Service) Candidates(ctx context.Context, sess *Session) ([]models.Student, error) {
	if sess == nil {
		return nil, ErrNoSession
	}
	roster, err := s.students(ctx, sess.ClassID)
	if err != nil {
		return nil, err
	}
	return EligibleCandidates(roster, sess.ActiveScope), nil
}

// CommitSession flattens sess and stores it on the journal entry of its date,
// replacing any earlier record. The record is returned even when the entry is
// missing, together with ErrMissingEntry.
func (s *Service) CommitSession(ctx context.Context, sess *Session) (*models.AttendanceRecord, error) {
	if sess == nil {
		return nil, ErrNoSession
	}
	roster, err := s.students(ctx, sess.ClassID)
	if err != nil {
		return nil, err
	}

	record := sess.Flatten(roster)
	if err := CheckRecord(record, roster); err != nil {
		return nil, fmt.Errorf("refusing to commit %s: %w", sess.Key(), err)
	}

	entry, err := s.journal.FindEntry(ctx, sess.ClassID, sess.Date)
	if err != nil {
		return nil, fmt.Errorf("failed to find journal entry %s: %w", sess.Key(), err)
	}
	if entry == nil {
		metrics.AttendanceCommitsTotal.WithLabelValues(sess.ClassID, record.Scope, "missing_entry").Inc()
		logger.Info.Printf("warning: attendance for %s not saved, journal entry does not exist yet", sess.Key())
		return record, fmt.Errorf("commit %s: %w", sess.Key(), ErrMissingEntry)
	}

	if err := s.journal.SaveAttendance(ctx, sess.ClassID, sess.Date, record); err != nil {
		metrics.AttendanceCommitsTotal.WithLabelValues(sess.ClassID, record.Scope, "error").Inc()
		return nil, fmt.Errorf("failed to save attendance %s: %w", sess.Key(), err)
	}

	if flusher, ok := s.journal.(Flusher); ok {
		if err := flusher.Flush(ctx); err != nil {
			metrics.AttendanceCommitsTotal.WithLabelValues(sess.ClassID, record.Scope, "error").Inc()
			return nil, fmt.Errorf("failed to flush journal: %w", err)
		}
	}

	sess.Persisted = record.Clone()
	metrics.AttendanceCommitsTotal.WithLabelValues(sess.ClassID, record.Scope, "ok").Inc()
	metrics.SessionHeadcount.WithLabelValues(sess.ClassID).Observe(
		float64(len(record.Data) + len(record.TemporaryStudents)),
	)
	return record, nil
}
