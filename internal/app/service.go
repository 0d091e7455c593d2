package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/shrimpsizemoose/klassbok/internal/attendance"
	"github.com/shrimpsizemoose/klassbok/internal/models"
	"github.com/shrimpsizemoose/klassbok/internal/stats"
	"github.com/shrimpsizemoose/klassbok/internal/store"
)

type Service struct {
	Config     *Config
	Store      store.JournalStore
	Sessions   SessionCache
	Attendance *attendance.Service
}

func NewService(configPath string) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := NewStore(config.Database.DSN, config.Database.MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	sessions, err := NewSessionCache(config)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to init session cache: %w", err)
	}

	return NewServiceWith(config, store, sessions), nil
}

// NewServiceWith wires a service from already built parts.
func NewServiceWith(config *Config, st store.JournalStore, sessions SessionCache) *Service {
	return &Service{
		Config:     config,
		Store:      st,
		Sessions:   sessions,
		Attendance: attendance.NewService(st, st),
	}
}

func (s *Service) ValidateHeaders(headers map[string][]string) bool {
	for _, required := range s.Config.API.RequiredHeaders {
		value := headers[http.CanonicalHeaderKey(required.Name)]
		if len(value) == 0 || !strings.EqualFold(value[0], required.Value) {
			return false
		}
	}
	return true
}

func (s *Service) CreateEntry(ctx context.Context, classID, date, topic string) (*models.JournalEntry, error) {
	entry := &models.JournalEntry{
		ClassID: classID,
		Date:    date,
		Topic:   topic,
	}
	if err := s.Store.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) JournalSummary(ctx context.Context, classID string) ([]stats.EntrySummary, error) {
	entries, roster, err := s.journalAndRoster(ctx, classID)
	if err != nil {
		return nil, err
	}
	return stats.SummarizeJournal(entries, roster), nil
}

func (s *Service) CalendarSummary(ctx context.Context, classID, from, to string) (map[string]stats.EntrySummary, error) {
	entries, roster, err := s.journalAndRoster(ctx, classID)
	if err != nil {
		return nil, err
	}
	return stats.Calendar(entries, roster, from, to), nil
}

// EntryStatistics returns store.ErrNotFound when the class has no entry for date.
func (s *Service) EntryStatistics(ctx context.Context, classID, date string) (*stats.EntrySummary, error) {
	entry, err := s.Store.FindEntry(ctx, classID, date)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, fmt.Errorf("journal entry %s/%s: %w", classID, date, store.ErrNotFound)
	}
	roster, err := s.Store.ListStudents(ctx, classID)
	if err != nil {
		return nil, err
	}

	summary := stats.EntrySummary{
		ID:      entry.ID,
		Date:    entry.Date,
		Topic:   entry.Topic,
		Summary: stats.ForEntry(entry, roster),
	}
	if entry.Attendance != nil {
		summary.Scope = entry.Attendance.Scope
	}
	return &summary, nil
}

func (s *Service) journalAndRoster(ctx context.Context, classID string) ([]models.JournalEntry, []models.Student, error) {
	entries, err := s.Store.ListEntries(ctx, classID)
	if err != nil {
		return nil, nil, err
	}
	roster, err := s.Store.ListStudents(ctx, classID)
	if err != nil {
		return nil, nil, err
	}
	return entries, roster, nil
}

// OpenSession starts a fresh session for date, replacing any open one.
func (s *Service) OpenSession(ctx context.Context, classID, date string) (*attendance.Session, error) {
	sess, err := s.Attendance.InitializeSession(ctx, classID, date)
	if err != nil {
		return nil, err
	}
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// WithSession loads the open session for date, runs fn on it and stores the
// result. The session is not stored when fn fails.
// Concurrent calls for the same date are applied one after another.
func (s *Service) WithSession(ctx context.Context, classID, date string, fn func(*attendance.Session) error) (*attendance.Session, error) {
	return s.Sessions.Update(ctx, classID, date, fn)
}

// CommitSession persists the open session and closes it.
func (s *Service) CommitSession(ctx context.Context, classID, date string) (*models.AttendanceRecord, error) {
	sess, err := s.Sessions.Load(ctx, classID, date)
	if err != nil {
		return nil, err
	}
	record, err := s.Attendance.CommitSession(ctx, sess)
	if err != nil {
		return record, err
	}
	if err := s.Sessions.Delete(ctx, classID, date); err != nil {
		return record, fmt.Errorf("attendance saved but session not closed: %w", err)
	}
	return record, nil
}

func (s *Service) DiscardSession(ctx context.Context, classID, date string) error {
	return s.Sessions.Delete(ctx, classID, date)
}

func (s *Service) Close() error {
	var errs []error

	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := s.Sessions.Close(); err != nil {
		errs = append(errs, fmt.Errorf("sessions: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing: %v", errs)
	}
	return nil
}
