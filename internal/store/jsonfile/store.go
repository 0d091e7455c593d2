// Package jsonfile keeps the whole journal in one JSON document on disk.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/klassbok/internal/attendance"
	"github.com/shrimpsizemoose/klassbok/internal/models"
	"github.com/shrimpsizemoose/klassbok/internal/store"
)

// Document is the persisted shape. Students and journal entries are keyed by class.
type Document struct {
	Classes  map[string]models.ClassConfig    `json:"classes"`
	Students map[string][]models.Student      `json:"students"`
	Journal  map[string][]models.JournalEntry `json:"journal"`
}

func newDocument() *Document {
	return &Document{
		Classes:  make(map[string]models.ClassConfig),
		Students: make(map[string][]models.Student),
		Journal:  make(map[string][]models.JournalEntry),
	}
}

type Store struct {
	path  string
	mutex sync.RWMutex
	doc   *Document
}

var _ store.JournalStore = (*Store)(nil)

// Open loads path, starting from an empty document when the file does not exist.
func Open(path string) (*Store, error) {
	s := &Store{path: path, doc: newDocument()}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Info.Printf("Journal file %s does not exist yet, starting empty", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read journal file: %w", err)
	}

	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, s.doc); err != nil {
			return nil, fmt.Errorf("failed to parse journal file %s: %w", path, err)
		}
	}
	if s.doc.Classes == nil {
		s.doc.Classes = make(map[string]models.ClassConfig)
	}
	if s.doc.Students == nil {
		s.doc.Students = make(map[string][]models.Student)
	}
	if s.doc.Journal == nil {
		s.doc.Journal = make(map[string][]models.JournalEntry)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.Flush(context.Background())
}

// Flush writes the document through a temporary file so a crash never leaves
// a truncated journal behind.
func (s *Store) Flush(ctx context.Context) error {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode journal: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".journal-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp journal file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write journal: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace journal file: %w", err)
	}
	return nil
}

func (s *Store) CreateStudent(ctx context.Context, student *models.Student) error {
	if err := student.Validate(); err != nil {
		return fmt.Errorf("invalid student: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, classStudents := range s.doc.Students {
		for _, existing := range classStudents {
			if existing.ID == student.ID {
				return fmt.Errorf("student %s already exists", student.ID)
			}
		}
	}
	s.doc.Students[student.ClassID] = append(s.doc.Students[student.ClassID], *student)
	return s.flushLocked()
}

func (s *Store) ListStudents(ctx context.Context, classID string) ([]models.Student, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	src := s.doc.Students[classID]
	out := make([]models.Student, 0, len(src))
	for _, student := range src {
		if student.Presence != nil {
			presence := make(map[string]bool, len(student.Presence))
			for date, flag := range student.Presence {
				presence[date] = flag
			}
			student.Presence = presence
		}
		out = append(out, student)
	}
	return out, nil
}

func (s *Store) SetLegacyPresence(ctx context.Context, studentID, date string, present bool) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for classID, classStudents := range s.doc.Students {
		for i := range classStudents {
			if classStudents[i].ID != studentID {
				continue
			}
			if classStudents[i].Presence == nil {
				classStudents[i].Presence = make(map[string]bool)
			}
			classStudents[i].Presence[date] = present
			s.doc.Students[classID] = classStudents
			return s.flushLocked()
		}
	}
	return fmt.Errorf("student %s: %w", studentID, store.ErrNotFound)
}

func (s *Store) GetClassConfig(ctx context.Context, classID string) (*models.ClassConfig, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	cfg, ok := s.doc.Classes[classID]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

func (s *Store) SetClassConfig(ctx context.Context, cfg models.ClassConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid class config: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.doc.Classes[cfg.ClassID] = cfg
	return s.flushLocked()
}

func (s *Store) CreateEntry(ctx context.Context, entry *models.JournalEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid journal entry: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, existing := range s.doc.Journal[entry.ClassID] {
		if existing.Date == entry.Date {
			return fmt.Errorf("%s/%s: %w", entry.ClassID, entry.Date, store.ErrDuplicateDay)
		}
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	stored := *entry
	stored.Attendance = entry.Attendance.Clone()
	s.doc.Journal[entry.ClassID] = append(s.doc.Journal[entry.ClassID], stored)
	return s.flushLocked()
}

func (s *Store) FindEntry(ctx context.Context, classID, date string) (*models.JournalEntry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, entry := range s.doc.Journal[classID] {
		if entry.Date == date {
			entry.Attendance = entry.Attendance.Clone()
			return &entry, nil
		}
	}
	return nil, nil
}

func (s *Store) ListEntries(ctx context.Context, classID string) ([]models.JournalEntry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	src := s.doc.Journal[classID]
	out := make([]models.JournalEntry, 0, len(src))
	for _, entry := range src {
		entry.Attendance = entry.Attendance.Clone()
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date < out[j].Date
	})
	return out, nil
}

// SaveAttendance replaces the record in memory; Flush makes it durable.
func (s *Store) SaveAttendance(ctx context.Context, classID, date string, record *models.AttendanceRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := attendance.Commit(s.doc.Journal[classID], date, record); err != nil {
		return fmt.Errorf("journal entry %s/%s: %w", classID, date, store.ErrNotFound)
	}
	return nil
}
