package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/shrimpsizemoose/klassbok/internal/models"
)

// JournalStore is everything the attendance workflow and the read views need
// from persistence: the roster, the class settings and the journal.
type JournalStore interface {
	Close() error

	CreateStudent(ctx context.Context, student *models.Student) error
	ListStudents(ctx context.Context, classID string) ([]models.Student, error)
	SetLegacyPresence(ctx context.Context, studentID, date string, present bool) error

	GetClassConfig(ctx context.Context, classID string) (*models.ClassConfig, error)
	SetClassConfig(ctx context.Context, cfg models.ClassConfig) error

	CreateEntry(ctx context.Context, entry *models.JournalEntry) error
	FindEntry(ctx context.Context, classID, date string) (*models.JournalEntry, error)
	ListEntries(ctx context.Context, classID string) ([]models.JournalEntry, error)
	SaveAttendance(ctx context.Context, classID, date string, record *models.AttendanceRecord) error
}

// BaseStore provides common functionality for different DB implementations
type BaseStore struct {
	DB        *sqlx.DB
	Converter func(string) string
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// ApplyMigrations applies SQL migrations from a directory, translating dialect if needed
func (s *BaseStore) ApplyMigrations(dir string, translateSQL func(string) string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	names := make([]string, 0, len(files))
	for _, file := range files {
		if strings.HasSuffix(file.Name(), ".sql") {
			names = append(names, file.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}

		sql := string(content)
		if translateSQL != nil {
			sql = translateSQL(sql)
		}

		if _, err := s.DB.Exec(sql); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *BaseStore) CreateStudent(ctx context.Context, student *models.Student) error {
	if err := student.Validate(); err != nil {
		return fmt.Errorf("invalid student: %w", err)
	}
	_, err := s.DB.NamedExecContext(ctx, `
		INSERT INTO students (id, class_id, position, first_name, last_name, grp)
		VALUES (
			:id,
			:class_id,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM students WHERE class_id = :class_id),
			:first_name,
			:last_name,
			:grp
		)
	`, student)
	if err != nil {
		return fmt.Errorf("failed to create student: %w", err)
	}

	for date, present := range student.Presence {
		if err := s.SetLegacyPresence(ctx, student.ID, date, present); err != nil {
			return err
		}
	}
	return nil
}

func (s *BaseStore) ListStudents(ctx context.Context, classID string) ([]models.Student, error) {
	students := []models.Student{}
	query := s.Converter(`
		SELECT id, class_id, first_name, last_name, grp
		FROM students
		WHERE class_id = ?
		ORDER BY position, id
	`)
	if err := s.DB.SelectContext(ctx, &students, query, classID); err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	var flags []presenceRow
	query = s.Converter(`
		SELECT p.student_id, p.date, p.present
		FROM student_presence p
		JOIN students s ON s.id = p.student_id
		WHERE s.class_id = ?
	`)
	if err := s.DB.SelectContext(ctx, &flags, query, classID); err != nil {
		return nil, fmt.Errorf("failed to list legacy presence: %w", err)
	}

	byID := make(map[string]int, len(students))
	for i := range students {
		byID[students[i].ID] = i
	}
	for _, f := range flags {
		i, ok := byID[f.StudentID]
		if !ok {
			continue
		}
		if students[i].Presence == nil {
			students[i].Presence = make(map[string]bool)
		}
		students[i].Presence[f.Date] = f.Present
	}

	return students, nil
}

func (s *BaseStore) SetLegacyPresence(ctx context.Context, studentID, date string, present bool) error {
	_, err := s.DB.NamedExecContext(ctx, `
		INSERT INTO student_presence (student_id, date, present)
		VALUES (:student_id, :date, :present)
		ON CONFLICT (student_id, date) DO UPDATE SET
		present = excluded.present
	`, presenceRow{StudentID: studentID, Date: date, Present: present})
	if err != nil {
		return fmt.Errorf("failed to set presence: %w", err)
	}
	return nil
}

func (s *BaseStore) GetClassConfig(ctx context.Context, classID string) (*models.ClassConfig, error) {
	var cfg models.ClassConfig
	query := s.Converter(`
		SELECT class_id, mode
		FROM class_configs
		WHERE class_id = ?
	`)
	err := s.DB.GetContext(ctx, &cfg, query, classID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get class config: %w", err)
	}
	return &cfg, nil
}

func (s *BaseStore) SetClassConfig(ctx context.Context, cfg models.ClassConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid class config: %w", err)
	}
	_, err := s.DB.NamedExecContext(ctx, `
		INSERT INTO class_configs (class_id, mode)
		VALUES (:class_id, :mode)
		ON CONFLICT (class_id) DO UPDATE SET
		mode = excluded.mode
	`, cfg)
	if err != nil {
		return fmt.Errorf("failed to set class config: %w", err)
	}
	return nil
}

// CreateEntry inserts a journal entry; a class holds at most one entry per date.
func (s *BaseStore) CreateEntry(ctx context.Context, entry *models.JournalEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid journal entry: %w", err)
	}

	existing, err := s.FindEntry(ctx, entry.ClassID, entry.Date)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%s/%s: %w", entry.ClassID, entry.Date, ErrDuplicateDay)
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	payload, err := EncodeRecord(entry.Attendance)
	if err != nil {
		return fmt.Errorf("failed to encode attendance: %w", err)
	}
	row := entryRow{
		ID:      entry.ID,
		ClassID: entry.ClassID,
		Date:    entry.Date,
		Topic:   entry.Topic,
		Attendance: sql.NullString{
			String: string(payload),
			Valid:  payload != nil,
		},
	}

	_, err = s.DB.NamedExecContext(ctx, `
		INSERT INTO journal_entries (id, class_id, date, topic, attendance)
		VALUES (:id, :class_id, :date, :topic, :attendance)
	`, row)
	if err != nil {
		return fmt.Errorf("failed to create journal entry: %w", err)
	}
	return nil
}

func (s *BaseStore) FindEntry(ctx context.Context, classID, date string) (*models.JournalEntry, error) {
	var row entryRow
	query := s.Converter(`
		SELECT id, class_id, date, topic, attendance
		FROM journal_entries
		WHERE class_id = ?
		AND date = ?
	`)
	err := s.DB.GetContext(ctx, &row, query, classID, date)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}

	entry, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *BaseStore) ListEntries(ctx context.Context, classID string) ([]models.JournalEntry, error) {
	var rows []entryRow
	query := s.Converter(`
		SELECT id, class_id, date, topic, attendance
		FROM journal_entries
		WHERE class_id = ?
		ORDER BY date ASC
	`)
	if err := s.DB.SelectContext(ctx, &rows, query, classID); err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}

	entries := make([]models.JournalEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := row.toModel()
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// SaveAttendance replaces the whole record of the entry dated date.
func (s *BaseStore) SaveAttendance(ctx context.Context, classID, date string, record *models.AttendanceRecord) error {
	payload, err := EncodeRecord(record)
	if err != nil {
		return fmt.Errorf("failed to encode attendance: %w", err)
	}

	query := s.Converter(`
		UPDATE journal_entries
		SET attendance = ?
		WHERE class_id = ?
		AND date = ?
	`)
	res, err := s.DB.ExecContext(ctx, query, string(payload), classID, date)
	if err != nil {
		return fmt.Errorf("failed to save attendance: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save attendance: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("journal entry %s/%s: %w", classID, date, ErrNotFound)
	}
	return nil
}

// IsNotFound reports whether err means the looked up row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
