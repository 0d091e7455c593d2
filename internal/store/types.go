package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shrimpsizemoose/klassbok/internal/models"
)

type DatabaseType string

const (
	DBTypePostgres DatabaseType = "postgres"
	DBTypeSQLite   DatabaseType = "sqlite"
	DBTypeJSON     DatabaseType = "json"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrDuplicateDay = errors.New("journal entry for this date already exists")
)

type DBConfig struct {
	DSN           string
	Type          DatabaseType
	MigrationsDir string
}

// entryRow is the SQL shape of a journal entry; the record travels as JSON text.
type entryRow struct {
	ID         string         `db:"id"`
	ClassID    string         `db:"class_id"`
	Date       string         `db:"date"`
	Topic      string         `db:"topic"`
	Attendance sql.NullString `db:"attendance"`
}

func (r entryRow) toModel() (models.JournalEntry, error) {
	entry := models.JournalEntry{
		ID:      r.ID,
		ClassID: r.ClassID,
		Date:    r.Date,
		Topic:   r.Topic,
	}
	if r.Attendance.Valid && r.Attendance.String != "" {
		var record models.AttendanceRecord
		if err := json.Unmarshal([]byte(r.Attendance.String), &record); err != nil {
			return entry, fmt.Errorf("corrupt attendance on entry %s: %w", r.ID, err)
		}
		entry.Attendance = &record
	}
	return entry, nil
}

type presenceRow struct {
	StudentID string `db:"student_id"`
	Date      string `db:"date"`
	Present   bool   `db:"present"`
}

// EncodeRecord is the canonical persisted form of a record. Map keys are
// sorted by encoding/json, so equal records encode to equal bytes.
func EncodeRecord(record *models.AttendanceRecord) ([]byte, error) {
	if record == nil {
		return nil, nil
	}
	// Clone never leaves nil maps behind, so empty maps encode as {}
	return json.Marshal(record.Clone())
}
