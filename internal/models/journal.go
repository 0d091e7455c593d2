package models

import (
	"github.com/go-playground/validator/v10"
)

const DateLayout = "2006-01-02"

type JournalEntry struct {
	ID         string            `db:"id" json:"id"`
	ClassID    string            `db:"class_id" json:"classId" validate:"required"`
	Date       string            `db:"date" json:"date" validate:"required,datetime=2006-01-02"`
	Topic      string            `db:"topic" json:"topic" validate:"max=500"`
	Attendance *AttendanceRecord `db:"-" json:"attendance,omitempty"`
}

func (e *JournalEntry) Validate() error {
	validate := validator.New()
	return validate.Struct(e)
}
