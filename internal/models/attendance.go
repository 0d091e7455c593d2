package models

import (
	"github.com/go-playground/validator/v10"
)

// AttendanceRecord is the persisted presence data of one journal entry.
// Data holds members of Scope only; TemporaryStudents holds students
// admitted from other groups for this session.
type AttendanceRecord struct {
	Scope             string                      `json:"scope" validate:"required"`
	Data              map[string]bool             `json:"data"`
	TemporaryStudents map[string]TemporaryStudent `json:"temporaryStudents"`
}

type TemporaryStudent struct {
	OriginalGroup *string `json:"originalGroup"`
	Present       bool    `json:"present"`
}

func NewAttendanceRecord(scope string) *AttendanceRecord {
	return &AttendanceRecord{
		Scope:             scope,
		Data:              make(map[string]bool),
		TemporaryStudents: make(map[string]TemporaryStudent),
	}
}

// Clone returns a deep copy so that callers never share maps with a stored record.
func (r *AttendanceRecord) Clone() *AttendanceRecord {
	if r == nil {
		return nil
	}
	out := NewAttendanceRecord(r.Scope)
	for id, present := range r.Data {
		out.Data[id] = present
	}
	for id, tmp := range r.TemporaryStudents {
		out.TemporaryStudents[id] = tmp.Clone()
	}
	return out
}

func (t TemporaryStudent) Clone() TemporaryStudent {
	if t.OriginalGroup != nil {
		group := *t.OriginalGroup
		t.OriginalGroup = &group
	}
	return t
}

func (r *AttendanceRecord) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
