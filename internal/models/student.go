package models

import (
	"github.com/go-playground/validator/v10"
)

const (
	ModeComplete = "complete"
	ModeGroups   = "groups"
)

type Student struct {
	ID        string  `db:"id" json:"id" validate:"required"`
	ClassID   string  `db:"class_id" json:"classId" validate:"required"`
	FirstName string  `db:"first_name" json:"firstName" validate:"required"`
	LastName  string  `db:"last_name" json:"lastName"`
	Group     *string `db:"grp" json:"group"`

	// Presence is the per-date presence map kept on journals created before
	// attendance records existed. Only the legacy statistics path reads it.
	Presence map[string]bool `db:"-" json:"presence,omitempty"`
}

// ClassConfig carries the class-level settings the attendance workflow consults.
// Mode is "complete", "groups" or empty.
type ClassConfig struct {
	ClassID string `db:"class_id" json:"classId" validate:"required"`
	Mode    string `db:"mode" json:"mode" validate:"omitempty,oneof=complete groups"`
}

func (s *Student) HasGroup() bool {
	return s.Group != nil && *s.Group != ""
}

// GroupLabel returns the home group or an empty string for ungrouped students.
func (s *Student) GroupLabel() string {
	if !s.HasGroup() {
		return ""
	}
	return *s.Group
}

func (s *Student) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

func (s *Student) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}

func (c *ClassConfig) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GroupPtr is a helper for building students with a home group.
func GroupPtr(label string) *string {
	return &label
}
