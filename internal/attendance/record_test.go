package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/klassbok/internal/models"
)

func entries() []models.JournalEntry {
	return []models.JournalEntry{
		{ID: "e1", ClassID: "7b", Date: "2024-03-01", Topic: "Fractions"},
		{
			ID: "e2", ClassID: "7b", Date: "2024-03-02", Topic: "Decimals",
			Attendance: &models.AttendanceRecord{
				Scope:             ScopeAll,
				Data:              map[string]bool{"s1": true},
				TemporaryStudents: map[string]models.TemporaryStudent{},
			},
		},
	}
}

func TestLoadForDate(t *testing.T) {
	journal := entries()

	assert.Nil(t, LoadForDate(journal, "2024-03-01"), "entry without record")
	assert.Nil(t, LoadForDate(journal, "2024-04-01"), "no entry")

	record := LoadForDate(journal, "2024-03-02")
	require.NotNil(t, record)
	assert.True(t, record.Data["s1"])
}

func TestCommit(t *testing.T) {
	t.Run("stores a copy", func(t *testing.T) {
		journal := entries()
		record := &models.AttendanceRecord{
			Scope:             ScopeAll,
			Data:              map[string]bool{"s1": false, "s2": true},
			TemporaryStudents: map[string]models.TemporaryStudent{},
		}
		require.NoError(t, Commit(journal, "2024-03-01", record))

		record.Data["s2"] = false
		stored := LoadForDate(journal, "2024-03-01")
		require.NotNil(t, stored)
		assert.True(t, stored.Data["s2"])
	})

	t.Run("replaces earlier record", func(t *testing.T) {
		journal := entries()
		record := models.NewAttendanceRecord("Group1")
		record.Data["s1"] = false
		require.NoError(t, Commit(journal, "2024-03-02", record))
		assert.Equal(t, "Group1", LoadForDate(journal, "2024-03-02").Scope)
	})

	t.Run("committing twice is idempotent", func(t *testing.T) {
		journal := entries()
		record := models.NewAttendanceRecord(ScopeAll)
		record.Data["s1"] = true
		require.NoError(t, Commit(journal, "2024-03-01", record))
		first := LoadForDate(journal, "2024-03-01")
		require.NoError(t, Commit(journal, "2024-03-01", record))
		assert.Equal(t, first, LoadForDate(journal, "2024-03-01"))
	})

	t.Run("missing entry", func(t *testing.T) {
		journal := entries()
		err := Commit(journal, "2024-05-05", models.NewAttendanceRecord(ScopeAll))
		assert.ErrorIs(t, err, ErrMissingEntry)
		assert.Nil(t, LoadForDate(journal, "2024-05-05"))
	})
}

func TestCheckRecord(t *testing.T) {
	roster := groupedRoster()

	tests := []struct {
		name    string
		record  *models.AttendanceRecord
		wantErr bool
	}{
		{
			name:   "nil record",
			record: nil,
		},
		{
			name: "valid group record with temporary student",
			record: &models.AttendanceRecord{
				Scope: "Group1",
				Data:  map[string]bool{"s1": true, "s2": false},
				TemporaryStudents: map[string]models.TemporaryStudent{
					"s3": {OriginalGroup: models.GroupPtr("Group2"), Present: true},
				},
			},
		},
		{
			name: "unknown ids are ignored",
			record: &models.AttendanceRecord{
				Scope: "Group1",
				Data:  map[string]bool{"s1": true, "gone": true},
			},
		},
		{
			name: "member outside scope",
			record: &models.AttendanceRecord{
				Scope: "Group1",
				Data:  map[string]bool{"s3": true},
			},
			wantErr: true,
		},
		{
			name: "student in both partitions",
			record: &models.AttendanceRecord{
				Scope: "Group1",
				Data:  map[string]bool{"s3": true},
				TemporaryStudents: map[string]models.TemporaryStudent{
					"s3": {OriginalGroup: models.GroupPtr("Group2")},
				},
			},
			wantErr: true,
		},
		{
			name: "temporary student already a member",
			record: &models.AttendanceRecord{
				Scope: "Group1",
				Data:  map[string]bool{},
				TemporaryStudents: map[string]models.TemporaryStudent{
					"s1": {OriginalGroup: models.GroupPtr("Group1")},
				},
			},
			wantErr: true,
		},
		{
			name: "whole class with temporary students",
			record: &models.AttendanceRecord{
				Scope: ScopeAll,
				Data:  map[string]bool{"s1": true},
				TemporaryStudents: map[string]models.TemporaryStudent{
					"s9": {},
				},
			},
			wantErr: true,
		},
		{
			name:    "missing scope",
			record:  &models.AttendanceRecord{Data: map[string]bool{}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckRecord(tt.record, roster)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScopeMembers(t *testing.T) {
	roster := groupedRoster()
	assert.Len(t, ScopeMembers(roster, ScopeAll), 5)

	members := ScopeMembers(roster, "Group2")
	require.Len(t, members, 2)
	assert.Equal(t, "s3", members[0].ID)
	assert.Equal(t, "s4", members[1].ID)

	assert.Empty(t, ScopeMembers(roster, "Group9"))
}
