package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/klassbok/internal/models"
)

func roster() []models.Student {
	return []models.Student{
		{ID: "s1", ClassID: "7b", FirstName: "Anna", Group: models.GroupPtr("Group1")},
		{ID: "s2", ClassID: "7b", FirstName: "Bo", Group: models.GroupPtr("Group1")},
		{ID: "s3", ClassID: "7b", FirstName: "Cid", Group: models.GroupPtr("Group2"),
			Presence: map[string]bool{"2023-09-01": true}},
		{ID: "s4", ClassID: "7b", FirstName: "Dag", Group: models.GroupPtr("Group2"),
			Presence: map[string]bool{"2023-09-01": false, "2023-09-02": true}},
	}
}

func TestCountsFor(t *testing.T) {
	tests := []struct {
		name   string
		record *models.AttendanceRecord
		want   Counts
	}{
		{
			name: "nil record",
			want: Counts{},
		},
		{
			name:   "empty record",
			record: models.NewAttendanceRecord("ALL"),
			want:   Counts{},
		},
		{
			name: "whole class",
			record: &models.AttendanceRecord{
				Scope: "ALL",
				Data:  map[string]bool{"s1": false, "s2": true, "s3": false},
			},
			want: Counts{Present: 1, Absent: 2, Total: 3},
		},
		{
			name: "temporary students count",
			record: &models.AttendanceRecord{
				Scope: "Group1",
				Data:  map[string]bool{"s1": false},
				TemporaryStudents: map[string]models.TemporaryStudent{
					"s4": {OriginalGroup: models.GroupPtr("Group2"), Present: true},
				},
			},
			want: Counts{Present: 1, Absent: 1, Total: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountsFor(tt.record)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.Total, got.Present+got.Absent)
		})
	}
}

func TestPresentRoster(t *testing.T) {
	record := &models.AttendanceRecord{
		Scope: "Group1",
		Data:  map[string]bool{"s1": true, "s2": false, "gone": true},
		TemporaryStudents: map[string]models.TemporaryStudent{
			"s3": {OriginalGroup: models.GroupPtr("Group2"), Present: false},
			"s4": {OriginalGroup: models.GroupPtr("Group2"), Present: true},
		},
	}

	present, absent := PresentRoster(record, roster())

	require.Len(t, present, 2)
	assert.Equal(t, "s1", present[0].ID)
	assert.False(t, present[0].IsTemporary)
	assert.Equal(t, "s4", present[1].ID)
	assert.True(t, present[1].IsTemporary)
	assert.Equal(t, "Group2", *present[1].OriginalGroup)

	require.Len(t, absent, 2)
	assert.Equal(t, "s2", absent[0].ID)
	assert.Equal(t, "s3", absent[1].ID)
	assert.True(t, absent[1].IsTemporary)

	t.Run("nil record", func(t *testing.T) {
		present, absent := PresentRoster(nil, roster())
		assert.NotNil(t, present)
		assert.Empty(t, present)
		assert.NotNil(t, absent)
		assert.Empty(t, absent)
	})
}

func TestLegacy(t *testing.T) {
	counts, present, absent := Legacy(roster(), "2023-09-01")
	assert.Equal(t, Counts{Present: 1, Absent: 1, Total: 2}, counts)
	require.Len(t, present, 1)
	assert.Equal(t, "s3", present[0].ID)
	require.Len(t, absent, 1)
	assert.Equal(t, "s4", absent[0].ID)

	counts, _, _ = Legacy(roster(), "2030-01-01")
	assert.Equal(t, Counts{}, counts)
}

func TestForEntry(t *testing.T) {
	t.Run("record present", func(t *testing.T) {
		entry := &models.JournalEntry{
			Date: "2023-09-01",
			Attendance: &models.AttendanceRecord{
				Scope: "Group1",
				Data:  map[string]bool{"s1": true, "s2": false},
			},
		}
		got := ForEntry(entry, roster())
		assert.False(t, got.Legacy)
		assert.Equal(t, Counts{Present: 1, Absent: 1, Total: 2}, got.Counts)
		require.Len(t, got.AbsentStudents, 1)
		assert.Equal(t, "s2", got.AbsentStudents[0].ID)
	})

	t.Run("legacy fallback", func(t *testing.T) {
		got := ForEntry(&models.JournalEntry{Date: "2023-09-01"}, roster())
		assert.True(t, got.Legacy)
		assert.Equal(t, 2, got.Total)
		require.Len(t, got.AbsentStudents, 1)
		assert.Equal(t, "s4", got.AbsentStudents[0].ID)
	})

	t.Run("nil entry", func(t *testing.T) {
		got := ForEntry(nil, roster())
		assert.Equal(t, Counts{}, got.Counts)
		assert.NotNil(t, got.AbsentStudents)
	})
}

func journal() []models.JournalEntry {
	return []models.JournalEntry{
		{ID: "e1", Date: "2023-09-01", Topic: "Intro"},
		{ID: "e3", Date: "2023-09-03", Topic: "Loops", Attendance: &models.AttendanceRecord{
			Scope: "ALL",
			Data:  map[string]bool{"s1": true, "s2": true, "s3": false, "s4": true},
		}},
		{ID: "e2", Date: "2023-09-02", Topic: "Types"},
	}
}

func TestSummarizeJournal(t *testing.T) {
	got := SummarizeJournal(journal(), roster())
	require.Len(t, got, 3)
	assert.Equal(t, "2023-09-03", got[0].Date)
	assert.Equal(t, "2023-09-02", got[1].Date)
	assert.Equal(t, "2023-09-01", got[2].Date)

	assert.Equal(t, "ALL", got[0].Scope)
	assert.Equal(t, 3, got[0].Present)
	assert.False(t, got[0].Legacy)

	assert.Empty(t, got[1].Scope)
	assert.True(t, got[1].Legacy)
	assert.Equal(t, Counts{Present: 1, Absent: 0, Total: 1}, got[1].Counts)
}

func TestCalendar(t *testing.T) {
	got := Calendar(journal(), roster(), "2023-09-02", "2023-09-03")
	assert.Len(t, got, 2)
	assert.Contains(t, got, "2023-09-02")
	assert.Contains(t, got, "2023-09-03")
	assert.Equal(t, "e3", got["2023-09-03"].ID)

	assert.Len(t, Calendar(journal(), roster(), "", ""), 3)

	dup := append(journal(), models.JournalEntry{ID: "late", Date: "2023-09-01"})
	assert.Equal(t, "e1", Calendar(dup, roster(), "", "")["2023-09-01"].ID)
}
