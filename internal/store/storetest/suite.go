// Package storetest holds the behaviour every JournalStore backend has to share.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/klassbok/internal/models"
	"github.com/shrimpsizemoose/klassbok/internal/store"
)

// Run exercises s against a fresh, empty schema. Class ids are unique per
// subtest so backends that keep state across subtests still pass.
func Run(t *testing.T, s store.JournalStore) {
	t.Run("students", func(t *testing.T) { testStudents(t, s) })
	t.Run("class config", func(t *testing.T) { testClassConfig(t, s) })
	t.Run("journal entries", func(t *testing.T) { testEntries(t, s) })
	t.Run("attendance", func(t *testing.T) { testAttendance(t, s) })
}

func testStudents(t *testing.T, s store.JournalStore) {
	ctx := context.Background()

	roster := []models.Student{
		{ID: "st-anna", ClassID: "5a", FirstName: "Anna", LastName: "Berg", Group: models.GroupPtr("Group1")},
		{ID: "st-oskar", ClassID: "5a", FirstName: "Oskar", Group: models.GroupPtr("Group2")},
		{
			ID: "st-lina", ClassID: "5a", FirstName: "Lina",
			Presence: map[string]bool{"2023-09-01": true, "2023-09-02": false},
		},
	}
	for i := range roster {
		require.NoError(t, s.CreateStudent(ctx, &roster[i]))
	}

	t.Run("listed in insertion order", func(t *testing.T) {
		got, err := s.ListStudents(ctx, "5a")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "st-anna", got[0].ID)
		assert.Equal(t, "st-oskar", got[1].ID)
		assert.Equal(t, "st-lina", got[2].ID)
		assert.Equal(t, "Group1", got[0].GroupLabel())
		assert.False(t, got[2].HasGroup())
		assert.Equal(t, map[string]bool{"2023-09-01": true, "2023-09-02": false}, got[2].Presence)
	})

	t.Run("legacy presence upsert", func(t *testing.T) {
		require.NoError(t, s.SetLegacyPresence(ctx, "st-lina", "2023-09-02", true))
		got, err := s.ListStudents(ctx, "5a")
		require.NoError(t, err)
		assert.True(t, got[2].Presence["2023-09-02"])
	})

	t.Run("unknown class is empty", func(t *testing.T) {
		got, err := s.ListStudents(ctx, "nope")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("invalid student", func(t *testing.T) {
		err := s.CreateStudent(ctx, &models.Student{ID: "x", ClassID: "5a"})
		assert.Error(t, err)
	})
}

func testClassConfig(t *testing.T, s store.JournalStore) {
	ctx := context.Background()

	got, err := s.GetClassConfig(ctx, "6c")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.SetClassConfig(ctx, models.ClassConfig{ClassID: "6c", Mode: models.ModeGroups}))
	require.NoError(t, s.SetClassConfig(ctx, models.ClassConfig{ClassID: "6c", Mode: models.ModeComplete}))

	got, err = s.GetClassConfig(ctx, "6c")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.ModeComplete, got.Mode)

	assert.Error(t, s.SetClassConfig(ctx, models.ClassConfig{ClassID: "6c", Mode: "weekly"}))
}

func testEntries(t *testing.T, s store.JournalStore) {
	ctx := context.Background()

	second := &models.JournalEntry{ClassID: "7d", Date: "2024-02-02", Topic: "Poetry"}
	first := &models.JournalEntry{ClassID: "7d", Date: "2024-02-01", Topic: "Prose"}
	require.NoError(t, s.CreateEntry(ctx, second))
	require.NoError(t, s.CreateEntry(ctx, first))
	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	t.Run("one entry per date", func(t *testing.T) {
		err := s.CreateEntry(ctx, &models.JournalEntry{ClassID: "7d", Date: "2024-02-01"})
		assert.ErrorIs(t, err, store.ErrDuplicateDay)
	})

	t.Run("bad date", func(t *testing.T) {
		err := s.CreateEntry(ctx, &models.JournalEntry{ClassID: "7d", Date: "01.02.2024"})
		assert.Error(t, err)
	})

	t.Run("find", func(t *testing.T) {
		got, err := s.FindEntry(ctx, "7d", "2024-02-02")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, second.ID, got.ID)
		assert.Equal(t, "Poetry", got.Topic)
		assert.Nil(t, got.Attendance)

		got, err = s.FindEntry(ctx, "7d", "2024-03-03")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("list by date", func(t *testing.T) {
		got, err := s.ListEntries(ctx, "7d")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "2024-02-01", got[0].Date)
		assert.Equal(t, "2024-02-02", got[1].Date)
	})
}

func testAttendance(t *testing.T, s store.JournalStore) {
	ctx := context.Background()

	require.NoError(t, s.CreateEntry(ctx, &models.JournalEntry{ClassID: "8e", Date: "2024-04-10", Topic: "Cells"}))

	record := &models.AttendanceRecord{
		Scope: "Group1",
		Data:  map[string]bool{"a": true, "b": false},
		TemporaryStudents: map[string]models.TemporaryStudent{
			"c": {OriginalGroup: models.GroupPtr("Group2"), Present: true},
		},
	}

	t.Run("save and reload", func(t *testing.T) {
		require.NoError(t, s.SaveAttendance(ctx, "8e", "2024-04-10", record))
		got, err := s.FindEntry(ctx, "8e", "2024-04-10")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, record, got.Attendance)
	})

	t.Run("save replaces whole record", func(t *testing.T) {
		replacement := models.NewAttendanceRecord("ALL")
		replacement.Data["a"] = false
		require.NoError(t, s.SaveAttendance(ctx, "8e", "2024-04-10", replacement))

		got, err := s.FindEntry(ctx, "8e", "2024-04-10")
		require.NoError(t, err)
		assert.Equal(t, replacement, got.Attendance)
	})

	t.Run("missing entry", func(t *testing.T) {
		err := s.SaveAttendance(ctx, "8e", "2024-04-11", record)
		assert.True(t, store.IsNotFound(err), "got %v", err)
	})
}
