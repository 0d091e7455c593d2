package app

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/klassbok/internal/attendance"
	"github.com/shrimpsizemoose/klassbok/internal/models"
	"github.com/shrimpsizemoose/klassbok/internal/store"
	"github.com/shrimpsizemoose/klassbok/internal/store/jsonfile"
)

func setupService(t *testing.T) *Service {
	st, err := jsonfile.Open(filepath.Join(t.TempDir(), "journal.json"))
	require.NoError(t, err)

	ctx := context.Background()
	roster := testRoster()
	for i := range roster {
		require.NoError(t, st.CreateStudent(ctx, &roster[i]))
	}

	config, err := ParseConfig("test.toml", []byte(`
[server]
port = ":9999"

[api]
required_headers = [{ name = "X-Client", value = "web" }]
`))
	require.NoError(t, err)

	service := NewServiceWith(config, st, NewMemorySessionCache())
	t.Cleanup(func() { service.Close() })
	return service
}

func TestValidateHeaders(t *testing.T) {
	service := setupService(t)

	assert.False(t, service.ValidateHeaders(http.Header{}))
	assert.False(t, service.ValidateHeaders(http.Header{"X-Client": {"cli"}}))
	assert.True(t, service.ValidateHeaders(http.Header{"X-Client": {"WEB"}}))
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	service := setupService(t)

	_, err := service.CreateEntry(ctx, "7b", "2024-03-01", "Fractions")
	require.NoError(t, err)

	sess, err := service.OpenSession(ctx, "7b", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "Group1", sess.ActiveScope)

	_, err = service.WithSession(ctx, "7b", "2024-03-01", func(sess *attendance.Session) error {
		return service.Attendance.TogglePresence(ctx, sess, "s1")
	})
	require.NoError(t, err)

	_, err = service.WithSession(ctx, "7b", "2024-03-01", func(sess *attendance.Session) error {
		return service.Attendance.TogglePresence(ctx, sess, "s2")
	})
	assert.ErrorIs(t, err, attendance.ErrNotInScope)

	record, err := service.CommitSession(ctx, "7b", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"s1": true}, record.Data)

	_, err = service.Sessions.Load(ctx, "7b", "2024-03-01")
	assert.ErrorIs(t, err, attendance.ErrNoSession, "commit closes the session")

	summary, err := service.EntryStatistics(ctx, "7b", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Present)
	assert.Equal(t, "Group1", summary.Scope)
}

func TestCommitWithoutEntryKeepsSession(t *testing.T) {
	ctx := context.Background()
	service := setupService(t)

	_, err := service.OpenSession(ctx, "7b", "2024-03-05")
	require.NoError(t, err)

	record, err := service.CommitSession(ctx, "7b", "2024-03-05")
	assert.ErrorIs(t, err, attendance.ErrMissingEntry)
	require.NotNil(t, record)

	_, err = service.Sessions.Load(ctx, "7b", "2024-03-05")
	assert.NoError(t, err)
}

func TestEntryStatisticsMissing(t *testing.T) {
	service := setupService(t)
	_, err := service.EntryStatistics(context.Background(), "7b", "2024-01-01")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestJournalSummaries(t *testing.T) {
	ctx := context.Background()
	service := setupService(t)

	for _, date := range []string{"2024-03-01", "2024-03-08", "2024-03-15"} {
		_, err := service.CreateEntry(ctx, "7b", date, "")
		require.NoError(t, err)
	}
	require.NoError(t, service.Store.SaveAttendance(ctx, "7b", "2024-03-08", &models.AttendanceRecord{
		Scope: "ALL",
		Data:  map[string]bool{"s1": true, "s2": false},
	}))

	entries, err := service.JournalSummary(ctx, "7b")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "2024-03-15", entries[0].Date)

	days, err := service.CalendarSummary(ctx, "7b", "2024-03-02", "2024-03-31")
	require.NoError(t, err)
	assert.Len(t, days, 2)
	assert.Equal(t, 2, days["2024-03-08"].Total)
}
