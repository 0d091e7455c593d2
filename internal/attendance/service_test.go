package attendance

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/klassbok/internal/models"
)

type MockRoster struct {
	mock.Mock
}

func (m *MockRoster) ListStudents(ctx context.Context, classID string) ([]models.Student, error) {
	args := m.Called(ctx, classID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Student), args.Error(1)
}

func (m *MockRoster) GetClassConfig(ctx context.Context, classID string) (*models.ClassConfig, error) {
	args := m.Called(ctx, classID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ClassConfig), args.Error(1)
}

type MockJournal struct {
	mock.Mock
}

func (m *MockJournal) FindEntry(ctx context.Context, classID, date string) (*models.JournalEntry, error) {
	args := m.Called(ctx, classID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JournalEntry), args.Error(1)
}

func (m *MockJournal) SaveAttendance(ctx context.Context, classID, date string, record *models.AttendanceRecord) error {
	args := m.Called(ctx, classID, date, record)
	return args.Error(0)
}

type MockFlushingJournal struct {
	MockJournal
}

func (m *MockFlushingJournal) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestInitializeSession(t *testing.T) {
	ctx := context.Background()

	t.Run("complete mode starts on whole class", func(t *testing.T) {
		roster := new(MockRoster)
		journal := new(MockJournal)
		roster.On("ListStudents", ctx, "7b").Return(groupedRoster(), nil)
		roster.On("GetClassConfig", ctx, "7b").Return(&models.ClassConfig{ClassID: "7b", Mode: models.ModeComplete}, nil)
		journal.On("FindEntry", ctx, "7b", "2024-03-01").Return(nil, nil)

		sess, err := NewService(roster, journal).InitializeSession(ctx, "7b", "2024-03-01")
		require.NoError(t, err)
		assert.Equal(t, ScopeAll, sess.ActiveScope)
		assert.Len(t, sess.Presence, 5)
		roster.AssertExpectations(t)
		journal.AssertExpectations(t)
	})

	t.Run("saved record wins over config", func(t *testing.T) {
		roster := new(MockRoster)
		journal := new(MockJournal)
		roster.On("ListStudents", ctx, "7b").Return(groupedRoster(), nil)
		roster.On("GetClassConfig", ctx, "7b").Return(&models.ClassConfig{ClassID: "7b", Mode: models.ModeComplete}, nil)
		journal.On("FindEntry", ctx, "7b", "2024-03-01").Return(&models.JournalEntry{
			ID: "e1", ClassID: "7b", Date: "2024-03-01",
			Attendance: &models.AttendanceRecord{Scope: "Group2", Data: map[string]bool{"s3": true, "s4": false}},
		}, nil)

		sess, err := NewService(roster, journal).InitializeSession(ctx, "7b", "2024-03-01")
		require.NoError(t, err)
		assert.Equal(t, "Group2", sess.ActiveScope)
		assert.True(t, sess.Presence["s3"])
	})

	t.Run("roster failure", func(t *testing.T) {
		roster := new(MockRoster)
		roster.On("ListStudents", ctx, "7b").Return(nil, errors.New("db down"))

		_, err := NewService(roster, new(MockJournal)).InitializeSession(ctx, "7b", "2024-03-01")
		assert.ErrorContains(t, err, "db down")
	})
}

func TestCommitSession(t *testing.T) {
	ctx := context.Background()

	t.Run("saves flattened record", func(t *testing.T) {
		roster := new(MockRoster)
		journal := new(MockJournal)
		roster.On("ListStudents", ctx, "7b").Return(ungroupedRoster(), nil)
		journal.On("FindEntry", ctx, "7b", "2024-03-01").Return(&models.JournalEntry{ID: "e1", ClassID: "7b", Date: "2024-03-01"}, nil)

		want := &models.AttendanceRecord{
			Scope:             ScopeAll,
			Data:              map[string]bool{"s1": false, "s2": true, "s3": false},
			TemporaryStudents: map[string]models.TemporaryStudent{},
		}
		journal.On("SaveAttendance", ctx, "7b", "2024-03-01", want).Return(nil)

		svc := NewService(roster, journal)
		sess := NewSession("7b", "2024-03-01", ungroupedRoster(), nil, nil)
		require.NoError(t, svc.TogglePresence(ctx, sess, "s2"))

		record, err := svc.CommitSession(ctx, sess)
		require.NoError(t, err)
		assert.Equal(t, want, record)
		assert.Equal(t, want, sess.Persisted)
		journal.AssertExpectations(t)
	})

	t.Run("missing entry returns record and warning error", func(t *testing.T) {
		roster := new(MockRoster)
		journal := new(MockJournal)
		roster.On("ListStudents", ctx, "7b").Return(ungroupedRoster(), nil)
		journal.On("FindEntry", ctx, "7b", "2024-03-01").Return(nil, nil)

		sess := NewSession("7b", "2024-03-01", ungroupedRoster(), nil, nil)
		record, err := NewService(roster, journal).CommitSession(ctx, sess)
		assert.ErrorIs(t, err, ErrMissingEntry)
		require.NotNil(t, record)
		assert.Len(t, record.Data, 3)
		assert.Nil(t, sess.Persisted)
		journal.AssertNotCalled(t, "SaveAttendance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		assert.ErrorContains(t, err, "7b/2024-03-01")
	})

	t.Run("flushes buffered journals", func(t *testing.T) {
		roster := new(MockRoster)
		journal := new(MockFlushingJournal)
		roster.On("ListStudents", ctx, "7b").Return(ungroupedRoster(), nil)
		journal.On("FindEntry", ctx, "7b", "2024-03-01").Return(&models.JournalEntry{ID: "e1"}, nil)
		journal.On("SaveAttendance", ctx, "7b", "2024-03-01", mock.Anything).Return(nil)
		journal.On("Flush", ctx).Return(nil)

		sess := NewSession("7b", "2024-03-01", ungroupedRoster(), nil, nil)
		_, err := NewService(roster, journal).CommitSession(ctx, sess)
		require.NoError(t, err)
		journal.AssertExpectations(t)
	})

	t.Run("save failure", func(t *testing.T) {
		roster := new(MockRoster)
		journal := new(MockJournal)
		roster.On("ListStudents", ctx, "7b").Return(ungroupedRoster(), nil)
		journal.On("FindEntry", ctx, "7b", "2024-03-01").Return(&models.JournalEntry{ID: "e1"}, nil)
		journal.On("SaveAttendance", ctx, "7b", "2024-03-01", mock.Anything).Return(errors.New("disk full"))

		sess := NewSession("7b", "2024-03-01", ungroupedRoster(), nil, nil)
		record, err := NewService(roster, journal).CommitSession(ctx, sess)
		assert.ErrorContains(t, err, "disk full")
		assert.Nil(t, record)
		assert.Nil(t, sess.Persisted)
	})

	t.Run("no session", func(t *testing.T) {
		_, err := NewService(new(MockRoster), new(MockJournal)).CommitSession(ctx, nil)
		assert.ErrorIs(t, err, ErrNoSession)
	})
}

func TestServiceSwitchAndOverlay(t *testing.T) {
	ctx := context.Background()
	roster := new(MockRoster)
	roster.On("ListStudents", ctx, "7b").Return(groupedRoster(), nil)
	svc := NewService(roster, new(MockJournal))

	sess := NewSession("7b", "2024-03-01", groupedRoster(), nil, nil)

	candidates, err := svc.Candidates(ctx, sess)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "s3", candidates[0].ID)

	require.NoError(t, svc.AdmitTemporaryStudent(ctx, sess, "s3"))
	require.NoError(t, svc.ToggleTemporaryPresence(sess, "s3"))
	assert.True(t, sess.Temporary["s3"].Present)
	require.NoError(t, svc.RemoveTemporaryStudent(sess, "s3"))
	require.NoError(t, svc.RemoveTemporaryStudent(sess, "s3"))
	assert.Empty(t, sess.Temporary)

	out, err := svc.SwitchScope(ctx, sess, "Group2", ConfirmFunc(decline))
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Equal(t, "Group1", sess.ActiveScope)

	out, err = svc.SwitchScope(ctx, sess, "Group2", ConfirmFunc(accept))
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.Equal(t, "Group2", sess.ActiveScope)

	_, err = svc.SwitchScope(ctx, sess, "Group3", ConfirmFunc(accept))
	assert.ErrorIs(t, err, ErrUnknownScope)
	assert.Equal(t, "Group2", sess.ActiveScope)
}
