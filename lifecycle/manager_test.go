// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package lifecycle

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/quickly-poll/db"
	"github.com/danielhkuo/quickly-poll/metrics"
	"github.com/danielhkuo/quickly-poll/models"
	"github.com/danielhkuo/quickly-poll/store"
	"github.com/danielhkuo/quickly-poll/testutil"
)

func newTestManager(t *testing.T, cfg Config) (*Manager, *sql.DB) {
	t.Helper()
	conn := testutil.SetupTestDB(t)
	s := store.New(conn, db.SQLite, store.Config{Logger: testutil.DiscardLogger(), MaxRetries: 10})
	cfg.Logger = testutil.DiscardLogger()
	m, err := New(s, cfg)
	require.NoError(t, err)
	return m, conn
}

func TestNewRejectsBadConfig(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	s := store.New(conn, db.SQLite, store.Config{Logger: testutil.DiscardLogger()})

	_, err := New(s, Config{InitialState: models.StateClosed})
	require.ErrorIs(t, err, models.ErrValidation)

	_, err = New(s, Config{DisplacedState: models.StateActive})
	require.ErrorIs(t, err, models.ErrValidation)
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("default initial state is draft", func(t *testing.T) {
		m, _ := newTestManager(t, DefaultConfig())
		created, err := m.Create(ctx, "Best color?", []string{"Red", "Blue"})
		require.NoError(t, err)
		assert.Equal(t, models.StateDraft, created.Poll.State)
	})

	t.Run("configured initial state active", func(t *testing.T) {
		m, _ := newTestManager(t, Config{InitialState: models.StateActive})
		created, err := m.Create(ctx, "Best color?", []string{"Red", "Blue"})
		require.NoError(t, err)
		assert.Equal(t, models.StateActive, created.Poll.State)
	})

	t.Run("validation", func(t *testing.T) {
		m, conn := newTestManager(t, DefaultConfig())
		_, err := m.Create(ctx, "Bad", []string{})
		require.ErrorIs(t, err, models.ErrValidation)
		_, err = m.Create(ctx, "", []string{"A", "B"})
		require.ErrorIs(t, err, models.ErrValidation)
		assert.Equal(t, 0, testutil.CountRows(t, conn, "SELECT COUNT(*) FROM poll"))
	})
}

func TestCreateActiveDisplacesPrevious(t *testing.T) {
	ctx := context.Background()
	m, conn := newTestManager(t, DefaultConfig())

	first, err := m.CreateWithState(ctx, "Best color?", []string{"Red", "Blue"}, true)
	require.NoError(t, err)
	assert.Equal(t, models.StateActive, first.Poll.State)

	second, err := m.CreateWithState(ctx, "Best fruit?", []string{"Apple", "Pear"}, true)
	require.NoError(t, err)

	assert.Equal(t, models.StateClosed, testutil.PollState(t, conn, first.Poll.ID))
	assert.Equal(t, models.StateActive, testutil.PollState(t, conn, second.Poll.ID))
}

func TestActivate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		displaced     models.PollState
		wantDisplaced models.PollState
	}{
		{"displaced polls are closed", models.StateClosed, models.StateClosed},
		{"displaced polls return to draft", models.StateDraft, models.StateDraft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, conn := newTestManager(t, Config{DisplacedState: tt.displaced})

			a, _ := testutil.CreateTestPoll(t, conn, "A?", models.StateDraft, "1", "2")
			b, _ := testutil.CreateTestPoll(t, conn, "B?", models.StateDraft, "1", "2")

			require.NoError(t, m.Activate(ctx, a))
			require.NoError(t, m.Activate(ctx, b))

			assert.Equal(t, tt.wantDisplaced, testutil.PollState(t, conn, a))
			assert.Equal(t, models.StateActive, testutil.PollState(t, conn, b))
		})
	}
}

func TestActivateTransitions(t *testing.T) {
	ctx := context.Background()
	m, conn := newTestManager(t, DefaultConfig())

	active, _ := testutil.CreateTestPoll(t, conn, "Active?", models.StateActive, "1", "2")
	closed, _ := testutil.CreateTestPoll(t, conn, "Closed?", models.StateClosed, "1", "2")

	// Re-activating is a no-op
	before, err := m.Get(ctx, active)
	require.NoError(t, err)
	require.NoError(t, m.Activate(ctx, active))
	after, err := m.Get(ctx, active)
	require.NoError(t, err)
	assert.Equal(t, before.Poll, after.Poll)

	err = m.Activate(ctx, closed)
	require.ErrorIs(t, err, models.ErrInvalidTransition)
	assert.Equal(t, models.StateClosed, testutil.PollState(t, conn, closed))
	assert.Equal(t, models.StateActive, testutil.PollState(t, conn, active), "failed activation leaves the active poll alone")

	err = m.Activate(ctx, 9999)
	require.ErrorIs(t, err, models.ErrNotFound)
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	m, conn := newTestManager(t, DefaultConfig())

	draft, _ := testutil.CreateTestPoll(t, conn, "Draft?", models.StateDraft, "1", "2")
	active, _ := testutil.CreateTestPoll(t, conn, "Active?", models.StateActive, "1", "2")

	require.NoError(t, m.Close(ctx, draft))
	require.NoError(t, m.Close(ctx, active))
	assert.Equal(t, models.StateClosed, testutil.PollState(t, conn, draft))
	assert.Equal(t, models.StateClosed, testutil.PollState(t, conn, active))

	err := m.Close(ctx, active)
	require.ErrorIs(t, err, models.ErrInvalidTransition)

	err = m.Close(ctx, 9999)
	require.ErrorIs(t, err, models.ErrNotFound)

	_, found, err := m.Active(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCloseKeepsVotes(t *testing.T) {
	ctx := context.Background()
	m, conn := newTestManager(t, DefaultConfig())

	pollID, opts := testutil.CreateTestPoll(t, conn, "Lunch?", models.StateActive, "Pizza", "Salad")
	testutil.AddTestVote(t, conn, 1, "alice", pollID, opts[0])

	require.NoError(t, m.Close(ctx, pollID))
	assert.Equal(t, 1, testutil.CountRows(t, conn, "SELECT COUNT(*) FROM vote WHERE poll_id = $1", pollID))
}

func TestCloseActive(t *testing.T) {
	ctx := context.Background()
	m, conn := newTestManager(t, DefaultConfig())

	_, err := m.CloseActive(ctx)
	require.ErrorIs(t, err, models.ErrNoActivePoll)

	pollID, _ := testutil.CreateTestPoll(t, conn, "Active?", models.StateActive, "1", "2")

	closed, err := m.CloseActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, pollID, closed)
	assert.Equal(t, models.StateClosed, testutil.PollState(t, conn, pollID))

	_, err = m.CloseActive(ctx)
	require.ErrorIs(t, err, models.ErrNoActivePoll)
}

func TestActive(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager(t, DefaultConfig())

	_, found, err := m.Active(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	created, err := m.CreateWithState(ctx, "Best color?", []string{"Red", "Blue"}, true)
	require.NoError(t, err)

	active, found, err := m.Active(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, created.Poll.ID, active.Poll.ID)
	require.Len(t, active.Options, 2)
	assert.Equal(t, "Red", active.Options[0].Text)
	assert.Equal(t, "Blue", active.Options[1].Text)
}

func TestConcurrentActivation(t *testing.T) {
	ctx := context.Background()
	m, conn := newTestManager(t, DefaultConfig())

	const numPolls = 8
	ids := make([]int64, numPolls)
	for i := range ids {
		ids[i], _ = testutil.CreateTestPoll(t, conn, "Race?", models.StateDraft, "1", "2")
	}

	var wg sync.WaitGroup
	errs := make([]error, numPolls)
	for i, id := range ids {
		i, id := i, id
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = m.Activate(ctx, id)
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		// A poll displaced to closed before its own activation ran cannot be reopened
		assert.ErrorIs(t, err, models.ErrInvalidTransition)
	}
	assert.Positive(t, succeeded)

	active := testutil.CountRows(t, conn, "SELECT COUNT(*) FROM poll WHERE state = 'active'")
	assert.Equal(t, 1, active)
}

func TestTransitionMetrics(t *testing.T) {
	ctx := context.Background()
	conn := testutil.SetupTestDB(t)
	met, _ := metrics.NewWithRegistry()
	s := store.New(conn, db.SQLite, store.Config{Logger: testutil.DiscardLogger()})
	m, err := New(s, Config{Logger: testutil.DiscardLogger(), Metrics: met})
	require.NoError(t, err)

	created, err := m.Create(ctx, "Q?", []string{"A", "B"})
	require.NoError(t, err)
	require.NoError(t, m.Activate(ctx, created.Poll.ID))
	require.NoError(t, m.Close(ctx, created.Poll.ID))
	require.Error(t, m.Close(ctx, created.Poll.ID))

	assert.Equal(t, float64(1), promtest.ToFloat64(met.TransitionsTotal.WithLabelValues(TransitionCreate, metrics.OutcomeOK)))
	assert.Equal(t, float64(1), promtest.ToFloat64(met.TransitionsTotal.WithLabelValues(TransitionActivate, metrics.OutcomeOK)))
	assert.Equal(t, float64(1), promtest.ToFloat64(met.TransitionsTotal.WithLabelValues(TransitionClose, metrics.OutcomeOK)))
	assert.Equal(t, float64(1), promtest.ToFloat64(met.TransitionsTotal.WithLabelValues(TransitionClose, metrics.OutcomeRejected)))
}
