package sync

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mauv0809/courtside/internal/client"
	"github.com/mauv0809/courtside/internal/game"
	"github.com/mauv0809/courtside/internal/localstore"
	"github.com/mauv0809/courtside/internal/metrics"
	"github.com/mauv0809/courtside/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errUnreachable = fmt.Errorf("dial tcp: connection refused: %w: %w", client.ErrUnreachable, game.ErrNetwork)
	errServerFault = fmt.Errorf("server answered 500: %w", game.ErrNetwork)
)

type fixture struct {
	engine  *Engine
	store   *localstore.Store
	api     *client.MockClient
	metrics *metrics.Mock
	clock   time.Time
}

func setupEngine(t *testing.T, cfg Config) *fixture {
	t.Helper()
	store, err := localstore.Open(filepath.Join(t.TempDir(), "device.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		store:   store,
		api:     client.NewMockClient(),
		metrics: metrics.NewMock(),
		clock:   time.Now(),
	}
	f.engine = New(store, store, f.api, f.metrics, cfg)
	f.engine.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) record(t *testing.T, gameID string, st stats.StatType) *localstore.PendingMutation {
	t.Helper()
	m, err := f.engine.Record(context.Background(), gameID, localstore.MutationStat, game.ApplyRequest{
		GameID: gameID, PlayerID: "p1", TeamID: "home", StatType: st, Period: 1,
	})
	require.NoError(t, err)
	return m
}

func TestDrainDeliversInOrder(t *testing.T) {
	f := setupEngine(t, Config{})
	ctx := context.Background()

	m1 := f.record(t, "g1", stats.Made2)
	m2 := f.record(t, "g1", stats.Assist)
	m3 := f.record(t, "g1", stats.Made3)

	result, err := f.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Delivered)
	assert.Equal(t, []string{m1.MutationID, m2.MutationID, m3.MutationID}, f.api.Submitted())
	assert.Equal(t, 3, f.metrics.SyncDelivered())
	assert.Equal(t, 0, f.metrics.PendingMutations())

	pending, err := f.store.ListPending(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDrainKeepsOrderAcrossFlakyTransport(t *testing.T) {
	f := setupEngine(t, Config{BackoffMin: time.Second, BackoffMax: time.Minute})
	ctx := context.Background()

	m1 := f.record(t, "g1", stats.Made2)
	m2 := f.record(t, "g1", stats.DefRebound)
	m3 := f.record(t, "g1", stats.Made3)

	failNext := map[string]bool{m2.MutationID: true}
	var delivered []string
	f.api.ApplyStatFunc = func(req game.ApplyRequest) (*game.StatLogEntry, bool, error) {
		if failNext[req.ClientMutationID] {
			delete(failNext, req.ClientMutationID)
			return nil, false, errUnreachable
		}
		delivered = append(delivered, req.ClientMutationID)
		return &game.StatLogEntry{GameID: req.GameID, ClientMutationID: req.ClientMutationID}, false, nil
	}

	result, err := f.engine.Drain(ctx)
	require.ErrorIs(t, err, errOffline)
	assert.Equal(t, 1, result.Delivered)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, f.engine.IsOnline())
	assert.Equal(t, []string{m1.MutationID}, delivered)

	// Unreachable is not backed off: the very next drain retries the head.
	result, err = f.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Delivered)
	assert.True(t, f.engine.IsOnline())
	assert.Equal(t, []string{m1.MutationID, m2.MutationID, m3.MutationID}, delivered)
	assert.Equal(t, 1, f.metrics.SyncFailed())
}

func TestServerFaultWaitsOutBackoff(t *testing.T) {
	f := setupEngine(t, Config{BackoffMin: time.Second, BackoffMax: time.Minute})
	ctx := context.Background()

	m1 := f.record(t, "g1", stats.Made2)
	m2 := f.record(t, "g1", stats.Block)

	fail := true
	f.api.ApplyStatFunc = func(req game.ApplyRequest) (*game.StatLogEntry, bool, error) {
		if fail {
			return nil, false, errServerFault
		}
		return &game.StatLogEntry{GameID: req.GameID, ClientMutationID: req.ClientMutationID}, false, nil
	}

	result, err := f.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)

	pending, err := f.store.ListPending(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	require.NotNil(t, pending[0].NextAttemptAt)

	// Inside the backoff window nothing is submitted.
	fail = false
	result, err = f.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Delivered)
	assert.Equal(t, []string{"g1"}, result.Halted)
	assert.Len(t, f.api.Submitted(), 1)

	f.clock = f.clock.Add(time.Minute)
	result, err = f.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Delivered)
	assert.Equal(t, []string{m1.MutationID, m1.MutationID, m2.MutationID}, f.api.Submitted())
}

func TestReconnectDeliversHeadImmediately(t *testing.T) {
	f := setupEngine(t, Config{Interval: 10 * time.Second, BackoffMin: time.Second, BackoffMax: 5 * time.Minute})
	ctx := context.Background()

	head := f.record(t, "g1", stats.Made3)
	reachable := false
	f.api.ApplyStatFunc = func(req game.ApplyRequest) (*game.StatLogEntry, bool, error) {
		if !reachable {
			return nil, false, errUnreachable
		}
		return &game.StatLogEntry{GameID: req.GameID, ClientMutationID: req.ClientMutationID}, false, nil
	}

	// Offline through several ticks.
	for i := 0; i < 8; i++ {
		_, err := f.engine.Drain(ctx)
		require.ErrorIs(t, err, errOffline)
		f.clock = f.clock.Add(10 * time.Second)
	}
	assert.False(t, f.engine.IsOnline())

	pending, err := f.store.ListPending(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 8, pending[0].Attempts)
	assert.Nil(t, pending[0].NextAttemptAt)

	// Back online with no time passing: the head goes out on the first drain.
	reachable = true
	f.engine.SetOnline(true)
	result, err := f.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Delivered)
	assert.Empty(t, result.Halted)
	assert.Equal(t, head.MutationID, f.api.Submitted()[len(f.api.Submitted())-1])
}

func TestDrainDeadLettersPermanentFailureAndContinues(t *testing.T) {
	f := setupEngine(t, Config{})
	ctx := context.Background()

	m1 := f.record(t, "g1", stats.Made2)
	bad, err := f.engine.Record(ctx, "g1", localstore.MutationStatus, game.TransitionRequest{GameID: "g1", Status: game.StatusScheduled})
	require.NoError(t, err)
	m3 := f.record(t, "g1", stats.Steal)

	f.api.TransitionStatusFunc = func(req game.TransitionRequest) (*game.Game, error) {
		return nil, fmt.Errorf("IN_PROGRESS to SCHEDULED: %w", game.ErrInvalidTransition)
	}

	result, err := f.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Delivered)
	assert.Equal(t, 1, result.DeadLettered)
	assert.Equal(t, []string{m1.MutationID, string(game.StatusScheduled), m3.MutationID}, f.api.Submitted())

	dead, err := f.store.ListDeadLetters(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, bad.LocalID, dead[0].LocalID)
	assert.Contains(t, dead[0].LastError, "invalid status transition")

	status, err := f.engine.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, Status{Online: true, Pending: 0, DeadLettered: 1}, status)
	assert.Equal(t, 1, f.metrics.DeadLettered())
}

func TestDrainDeadLettersAfterMaxAttempts(t *testing.T) {
	f := setupEngine(t, Config{MaxAttempts: 2, BackoffMin: time.Second, BackoffMax: time.Second})
	ctx := context.Background()

	f.record(t, "g1", stats.Made2)
	f.api.ApplyStatFunc = func(req game.ApplyRequest) (*game.StatLogEntry, bool, error) {
		return nil, false, errServerFault
	}

	result, err := f.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Failed)
	assert.True(t, f.engine.IsOnline(), "a server fault means the server was reached")

	f.clock = f.clock.Add(2 * time.Second)
	result, err = f.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DeadLettered)

	dead, err := f.store.ListDeadLetters(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, 2, dead[0].Attempts)
}

func TestUnreachableNeverDeadLetters(t *testing.T) {
	f := setupEngine(t, Config{MaxAttempts: 2, BackoffMin: time.Second, BackoffMax: time.Second})
	ctx := context.Background()

	f.record(t, "g1", stats.Made2)
	f.api.ApplyStatFunc = func(req game.ApplyRequest) (*game.StatLogEntry, bool, error) {
		return nil, false, errUnreachable
	}

	for i := 0; i < 5; i++ {
		_, err := f.engine.Drain(ctx)
		require.ErrorIs(t, err, errOffline)
		f.clock = f.clock.Add(2 * time.Second)
	}

	pending, err := f.store.ListPending(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 5, pending[0].Attempts)
	assert.Zero(t, f.metrics.DeadLettered())
}

func TestDrainIsolatesGames(t *testing.T) {
	f := setupEngine(t, Config{})
	ctx := context.Background()

	f.record(t, "g1", stats.Made2)
	f.record(t, "g1", stats.Made2)
	other := f.record(t, "g2", stats.Foul)

	f.api.ApplyStatFunc = func(req game.ApplyRequest) (*game.StatLogEntry, bool, error) {
		if req.GameID == "g1" {
			return nil, false, errServerFault
		}
		return &game.StatLogEntry{GameID: req.GameID}, false, nil
	}

	result, err := f.engine.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Delivered)
	assert.Equal(t, 1, result.Failed, "g1 stops at its head")

	pending, err := f.store.ListPending(ctx, "g2")
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Contains(t, f.api.Submitted(), other.MutationID)
}

func TestUndoCarriesMutationID(t *testing.T) {
	f := setupEngine(t, Config{})
	ctx := context.Background()

	m, err := f.engine.Record(ctx, "g1", localstore.MutationUndo, game.UndoRequest{GameID: "g1", StatLogID: 12})
	require.NoError(t, err)

	_, err = f.engine.Drain(ctx)
	require.NoError(t, err)
	require.Len(t, f.api.UndoStatCalls, 1)
	assert.Equal(t, int64(12), f.api.UndoStatCalls[0].StatLogID)
	assert.Equal(t, m.MutationID, f.api.UndoStatCalls[0].ClientMutationID)
}

func TestSnapshotFallsBackToCache(t *testing.T) {
	f := setupEngine(t, Config{})
	ctx := context.Background()

	f.api.FetchSnapshotFunc = func(gameID string, logLimit int) (*game.Snapshot, error) {
		return &game.Snapshot{Game: game.Game{ID: gameID, HomeScore: 21, AwayScore: 19}}, nil
	}
	res, err := f.engine.Snapshot(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.Equal(t, 21, res.Snapshot.Game.HomeScore)

	// A delivered mutation makes the cached copy stale.
	f.record(t, "g1", stats.Made2)
	_, err = f.engine.Drain(ctx)
	require.NoError(t, err)

	f.api.FetchSnapshotFunc = func(gameID string, logLimit int) (*game.Snapshot, error) {
		return nil, errUnreachable
	}
	res, err = f.engine.Snapshot(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.True(t, res.Stale)
	assert.Equal(t, 19, res.Snapshot.Game.AwayScore)
	assert.False(t, f.engine.IsOnline())

	_, err = f.engine.Snapshot(ctx, "never-fetched")
	assert.ErrorIs(t, err, game.ErrNetwork)

	f.api.FetchSnapshotFunc = func(gameID string, logLimit int) (*game.Snapshot, error) {
		return nil, fmt.Errorf("game %s: %w", gameID, game.ErrNotFound)
	}
	_, err = f.engine.Snapshot(ctx, "g1")
	assert.ErrorIs(t, err, game.ErrNotFound, "permanent errors are not masked by the cache")
}

func TestRunDrainsOnRecordAndReconnect(t *testing.T) {
	f := setupEngine(t, Config{Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.engine.Run(ctx) }()

	f.record(t, "g1", stats.Made2)
	require.Eventually(t, func() bool { return f.metrics.SyncDelivered() == 1 }, 2*time.Second, 10*time.Millisecond)

	f.engine.SetOnline(false)
	_, err := f.store.Enqueue(context.Background(), "g1", localstore.MutationPeriod, game.PeriodRequest{GameID: "g1", Period: 2})
	require.NoError(t, err)
	f.engine.SetOnline(true)
	require.Eventually(t, func() bool { return f.metrics.SyncDelivered() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
}

func TestRunPingsWhileOffline(t *testing.T) {
	f := setupEngine(t, Config{Interval: 20 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var reachable atomic.Bool
	var pings atomic.Int32
	f.api.PingFunc = func() error {
		pings.Add(1)
		if !reachable.Load() {
			return errUnreachable
		}
		return nil
	}
	f.api.ApplyStatFunc = func(req game.ApplyRequest) (*game.StatLogEntry, bool, error) {
		if !reachable.Load() {
			return nil, false, errUnreachable
		}
		return &game.StatLogEntry{GameID: req.GameID, ClientMutationID: req.ClientMutationID}, false, nil
	}

	done := make(chan error, 1)
	go func() { done <- f.engine.Run(ctx) }()

	f.record(t, "g1", stats.Made2)
	require.Eventually(t, func() bool { return !f.engine.IsOnline() }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return pings.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, f.metrics.SyncDelivered())

	reachable.Store(true)
	require.Eventually(t, func() bool { return f.metrics.SyncDelivered() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, f.engine.IsOnline())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop")
	}
}
