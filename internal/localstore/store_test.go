package localstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mauv0809/courtside/internal/game"
	"github.com/mauv0809/courtside/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "device.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSnapshotCache(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, ok)

	snap := &game.Snapshot{
		Game: game.Game{ID: "g1", HomeTeamID: "home", AwayTeamID: "away", HomeScore: 12, Status: game.StatusInProgress, CurrentPeriod: 2},
		Stats: []game.PlayerGameStats{
			{GameID: "g1", PlayerID: "p1", TeamID: "home", BoxScore: stats.BoxScore{Points: 12, FGMade: 6, FGAttempted: 9}},
		},
		StatLogs: []game.StatLogEntry{{ID: 4, GameID: "g1", PlayerID: "p1", TeamID: "home", StatType: stats.Made2, Value: 2}},
	}
	require.NoError(t, store.Save(ctx, "g1", snap))

	cached, ok, err := store.Get(ctx, "g1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.False(t, cached.Stale)
	assert.Equal(t, 12, cached.Snapshot.Game.HomeScore)
	assert.Equal(t, game.StatusInProgress, cached.Snapshot.Game.Status)
	require.Len(t, cached.Snapshot.Stats, 1)
	assert.Equal(t, 6, cached.Snapshot.Stats[0].FGMade)
	require.Len(t, cached.Snapshot.StatLogs, 1)
	assert.Equal(t, stats.Made2, cached.Snapshot.StatLogs[0].StatType)

	require.NoError(t, store.Invalidate(ctx, "g1"))
	cached, ok, err = store.Get(ctx, "g1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, cached.Stale, "invalidated snapshot should stay readable but stale")

	require.NoError(t, store.Save(ctx, "g1", snap))
	cached, _, err = store.Get(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, cached.Stale)
}

func TestEnqueueKeepsOrderPerGame(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first, err := store.Enqueue(ctx, "g1", MutationStat, game.ApplyRequest{GameID: "g1", PlayerID: "p1", TeamID: "home", StatType: stats.Made2, Period: 1})
	require.NoError(t, err)
	_, err = store.Enqueue(ctx, "g2", MutationPeriod, game.PeriodRequest{GameID: "g2", Period: 3})
	require.NoError(t, err)
	third, err := store.Enqueue(ctx, "g1", MutationUndo, game.UndoRequest{GameID: "g1", StatLogID: 9})
	require.NoError(t, err)

	assert.NotEmpty(t, first.MutationID)
	assert.NotEqual(t, first.MutationID, third.MutationID)
	assert.Less(t, first.LocalID, third.LocalID)

	pending, err := store.ListPending(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.LocalID, pending[0].LocalID)
	assert.Equal(t, MutationStat, pending[0].Type)
	assert.Equal(t, third.LocalID, pending[1].LocalID)

	var req game.ApplyRequest
	require.NoError(t, pending[0].Decode(&req))
	assert.Equal(t, stats.Made2, req.StatType)
	assert.Equal(t, "p1", req.PlayerID)

	var undo game.UndoRequest
	require.NoError(t, pending[1].Decode(&undo))
	assert.Equal(t, int64(9), undo.StatLogID)

	games, err := store.PendingGames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"g1", "g2"}, games)
}

func TestEnqueueValidation(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.Enqueue(ctx, "", MutationStat, game.ApplyRequest{})
	assert.ErrorIs(t, err, game.ErrValidation)
	_, err = store.Enqueue(ctx, "g1", MutationType("rename"), nil)
	assert.ErrorIs(t, err, game.ErrValidation)
}

func TestMarkFailedAndRemove(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	m, err := store.Enqueue(ctx, "g1", MutationPeriod, game.PeriodRequest{GameID: "g1", Period: 2})
	require.NoError(t, err)

	next := time.Now().Add(time.Minute)
	require.NoError(t, store.MarkFailed(ctx, m.LocalID, errors.New("connection refused"), next))

	pending, err := store.ListPending(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Equal(t, "connection refused", pending[0].LastError)
	require.NotNil(t, pending[0].NextAttemptAt)
	assert.WithinDuration(t, next, *pending[0].NextAttemptAt, time.Millisecond)

	require.NoError(t, store.Remove(ctx, m.LocalID))
	pending, err = store.ListPending(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, pending)

	games, err := store.PendingGames(ctx)
	require.NoError(t, err)
	assert.Empty(t, games)
}

func TestMarkFailedWithoutRetryTime(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	m, err := store.Enqueue(ctx, "g1", MutationStat, game.ApplyRequest{GameID: "g1", PlayerID: "p1", TeamID: "home", StatType: stats.Made2, Period: 1})
	require.NoError(t, err)

	require.NoError(t, store.MarkFailed(ctx, m.LocalID, errors.New("server answered 503"), time.Now().Add(time.Hour)))
	require.NoError(t, store.MarkFailed(ctx, m.LocalID, errors.New("connection refused"), time.Time{}))

	pending, err := store.ListPending(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Attempts)
	assert.Equal(t, "connection refused", pending[0].LastError)
	assert.Nil(t, pending[0].NextAttemptAt, "a zero retry time clears any earlier backoff")
}

func TestDeadLetterAndRequeue(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	bad, err := store.Enqueue(ctx, "g1", MutationStatus, game.TransitionRequest{GameID: "g1", Status: game.StatusHalftime})
	require.NoError(t, err)
	later, err := store.Enqueue(ctx, "g1", MutationPeriod, game.PeriodRequest{GameID: "g1", Period: 3})
	require.NoError(t, err)

	require.NoError(t, store.DeadLetter(ctx, bad.LocalID, game.ErrInvalidTransition))

	pending, err := store.ListPending(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, later.LocalID, pending[0].LocalID)

	dead, err := store.ListDeadLetters(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, StateDead, dead[0].State)
	assert.Equal(t, "invalid status transition", dead[0].LastError)

	p, d, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, p)
	assert.Equal(t, 1, d)

	requeued, err := store.Requeue(ctx, bad.LocalID)
	require.NoError(t, err)
	assert.Equal(t, bad.MutationID, requeued.MutationID)
	assert.Greater(t, requeued.LocalID, later.LocalID, "requeued mutation goes to the back of the queue")
	assert.Zero(t, requeued.Attempts)

	pending, err = store.ListPending(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, later.LocalID, pending[0].LocalID)
	assert.Equal(t, requeued.LocalID, pending[1].LocalID)

	_, err = store.Requeue(ctx, bad.LocalID)
	assert.ErrorIs(t, err, game.ErrNotFound)
}

func TestQueueSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	m, err := store.Enqueue(ctx, "g1", MutationStat, game.ApplyRequest{GameID: "g1", PlayerID: "p1", TeamID: "home", StatType: stats.Assist, Period: 1})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	pending, err := store.ListPending(ctx, "g1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, m.MutationID, pending[0].MutationID)
}
