package metrics

import (
	"path/filepath"
	"testing"

	"github.com/mauv0809/courtside/internal/database"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates a temporary file-backed SQLite database for testing.
func setupTestDB(t *testing.T) (MetricsStore, func()) {
	t.Helper()

	db, teardown, err := database.InitDB(filepath.Join(t.TempDir(), "metrics.db"), "", "")
	require.NoError(t, err)

	return New(db), teardown
}

func TestIncrementAndTotals(t *testing.T) {
	store, teardown := setupTestDB(t)
	defer teardown()

	// Nothing bumped yet reads as zero.
	totals, err := store.Totals()
	require.NoError(t, err)
	assert.Equal(t, Totals{}, totals)

	store.Increment(KeyStatsApplied)
	store.Increment(KeyStatsApplied)
	store.Increment(KeyGamesFinalized)

	applied, err := store.Get(KeyStatsApplied)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	undone, err := store.Get(KeyStatsUndone)
	require.NoError(t, err)
	assert.Zero(t, undone)

	totals, err = store.Totals()
	require.NoError(t, err)
	assert.Equal(t, Totals{StatsApplied: 2, GamesFinalized: 1}, totals)
}

func TestIncrementIgnoresUnknownKeys(t *testing.T) {
	store, teardown := setupTestDB(t)
	defer teardown()

	store.Increment("padel_matches")
	store.Increment(KeyStatsUndone)

	n, err := store.Get("padel_matches")
	require.NoError(t, err)
	assert.Zero(t, n)

	totals, err := store.Totals()
	require.NoError(t, err)
	assert.Equal(t, Totals{StatsUndone: 1}, totals)
}

func TestServiceRegistersOnCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := NewService(reg)

	svc.IncStatsApplied("PTS_3")
	svc.IncStatsApplied("PTS_3")
	svc.IncRejected("GAME_FINAL")
	svc.SetPendingMutations(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(svc.StatsApplied.WithLabelValues("PTS_3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.Rejected.WithLabelValues("GAME_FINAL")))
	assert.Equal(t, 4.0, testutil.ToFloat64(svc.PendingMutations))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
