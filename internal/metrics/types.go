package metrics

import "github.com/prometheus/client_golang/prometheus"

// Service holds all the Prometheus metrics for the application.
// By defining them all in one place, we ensure consistency in naming and labeling.
type Service struct {
	StatsApplied       *prometheus.CounterVec
	StatsUndone        prometheus.Counter
	Duplicates         prometheus.Counter
	Rejected           *prometheus.CounterVec
	Transitions        *prometheus.CounterVec
	TxDuration         *prometheus.HistogramVec
	SlackNotifSent     prometheus.Counter
	SlackNotifFailed   prometheus.Counter
	LiveSubscribers    prometheus.Gauge
	StartupTimeSeconds prometheus.Gauge

	PendingMutations prometheus.Gauge
	SyncDelivered    prometheus.Counter
	SyncFailed       prometheus.Counter
	DeadLettered     prometheus.Counter
}

// Durable counter keys.
const (
	KeyStatsApplied   = "stats_applied"
	KeyStatsUndone    = "stats_undone"
	KeyGamesFinalized = "games_finalized"
)

// Totals are the lifetime counters reported by the health endpoint.
type Totals struct {
	StatsApplied   int `json:"statsApplied"`
	StatsUndone    int `json:"statsUndone"`
	GamesFinalized int `json:"gamesFinalized"`
}

func (t *Totals) fields() map[string]*int {
	return map[string]*int{
		KeyStatsApplied:   &t.StatsApplied,
		KeyStatsUndone:    &t.StatsUndone,
		KeyGamesFinalized: &t.GamesFinalized,
	}
}

func knownKey(key string) bool {
	_, ok := (&Totals{}).fields()[key]
	return ok
}
