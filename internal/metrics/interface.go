package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncStatsApplied(statType string)
	IncStatsUndone()
	IncDuplicates()
	IncRejected(code string)
	IncTransitions(status string)
	ObserveTxDuration(op string, duration float64)
	IncSlackNotifSent()
	IncSlackNotifFailed()
	SetLiveSubscribers(n int)
	SetStartupTime(duration float64)
}

// SyncMetrics is what the scorekeeper sync engine reports.
type SyncMetrics interface {
	SetPendingMutations(n int)
	IncSyncDelivered()
	IncSyncFailed()
	IncDeadLettered()
}

// MetricsStore keeps the league's lifetime counters across restarts.
type MetricsStore interface {
	Increment(key string)
	Get(key string) (int, error)
	Totals() (Totals, error)
}
