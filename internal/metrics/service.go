package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	_ Metrics     = (*Service)(nil)
	_ SyncMetrics = (*Service)(nil)
)

// NewMetricsHandler returns an http.Handler for the given Gatherer.
// If no gatherer is provided, it uses the default one.
func NewMetricsHandler(gatherer ...prometheus.Gatherer) http.Handler {
	gath := prometheus.DefaultGatherer
	if len(gatherer) > 0 {
		gath = gatherer[0]
	}
	return promhttp.HandlerFor(gath, promhttp.HandlerOpts{})
}

// NewService creates and registers the Prometheus metrics.
// If no registerer is provided, it uses the default Prometheus registerer.
func NewService(registerer ...prometheus.Registerer) *Service {
	reg := prometheus.DefaultRegisterer
	if len(registerer) > 0 {
		reg = registerer[0]
	}

	s := &Service{
		StatsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtside_stats_applied_total",
			Help: "The total number of stat events applied, by stat type.",
		}, []string{"stat_type"}),
		StatsUndone: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtside_stats_undone_total",
			Help: "The total number of stat events undone.",
		}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtside_duplicate_submissions_total",
			Help: "The total number of replayed submissions answered from the ledger.",
		}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtside_rejected_requests_total",
			Help: "The total number of rejected writes, by error code.",
		}, []string{"code"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "courtside_status_transitions_total",
			Help: "The total number of game status transitions, by target status.",
		}, []string{"status"}),
		TxDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "courtside_transaction_duration_seconds",
			Help:    "The duration of ledger transactions.",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"op"}),
		SlackNotifSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtside_slack_notifications_sent_total",
			Help: "The total number of Slack notifications successfully sent.",
		}),
		SlackNotifFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtside_slack_notifications_failed_total",
			Help: "The total number of Slack notifications that failed to send.",
		}),
		LiveSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "courtside_live_subscribers",
			Help: "The number of connected live score subscribers.",
		}),
		StartupTimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "courtside_startup_duration_seconds",
			Help: "The duration of the application startup in seconds.",
		}),
		PendingMutations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "courtside_sync_pending_mutations",
			Help: "The number of mutations waiting in the local queue.",
		}),
		SyncDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtside_sync_delivered_total",
			Help: "The total number of queued mutations the server accepted.",
		}),
		SyncFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtside_sync_failed_total",
			Help: "The total number of delivery attempts that failed transiently.",
		}),
		DeadLettered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "courtside_sync_dead_lettered_total",
			Help: "The total number of mutations moved to the dead-letter list.",
		}),
	}

	reg.MustRegister(
		s.StatsApplied,
		s.StatsUndone,
		s.Duplicates,
		s.Rejected,
		s.Transitions,
		s.TxDuration,
		s.SlackNotifSent,
		s.SlackNotifFailed,
		s.LiveSubscribers,
		s.StartupTimeSeconds,
		s.PendingMutations,
		s.SyncDelivered,
		s.SyncFailed,
		s.DeadLettered,
	)

	return s
}

func (s *Service) IncStatsApplied(statType string) {
	s.StatsApplied.WithLabelValues(statType).Inc()
}

func (s *Service) IncStatsUndone() {
	s.StatsUndone.Inc()
}

func (s *Service) IncDuplicates() {
	s.Duplicates.Inc()
}

func (s *Service) IncRejected(code string) {
	s.Rejected.WithLabelValues(code).Inc()
}

func (s *Service) IncTransitions(status string) {
	s.Transitions.WithLabelValues(status).Inc()
}

func (s *Service) ObserveTxDuration(op string, duration float64) {
	s.TxDuration.WithLabelValues(op).Observe(duration)
}

func (s *Service) IncSlackNotifSent() {
	s.SlackNotifSent.Inc()
}

func (s *Service) IncSlackNotifFailed() {
	s.SlackNotifFailed.Inc()
}

func (s *Service) SetLiveSubscribers(n int) {
	s.LiveSubscribers.Set(float64(n))
}

func (s *Service) SetStartupTime(duration float64) {
	s.StartupTimeSeconds.Set(duration)
}

func (s *Service) SetPendingMutations(n int) {
	s.PendingMutations.Set(float64(n))
}

func (s *Service) IncSyncDelivered() {
	s.SyncDelivered.Inc()
}

func (s *Service) IncSyncFailed() {
	s.SyncFailed.Inc()
}

func (s *Service) IncDeadLettered() {
	s.DeadLettered.Inc()
}
