package processor

import (
	"time"

	"github.com/mauv0809/courtside/internal/dedupe"
	"github.com/mauv0809/courtside/internal/live"
	"github.com/mauv0809/courtside/internal/metrics"
	"github.com/mauv0809/courtside/internal/pubsub"
)

// Processor runs every scoring operation against the ledger and fans the
// committed result out to metrics, Pub/Sub and live subscribers.
type Processor struct {
	store    Store
	pubsub   pubsub.PubSubClient
	notifier Notifier
	metrics  metrics.Metrics
	counters metrics.MetricsStore
	dedupe   dedupe.Cache
	live     live.Broadcaster
	now      func() time.Time
}

// topScorers is how many players a final score notification lists.
const topScorers = 3
