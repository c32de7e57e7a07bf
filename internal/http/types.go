package http

import (
	"net/http"

	"github.com/mauv0809/courtside/internal/config"
	"github.com/mauv0809/courtside/internal/live"
	"github.com/mauv0809/courtside/internal/metrics"
	"github.com/mauv0809/courtside/internal/notifier"
	"github.com/mauv0809/courtside/internal/processor"
	"github.com/mauv0809/courtside/internal/pubsub"
)

type Server struct {
	Counters       metrics.MetricsStore
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Notifier       notifier.Notifier
	Processor      *processor.Processor
	Hub            *live.Hub
	Router         *http.ServeMux
	pubsub         pubsub.PubSubClient
	handler        http.Handler
}
