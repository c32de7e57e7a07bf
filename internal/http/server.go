package http

import (
	"net/http"

	"github.com/go-chi/cors"
	"github.com/mauv0809/courtside/internal/config"
	"github.com/mauv0809/courtside/internal/http/handlers"
	"github.com/mauv0809/courtside/internal/live"
	"github.com/mauv0809/courtside/internal/metrics"
	"github.com/mauv0809/courtside/internal/notifier"
	"github.com/mauv0809/courtside/internal/processor"
	"github.com/mauv0809/courtside/internal/pubsub"
)

func NewServer(counters metrics.MetricsStore, metricsSvc metrics.Metrics, metricsHandler http.Handler, cfg config.Config, notifier notifier.Notifier, processor *processor.Processor, hub *live.Hub, pubsub pubsub.PubSubClient) *Server {
	server := &Server{
		Counters:       counters,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Notifier:       notifier,
		Processor:      processor,
		Hub:            hub,
		Router:         http.NewServeMux(),
		pubsub:         pubsub,
	}

	server.routes()
	server.handler = corsMiddleware(cfg.CORSOrigins)(server.Router)
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// e.g. Chain(s.MyHandler(), paramsMiddleware, authMiddleware)
	s.Router.Handle("GET /metrics", s.MetricsHandler)
	s.Router.Handle("GET /health", Chain(handlers.HealthCheckHandler(s.Counters), paramsMiddleware))

	s.Router.Handle("GET /games/{gameID}/snapshot", Chain(handlers.SnapshotHandler(s.Processor), paramsMiddleware))
	s.Router.Handle("POST /games/{gameID}/stats", Chain(handlers.ApplyStatHandler(s.Processor), paramsMiddleware))
	s.Router.Handle("POST /games/{gameID}/stats/{statLogID}/undo", Chain(handlers.UndoStatHandler(s.Processor), paramsMiddleware))
	s.Router.Handle("POST /games/{gameID}/status", Chain(handlers.TransitionHandler(s.Processor), paramsMiddleware))
	s.Router.Handle("PUT /games/{gameID}/period", Chain(handlers.PeriodHandler(s.Processor), paramsMiddleware))
	s.Router.Handle("GET /events/{eventID}/standings", Chain(handlers.StandingsHandler(s.Processor), paramsMiddleware))
	s.Router.Handle("GET /games/{gameID}/live", handlers.LiveHandler(s.Processor, s.Hub))

	s.Router.Handle("POST /pubsub/game-finalized", Chain(handlers.GameFinalizedHandler(s.Processor, s.pubsub), paramsMiddleware))
	s.Router.Handle("POST /slack/command/standings", Chain(handlers.StandingsCommandHandler(s.Processor, s.Notifier), paramsMiddleware, slackVerifyMiddleware(s.Cfg.Slack.SigningSecret)))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func corsMiddleware(origins []string) Middleware {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handlers.IdempotencyHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
