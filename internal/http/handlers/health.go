package handlers

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtside/internal/metrics"
)

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status string          `json:"status"`
	Totals *metrics.Totals `json:"totals,omitempty"`
}

func HealthCheckHandler(counters metrics.MetricsStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		resp := HealthResponse{Status: "ok"}
		totals, err := counters.Totals()
		if err != nil {
			log.Error("Failed to read counters", "error", err)
		} else {
			resp.Totals = &totals
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
