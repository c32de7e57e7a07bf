package handlers

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtside/internal/processor"
	"github.com/mauv0809/courtside/internal/pubsub"
)

// pushEnvelope is the body Pub/Sub push subscriptions deliver.
type pushEnvelope struct {
	Subscription string `json:"subscription"`
	Message      struct {
		Data       string            `json:"data"`
		Attributes map[string]string `json:"attributes"`
	} `json:"message"`
}

// GameFinalizedHandler consumes game-finalized events and posts the final
// score. A non-2xx answer makes Pub/Sub redeliver.
func GameFinalizedHandler(proc *processor.Processor, pubsubClient pubsub.PubSubClient) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("Failed to read request body", "error", err)
			http.Error(w, "Failed to read request body", http.StatusInternalServerError)
			return
		}
		log.Debug("Received game finalized message", "body", string(bodyBytes))

		var envelope pushEnvelope
		if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
			log.Error("Failed to unmarshal wrapper JSON", "error", err)
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		rawData, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
		if err != nil {
			log.Error("Failed to decode base64 data", "error", err)
			http.Error(w, "Invalid base64 data", http.StatusBadRequest)
			return
		}

		var event pubsub.GameEvent
		if err := pubsubClient.ProcessMessage(rawData, &event); err != nil {
			http.Error(w, "Invalid message payload", http.StatusBadRequest)
			return
		}
		if event.Type != pubsub.EventGameFinalized || event.GameID == "" {
			log.Warn("Ignoring unexpected event on game-finalized endpoint", "type", event.Type, "gameID", event.GameID)
			w.Write([]byte("IGNORED"))
			return
		}

		isDryRun := IsDryRunFromContext(r) || event.DryRun
		if err := proc.NotifyFinal(r.Context(), event.GameID, isDryRun); err != nil {
			log.Error("Failed to notify final score", "error", err, "gameID", event.GameID)
			http.Error(w, "Failed to notify final score", http.StatusInternalServerError)
			return
		}
		w.Write([]byte("OK"))
	}
}
