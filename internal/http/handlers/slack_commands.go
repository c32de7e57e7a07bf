package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtside/internal/game"
	"github.com/mauv0809/courtside/internal/notifier"
	"github.com/mauv0809/courtside/internal/processor"
	"github.com/slack-go/slack"
)

// respondWithSlackMsg is a helper to format and write a Slack message as an HTTP response.
func respondWithSlackMsg(w http.ResponseWriter, msg slack.Message) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		log.Error("Failed to encode slack message to JSON", "error", err)
	}
}

func ephemeral(text string) slack.Message {
	return slack.Message{Msg: slack.Msg{ResponseType: slack.ResponseTypeEphemeral, Text: text}}
}

// StandingsCommandHandler answers `/standings <eventID>`.
func StandingsCommandHandler(proc *processor.Processor, notifier notifier.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cmd, err := slack.SlashCommandParse(r)
		if err != nil {
			http.Error(w, "Error parsing form", http.StatusBadRequest)
			return
		}
		eventID := strings.TrimSpace(cmd.Text)
		if eventID == "" {
			respondWithSlackMsg(w, ephemeral("Usage: /standings <event id>"))
			return
		}

		records, err := proc.Standings(r.Context(), eventID)
		if err != nil {
			if game.HTTPStatus(err) < http.StatusInternalServerError {
				respondWithSlackMsg(w, ephemeral("Unknown event "+eventID))
				return
			}
			http.Error(w, "Failed to get standings", http.StatusInternalServerError)
			log.Error("Failed to get standings", "error", err, "eventID", eventID)
			return
		}

		msg, err := notifier.FormatStandingsResponse(eventID, records)
		if err != nil {
			http.Error(w, "Failed to format standings", http.StatusInternalServerError)
			log.Error("Failed to format standings", "error", err)
			return
		}

		slackMsg, ok := msg.(slack.Message)
		if !ok {
			http.Error(w, "Invalid message format for Slack", http.StatusInternalServerError)
			log.Error("Failed to cast message to slack.Message")
			return
		}

		respondWithSlackMsg(w, slackMsg)
	}
}
