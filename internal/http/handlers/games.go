package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtside/internal/game"
	"github.com/mauv0809/courtside/internal/live"
	"github.com/mauv0809/courtside/internal/processor"
)

// ApplyResponse wraps the ledger entry with whether it was a replay.
type ApplyResponse struct {
	Entry     *game.StatLogEntry `json:"entry"`
	Duplicate bool               `json:"duplicate"`
}

func SnapshotHandler(proc *processor.Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := r.PathValue("gameID")
		logLimit := 0
		if v := r.URL.Query().Get("logs"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, fmt.Errorf("logs must be a non-negative integer: %w", game.ErrValidation))
				return
			}
			logLimit = n
		}
		snapshot, err := proc.Snapshot(r.Context(), gameID, logLimit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	}
}

func ApplyStatHandler(proc *processor.Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req game.ApplyRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		req.GameID = r.PathValue("gameID")
		req.ClientMutationID = mutationID(r, req.ClientMutationID)

		entry, duplicate, err := proc.Apply(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		status := http.StatusCreated
		if duplicate {
			status = http.StatusOK
		}
		writeJSON(w, status, ApplyResponse{Entry: entry, Duplicate: duplicate})
	}
}

func UndoStatHandler(proc *processor.Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statLogID, err := strconv.ParseInt(r.PathValue("statLogID"), 10, 64)
		if err != nil {
			writeError(w, fmt.Errorf("stat log id %q: %w", r.PathValue("statLogID"), game.ErrValidation))
			return
		}
		var body struct {
			ClientMutationID string `json:"clientMutationId"`
		}
		if r.ContentLength != 0 {
			if err := decodeJSON(r, &body); err != nil {
				writeError(w, err)
				return
			}
		}
		req := game.UndoRequest{
			GameID:           r.PathValue("gameID"),
			StatLogID:        statLogID,
			ClientMutationID: mutationID(r, body.ClientMutationID),
		}
		entry, err := proc.Undo(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

func TransitionHandler(proc *processor.Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req game.TransitionRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		req.GameID = r.PathValue("gameID")
		g, err := proc.Transition(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

func PeriodHandler(proc *processor.Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req game.PeriodRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		req.GameID = r.PathValue("gameID")
		g, err := proc.SetPeriod(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

func StandingsHandler(proc *processor.Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := proc.Standings(r.Context(), r.PathValue("eventID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

// LiveHandler subscribes a websocket to one game's score updates.
func LiveHandler(proc *processor.Processor, hub *live.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		gameID := r.PathValue("gameID")
		// Refuse unknown games before upgrading.
		if _, err := proc.Snapshot(r.Context(), gameID, 1); err != nil {
			writeError(w, err)
			return
		}
		log.Debug("Live subscription requested", "gameID", gameID)
		hub.ServeWS(w, r, gameID)
	}
}
