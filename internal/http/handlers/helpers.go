package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtside/internal/game"
)

// ContextKey is a custom type to avoid key collisions in context.
type ContextKey string

const (
	DryRunKey ContextKey = "dryRun"

	// IdempotencyHeader may carry the client mutation id instead of the body.
	IdempotencyHeader = "Idempotency-Key"

	maxBodyBytes = 1 << 20
)

// IsDryRunFromContext is a helper to safely retrieve the dry_run flag from the request context.
func IsDryRunFromContext(r *http.Request) bool {
	dryRun, ok := r.Context().Value(DryRunKey).(bool)
	return ok && dryRun
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}

// writeError maps a domain error to its status code. Server faults are
// logged and their detail is not leaked to the caller.
func writeError(w http.ResponseWriter, err error) {
	status := game.HTTPStatus(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, ErrorBody{Error: msg, Code: game.Code(err)})
}

func decodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", game.ErrValidation)
	}
	if err := json.Unmarshal(body, v); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return fmt.Errorf("malformed JSON at offset %d: %w", syntaxErr.Offset, game.ErrValidation)
		}
		return fmt.Errorf("invalid body: %v: %w", err, game.ErrValidation)
	}
	return nil
}

// mutationID prefers the body value and falls back to the Idempotency-Key header.
func mutationID(r *http.Request, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return r.Header.Get(IdempotencyHeader)
}
