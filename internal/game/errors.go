package game

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation marks malformed requests. Never retried.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a missing game, player or ledger entry. Never retried.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyUndone is returned when undoing an entry a second time. It
	// also matches ErrNotFound.
	ErrAlreadyUndone = &wrapped{msg: "stat log entry already undone", kind: ErrNotFound}
	// ErrGameFinal rejects writes against a finalized game.
	ErrGameFinal = errors.New("game is final")
	// ErrInvalidTransition rejects a status change the state machine forbids.
	// It also matches ErrValidation.
	ErrInvalidTransition = &wrapped{msg: "invalid status transition", kind: ErrValidation}
	// ErrNegativeAggregate rejects an undo that would take a total below zero.
	ErrNegativeAggregate = errors.New("aggregate would become negative")
	// ErrTransaction marks a storage failure; the transaction was rolled back.
	ErrTransaction = errors.New("transaction failed")
	// ErrNetwork marks a submission that did not reach the server or got a
	// server fault back. The mutation stays queued.
	ErrNetwork = errors.New("network error")
)

type wrapped struct {
	msg  string
	kind error
}

func (w *wrapped) Error() string { return w.msg }
func (w *wrapped) Unwrap() error { return w.kind }

// IsPermanent reports whether retrying err can never succeed.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrGameFinal) ||
		errors.Is(err, ErrNegativeAggregate)
}

// HTTPStatus maps an error to the status code the API answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrGameFinal), errors.Is(err, ErrNegativeAggregate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// FromHTTPStatus is the inverse of HTTPStatus for the client side. Unknown
// and 5xx codes map to ErrNetwork so the caller retries later.
func FromHTTPStatus(code int) error {
	switch code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrValidation
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrGameFinal
	}
	if code >= 200 && code < 300 {
		return nil
	}
	return ErrNetwork
}

var codes = []struct {
	code string
	err  error
}{
	{"ALREADY_UNDONE", ErrAlreadyUndone},
	{"INVALID_TRANSITION", ErrInvalidTransition},
	{"VALIDATION", ErrValidation},
	{"NOT_FOUND", ErrNotFound},
	{"GAME_FINAL", ErrGameFinal},
	{"NEGATIVE_AGGREGATE", ErrNegativeAggregate},
	{"TRANSACTION", ErrTransaction},
}

// Code returns the machine-readable code sent in API error bodies.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "INTERNAL"
}

// FromCode maps an API error code back to its sentinel. Unknown codes give nil.
func FromCode(code string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	return nil
}
