package client

import (
	"errors"
	"net/http"

	"github.com/mauv0809/courtside/internal/game"
)

// ErrUnreachable marks a request that never got an HTTP answer. It always
// comes wrapped together with game.ErrNetwork.
var ErrUnreachable = errors.New("server unreachable")

// APIClient talks JSON to the courtside server.
type APIClient struct {
	httpClient *http.Client
	BaseURL    string
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type applyResponse struct {
	Entry     *game.StatLogEntry `json:"entry"`
	Duplicate bool               `json:"duplicate"`
}

type undoBody struct {
	ClientMutationID string `json:"clientMutationId,omitempty"`
}
