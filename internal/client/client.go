package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtside/internal/game"
)

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) *APIClient {
	return &APIClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		BaseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Ensure APIClient implements the API interface.
var _ API = (*APIClient)(nil)

func (c *APIClient) FetchSnapshot(ctx context.Context, gameID string, logLimit int) (*game.Snapshot, error) {
	path := "/games/" + url.PathEscape(gameID) + "/snapshot"
	if logLimit > 0 {
		path += "?logs=" + strconv.Itoa(logLimit)
	}
	var snapshot game.Snapshot
	if _, err := c.do(ctx, http.MethodGet, path, nil, "", &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ApplyStat submits one stat event. The bool reports whether the server
// had already recorded this mutation.
func (c *APIClient) ApplyStat(ctx context.Context, req game.ApplyRequest) (*game.StatLogEntry, bool, error) {
	var resp applyResponse
	path := "/games/" + url.PathEscape(req.GameID) + "/stats"
	if _, err := c.do(ctx, http.MethodPost, path, req, req.ClientMutationID, &resp); err != nil {
		return nil, false, err
	}
	return resp.Entry, resp.Duplicate, nil
}

func (c *APIClient) UndoStat(ctx context.Context, req game.UndoRequest) (*game.StatLogEntry, error) {
	var entry game.StatLogEntry
	path := fmt.Sprintf("/games/%s/stats/%d/undo", url.PathEscape(req.GameID), req.StatLogID)
	if _, err := c.do(ctx, http.MethodPost, path, undoBody{ClientMutationID: req.ClientMutationID}, req.ClientMutationID, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *APIClient) TransitionStatus(ctx context.Context, req game.TransitionRequest) (*game.Game, error) {
	var g game.Game
	if _, err := c.do(ctx, http.MethodPost, "/games/"+url.PathEscape(req.GameID)+"/status", req, "", &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *APIClient) SetPeriod(ctx context.Context, req game.PeriodRequest) (*game.Game, error) {
	var g game.Game
	if _, err := c.do(ctx, http.MethodPut, "/games/"+url.PathEscape(req.GameID)+"/period", req, "", &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Ping checks that the server is reachable and healthy.
func (c *APIClient) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health", nil, "", nil)
	return err
}

// do sends one request and decodes a 2xx body into out. Errors carry a
// domain sentinel: ErrNetwork when the call should be retried, the
// matching permanent sentinel otherwise.
func (c *APIClient) do(ctx context.Context, method, path string, body any, idempotencyKey string, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("build %s %s: %v: %w", method, path, err, game.ErrValidation)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	log.Debug("Calling courtside server", "method", method, "path", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %v: %w: %w", method, path, err, ErrUnreachable, game.ErrNetwork)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read %s %s: %v: %w", method, path, err, game.ErrNetwork)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, responseError(method, path, resp.StatusCode, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %v: %w", method, path, err, game.ErrNetwork)
		}
	}
	return resp.StatusCode, nil
}

func responseError(method, path string, status int, data []byte) error {
	var body errorBody
	_ = json.Unmarshal(data, &body)
	msg := body.Error
	if msg == "" {
		msg = strings.TrimSpace(string(data))
	}
	if status >= http.StatusInternalServerError {
		return fmt.Errorf("%s %s: server answered %d: %s: %w", method, path, status, msg, game.ErrNetwork)
	}
	sentinel := game.FromCode(body.Code)
	if sentinel == nil {
		sentinel = game.FromHTTPStatus(status)
	}
	return fmt.Errorf("%s %s: %s: %w", method, path, msg, sentinel)
}
