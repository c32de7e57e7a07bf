package live

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mauv0809/courtside/internal/game"
	"github.com/mauv0809/courtside/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHub(t *testing.T, origins ...string) (*Hub, *metrics.Mock, *httptest.Server) {
	t.Helper()
	m := metrics.NewMock()
	hub := NewHub(m, origins)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, r.URL.Query().Get("game"))
	}))
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, m, srv
}

func dial(t *testing.T, srv *httptest.Server, gameID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?game=" + gameID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPublishReachesOnlyThatGame(t *testing.T) {
	hub, m, srv := setupHub(t)

	g1 := dial(t, srv, "g1")
	g2 := dial(t, srv, "g2")
	require.Eventually(t, func() bool { return hub.Count("g1") == 1 && hub.Count("g2") == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2, m.LiveSubscribers())

	g := &game.Game{ID: "g1", HomeScore: 13, AwayScore: 9, Status: game.StatusInProgress, CurrentPeriod: 2}
	hub.Publish("g1", NewScoreUpdate(g, "stat-applied", nil))

	g1.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := g1.ReadMessage()
	require.NoError(t, err)
	var got ScoreUpdate
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, ScoreUpdate{GameID: "g1", HomeScore: 13, AwayScore: 9, Status: game.StatusInProgress, Period: 2, LastEvent: "stat-applied"}, got)

	g2.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err = g2.ReadMessage()
	assert.Error(t, err, "g2 subscriber must not receive g1 updates")
}

func TestDisconnectUnsubscribes(t *testing.T) {
	hub, m, srv := setupHub(t)

	conn := dial(t, srv, "g1")
	require.Eventually(t, func() bool { return hub.Count("g1") == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Count("g1") == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, m.LiveSubscribers())

	// Publishing to a game nobody watches is a no-op.
	hub.Publish("g1", ScoreUpdate{GameID: "g1", LastEvent: "stat-undone"})
}

func TestOriginCheck(t *testing.T) {
	_, _, srv := setupHub(t, "https://scores.example.com")
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?game=g1"

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header.Set("Origin", "https://scores.example.com")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}
