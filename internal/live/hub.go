package live

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/mauv0809/courtside/internal/game"
	"github.com/mauv0809/courtside/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	sendBuffer = 64
)

// Broadcaster pushes game updates to whoever is watching a game.
type Broadcaster interface {
	Publish(gameID string, update ScoreUpdate)
}

// ScoreUpdate is the score line sent to live subscribers after every
// committed change.
type ScoreUpdate struct {
	GameID    string             `json:"gameId"`
	HomeScore int                `json:"homeScore"`
	AwayScore int                `json:"awayScore"`
	Status    game.Status        `json:"status"`
	Period    int                `json:"period"`
	LastEvent string             `json:"lastEvent"`
	StatLog   *game.StatLogEntry `json:"statLog,omitempty"`
}

// NewScoreUpdate builds the update for g after event.
func NewScoreUpdate(g *game.Game, event string, entry *game.StatLogEntry) ScoreUpdate {
	return ScoreUpdate{
		GameID:    g.ID,
		HomeScore: g.HomeScore,
		AwayScore: g.AwayScore,
		Status:    g.Status,
		Period:    g.CurrentPeriod,
		LastEvent: event,
		StatLog:   entry,
	}
}

type subscriber struct {
	hub    *Hub
	gameID string
	conn   *websocket.Conn
	send   chan []byte
}

// Hub fans updates out to websocket subscribers, grouped by game. A
// subscriber whose buffer is full is dropped instead of blocking writers.
type Hub struct {
	mu       sync.RWMutex
	games    map[string]map[*subscriber]struct{}
	upgrader websocket.Upgrader
	metrics  metrics.Metrics
}

var _ Broadcaster = (*Hub)(nil)

// NewHub creates a hub. allowedOrigins empty or containing "*" accepts any origin.
func NewHub(m metrics.Metrics, allowedOrigins []string) *Hub {
	h := &Hub{
		games:   make(map[string]map[*subscriber]struct{}),
		metrics: m,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// ServeWS upgrades the request and subscribes the connection to gameID.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, gameID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("WebSocket upgrade failed", "error", err, "gameID", gameID)
		return
	}
	sub := &subscriber{
		hub:    h,
		gameID: gameID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}
	h.add(sub)

	go sub.writePump()
	go sub.readPump()
}

// Publish sends update to every subscriber of gameID.
func (h *Hub) Publish(gameID string, update ScoreUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		log.Error("Failed to marshal live update", "error", err, "gameID", gameID)
		return
	}

	var slow []*subscriber
	h.mu.RLock()
	for sub := range h.games[gameID] {
		select {
		case sub.send <- data:
		default:
			slow = append(slow, sub)
		}
	}
	h.mu.RUnlock()

	for _, sub := range slow {
		log.Warn("Dropping slow live subscriber", "gameID", gameID)
		h.remove(sub)
	}
}

// Count returns the number of subscribers watching gameID.
func (h *Hub) Count(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.games[gameID])
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	var subs []*subscriber
	for _, set := range h.games {
		for sub := range set {
			subs = append(subs, sub)
		}
	}
	h.mu.Unlock()
	for _, sub := range subs {
		h.remove(sub)
	}
}

func (h *Hub) add(sub *subscriber) {
	h.mu.Lock()
	set, ok := h.games[sub.gameID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.games[sub.gameID] = set
	}
	set[sub] = struct{}{}
	total := h.totalLocked()
	h.mu.Unlock()

	h.metrics.SetLiveSubscribers(total)
	log.Debug("Live subscriber connected", "gameID", sub.gameID, "total", total)
}

// remove is safe to call more than once for the same subscriber.
func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	set, ok := h.games[sub.gameID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, ok := set[sub]; !ok {
		h.mu.Unlock()
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.games, sub.gameID)
	}
	close(sub.send)
	total := h.totalLocked()
	h.mu.Unlock()

	h.metrics.SetLiveSubscribers(total)
	log.Debug("Live subscriber disconnected", "gameID", sub.gameID, "total", total)
}

func (h *Hub) totalLocked() int {
	n := 0
	for _, set := range h.games {
		n += len(set)
	}
	return n
}

// readPump only exists to notice disconnects and answer pongs.
func (s *subscriber) readPump() {
	defer func() {
		s.hub.remove(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn("WebSocket read error", "error", err, "gameID", s.gameID)
			}
			return
		}
	}
}

func (s *subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
