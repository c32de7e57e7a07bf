package metrics

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
)

// store keeps the league's lifetime counters in the metrics table.
// Prometheus counters reset on every deploy; these do not.
type store struct {
	db *sql.DB
}

// New creates a counter store over the server database.
func New(db *sql.DB) MetricsStore {
	return &store{db: db}
}

// Increment bumps one lifetime counter. Failures are logged and swallowed
// so a lost tick never fails a scoring request.
func (s *store) Increment(key string) {
	if !knownKey(key) {
		log.Warn("Ignoring unknown counter", "key", key)
		return
	}
	_, err := s.db.Exec(`
		INSERT INTO metrics (key, value) VALUES (?, 1)
		ON CONFLICT(key) DO UPDATE SET value = value + 1`, key)
	if err != nil {
		log.Error("Failed to increment counter", "error", err, "key", key)
		return
	}
	log.Debug("Incremented counter", "key", key)
}

// Get returns one counter. A counter that was never bumped reads as zero.
func (s *store) Get(key string) (int, error) {
	var value int
	err := s.db.QueryRow(`SELECT value FROM metrics WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter %s: %w", key, err)
	}
	return value, nil
}

// Totals reads every lifetime counter.
func (s *store) Totals() (Totals, error) {
	var t Totals
	for key, dst := range t.fields() {
		value, err := s.Get(key)
		if err != nil {
			return Totals{}, err
		}
		*dst = value
	}
	return t, nil
}
