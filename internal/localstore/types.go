package localstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mauv0809/courtside/internal/game"
	"github.com/vmihailenco/msgpack/v5"
)

// MutationType says which server operation a queued mutation replays.
type MutationType string

const (
	MutationStat   MutationType = "stat"
	MutationUndo   MutationType = "undo"
	MutationStatus MutationType = "status"
	MutationPeriod MutationType = "period"
)

func (t MutationType) Valid() bool {
	switch t {
	case MutationStat, MutationUndo, MutationStatus, MutationPeriod:
		return true
	}
	return false
}

// State of a queued mutation.
type State string

const (
	StatePending State = "pending"
	StateDead    State = "dead"
)

// Store is the on-device database: a snapshot cache and a durable FIFO of
// mutations waiting to reach the server.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// PendingMutation is one queued write. Payload is the msgpack encoding of
// the request matching Type.
type PendingMutation struct {
	LocalID       int64
	GameID        string
	MutationID    string
	Type          MutationType
	Payload       []byte
	CreatedAt     time.Time
	Attempts      int
	NextAttemptAt *time.Time
	LastError     string
	State         State
}

// Decode unpacks the payload into v.
func (m *PendingMutation) Decode(v any) error {
	if err := msgpack.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decode %s mutation %d: %w", m.Type, m.LocalID, err)
	}
	return nil
}

// CachedSnapshot is the last snapshot fetched from the server. Stale is set
// once a local mutation for the game has been synced since the fetch.
type CachedSnapshot struct {
	Snapshot  game.Snapshot
	FetchedAt time.Time
	Stale     bool
}
