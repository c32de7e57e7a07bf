package pubsub

import (
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/mauv0809/courtside/internal/game"
)

type client struct {
	client *pubsub.Client
}

// noopClient is used when no GCP project is configured. Messages are
// encoded, so marshal bugs still surface, and then dropped.
type noopClient struct{}

// EventType represents the type of event/message sent via pubsub. It doubles
// as the topic name.
type EventType string

const (
	EventStatApplied       EventType = "stat-applied"
	EventStatUndone        EventType = "stat-undone"
	EventGameStatusChanged EventType = "game-status-changed"
	EventGameFinalized     EventType = "game-finalized"
)

// GameEvent is the message body published for every accepted write.
type GameEvent struct {
	Type    EventType          `msgpack:"type"`
	GameID  string             `msgpack:"game_id"`
	Game    *game.Game         `msgpack:"game,omitempty"`
	StatLog *game.StatLogEntry `msgpack:"stat_log,omitempty"`
	DryRun  bool               `msgpack:"dry_run"`
	SentAt  time.Time          `msgpack:"sent_at"`
}
