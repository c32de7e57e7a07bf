package sync

import (
	"context"
	"time"

	"github.com/mauv0809/courtside/internal/client"
	"github.com/mauv0809/courtside/internal/game"
	"github.com/mauv0809/courtside/internal/localstore"
)

// Queue is the durable FIFO of mutations waiting for the server.
type Queue interface {
	Enqueue(ctx context.Context, gameID string, typ localstore.MutationType, payload any) (*localstore.PendingMutation, error)
	ListPending(ctx context.Context, gameID string) ([]localstore.PendingMutation, error)
	PendingGames(ctx context.Context) ([]string, error)
	Remove(ctx context.Context, localID int64) error
	MarkFailed(ctx context.Context, localID int64, cause error, nextAttempt time.Time) error
	DeadLetter(ctx context.Context, localID int64, cause error) error
	Counts(ctx context.Context) (pending, dead int, err error)
}

// Cache holds the last snapshot fetched for each game.
type Cache interface {
	Save(ctx context.Context, gameID string, snapshot *game.Snapshot) error
	Get(ctx context.Context, gameID string) (*localstore.CachedSnapshot, bool, error)
	Invalidate(ctx context.Context, gameID string) error
}

// API is the server the engine submits to.
type API = client.API

var (
	_ Queue = (*localstore.Store)(nil)
	_ Cache = (*localstore.Store)(nil)
)
