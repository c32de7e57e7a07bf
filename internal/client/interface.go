package client

import (
	"context"

	"github.com/mauv0809/courtside/internal/game"
)

// API is the scorekeeper-side view of the courtside server.
type API interface {
	FetchSnapshot(ctx context.Context, gameID string, logLimit int) (*game.Snapshot, error)
	ApplyStat(ctx context.Context, req game.ApplyRequest) (*game.StatLogEntry, bool, error)
	UndoStat(ctx context.Context, req game.UndoRequest) (*game.StatLogEntry, error)
	TransitionStatus(ctx context.Context, req game.TransitionRequest) (*game.Game, error)
	SetPeriod(ctx context.Context, req game.PeriodRequest) (*game.Game, error)
	Ping(ctx context.Context) error
}
