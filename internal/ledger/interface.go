package ledger

import (
	"context"

	"github.com/mauv0809/courtside/internal/game"
)

// LedgerStore is the authoritative, transactional store of games, their
// stat ledger and the aggregates derived from it.
type LedgerStore interface {
	GetGame(ctx context.Context, gameID string) (*game.Game, error)
	GetSnapshot(ctx context.Context, gameID string, logLimit int) (*game.Snapshot, error)
	// ApplyStat records one stat event. When the request's client mutation
	// id was already applied the original entry is returned with duplicate
	// set and nothing changes.
	ApplyStat(ctx context.Context, req game.ApplyRequest) (entry *game.StatLogEntry, duplicate bool, err error)
	UndoStat(ctx context.Context, req game.UndoRequest) (*game.StatLogEntry, error)
	TransitionStatus(ctx context.Context, req game.TransitionRequest) (*game.Game, error)
	SetPeriod(ctx context.Context, req game.PeriodRequest) (*game.Game, error)
	GetStandings(ctx context.Context, eventID string) ([]game.EventTeamRecord, error)
	GetTeam(ctx context.Context, teamID string) (*game.Team, error)
}

// Roster writes the identity records the ledger reads. In production these
// belong to the roster service; the seeder and tests use it directly.
type Roster interface {
	UpsertTeam(ctx context.Context, team game.Team) error
	UpsertPlayer(ctx context.Context, player Player) error
	UpsertEvent(ctx context.Context, eventID, name string) error
	CreateGame(ctx context.Context, g NewGame) error
}
