package ledger

import (
	"context"
	"database/sql"
	"time"
)

// store handles all database operations for the ledger.
type store struct {
	db  *sql.DB
	now func() time.Time
}

// Player is a roster record as seen by the ledger.
type Player struct {
	ID           string
	TeamID       string
	Name         string
	JerseyNumber int
}

// NewGame describes a game to schedule.
type NewGame struct {
	ID          string
	EventID     string
	HomeTeamID  string
	AwayTeamID  string
	ScheduledAt time.Time
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
