package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mauv0809/courtside/internal/game"
)

// UpsertTeam inserts a team or renames an existing one. Win/loss counters
// are never overwritten.
func (s *store) UpsertTeam(ctx context.Context, team game.Team) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teams (id, name, wins, losses) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		team.ID, team.Name, team.Wins, team.Losses)
	if err != nil {
		return fmt.Errorf("failed to upsert team %s: %w", team.ID, err)
	}
	return nil
}

func (s *store) UpsertPlayer(ctx context.Context, player Player) error {
	jersey := sql.NullInt64{Int64: int64(player.JerseyNumber), Valid: player.JerseyNumber > 0}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (id, team_id, name, jersey_number) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET team_id = excluded.team_id, name = excluded.name, jersey_number = excluded.jersey_number`,
		player.ID, nullString(player.TeamID), player.Name, jersey)
	if err != nil {
		return fmt.Errorf("failed to upsert player %s: %w", player.ID, err)
	}
	return nil
}

func (s *store) UpsertEvent(ctx context.Context, eventID, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`, eventID, name)
	if err != nil {
		return fmt.Errorf("failed to upsert event %s: %w", eventID, err)
	}
	return nil
}

// CreateGame schedules a new game between two existing teams.
func (s *store) CreateGame(ctx context.Context, g NewGame) error {
	if g.HomeTeamID == g.AwayTeamID {
		return fmt.Errorf("home and away team are both %s: %w", g.HomeTeamID, game.ErrValidation)
	}
	var scheduledAt sql.NullInt64
	if !g.ScheduledAt.IsZero() {
		scheduledAt = sql.NullInt64{Int64: g.ScheduledAt.UnixMilli(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games (id, event_id, home_team_id, away_team_id, status, scheduled_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		g.ID, nullString(g.EventID), g.HomeTeamID, g.AwayTeamID, game.StatusScheduled, scheduledAt)
	if err != nil {
		return fmt.Errorf("failed to create game %s: %w", g.ID, err)
	}
	return nil
}
