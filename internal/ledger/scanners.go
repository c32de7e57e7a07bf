package ledger

import (
	"database/sql"
	"strings"
	"time"

	"github.com/mauv0809/courtside/internal/game"
	"github.com/mauv0809/courtside/internal/stats"
)

type scanner interface{ Scan(...any) error }

const gameColumns = `id, event_id, home_team_id, away_team_id, home_score, away_score, status, current_period, is_official, started_at, ended_at`

func scanGame(row scanner) (*game.Game, error) {
	var (
		g                  game.Game
		eventID            sql.NullString
		startedAt, endedAt sql.NullInt64
	)
	err := row.Scan(&g.ID, &eventID, &g.HomeTeamID, &g.AwayTeamID, &g.HomeScore, &g.AwayScore,
		&g.Status, &g.CurrentPeriod, &g.IsOfficial, &startedAt, &endedAt)
	if err != nil {
		return nil, err
	}
	g.EventID = eventID.String
	g.StartedAt = fromMillis(startedAt)
	g.EndedAt = fromMillis(endedAt)
	return &g, nil
}

const statLogColumns = `id, game_id, player_id, team_id, stat_type, value, period, created_at, is_undone, undone_at, client_mutation_id, undo_mutation_id`

type statLogRow struct {
	game.StatLogEntry
	undoMutationID string
}

func scanStatLog(row scanner) (*statLogRow, error) {
	var (
		r                  statLogRow
		createdAt          int64
		undoneAt           sql.NullInt64
		mutationID, undoID sql.NullString
	)
	err := row.Scan(&r.ID, &r.GameID, &r.PlayerID, &r.TeamID, &r.StatType, &r.Value, &r.Period,
		&createdAt, &r.IsUndone, &undoneAt, &mutationID, &undoID)
	if err != nil {
		return nil, err
	}
	r.CreatedAt = time.UnixMilli(createdAt).UTC()
	r.UndoneAt = fromMillis(undoneAt)
	r.ClientMutationID = mutationID.String
	r.undoMutationID = undoID.String
	return &r, nil
}

var playerStatsColumns = "game_id, player_id, team_id, " + strings.Join(stats.Columns, ", ")

func scanPlayerStats(row scanner) (*game.PlayerGameStats, error) {
	var ps game.PlayerGameStats
	dest := append([]any{&ps.GameID, &ps.PlayerID, &ps.TeamID}, ps.BoxScore.Pointers()...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &ps, nil
}

func fromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64).UTC()
	return &t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
