package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtside/internal/game"
	"github.com/mauv0809/courtside/internal/stats"
)

var (
	_ LedgerStore = (*store)(nil)
	_ Roster      = (*store)(nil)
)

// Store is the SQL-backed ledger. It satisfies both LedgerStore and Roster.
type Store interface {
	LedgerStore
	Roster
}

// New creates a new ledger store on an initialized database.
func New(db *sql.DB) Store {
	return &store{
		db:  db,
		now: time.Now,
	}
}

func txErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, game.ErrTransaction, err)
}

// GetGame returns one game.
func (s *store) GetGame(ctx context.Context, gameID string) (*game.Game, error) {
	return s.getGame(ctx, s.db, gameID)
}

func (s *store) getGame(ctx context.Context, q queryer, gameID string) (*game.Game, error) {
	g, err := scanGame(q.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = ?`, gameID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %s: %w", gameID, game.ErrNotFound)
	}
	if err != nil {
		return nil, txErr("load game", err)
	}
	return g, nil
}

// GetSnapshot reads the game, every aggregate row and the newest logLimit
// ledger entries inside one transaction. A logLimit of zero or less returns
// the whole ledger.
func (s *store) GetSnapshot(ctx context.Context, gameID string, logLimit int) (*game.Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, txErr("begin snapshot", err)
	}
	defer tx.Rollback()

	g, err := s.getGame(ctx, tx, gameID)
	if err != nil {
		return nil, err
	}
	snapshot := &game.Snapshot{
		Game:     *g,
		Stats:    []game.PlayerGameStats{},
		StatLogs: []game.StatLogEntry{},
	}

	rows, err := tx.QueryContext(ctx, `SELECT `+playerStatsColumns+` FROM player_game_stats WHERE game_id = ? ORDER BY team_id, player_id`, gameID)
	if err != nil {
		return nil, txErr("load player stats", err)
	}
	for rows.Next() {
		ps, err := scanPlayerStats(rows)
		if err != nil {
			rows.Close()
			return nil, txErr("scan player stats", err)
		}
		snapshot.Stats = append(snapshot.Stats, *ps)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, txErr("load player stats", err)
	}

	if logLimit <= 0 {
		logLimit = -1
	}
	rows, err = tx.QueryContext(ctx, `SELECT `+statLogColumns+` FROM stat_logs WHERE game_id = ? ORDER BY id DESC LIMIT ?`, gameID, logLimit)
	if err != nil {
		return nil, txErr("load stat logs", err)
	}
	defer rows.Close()
	for rows.Next() {
		r, err := scanStatLog(rows)
		if err != nil {
			return nil, txErr("scan stat log", err)
		}
		snapshot.StatLogs = append(snapshot.StatLogs, r.StatLogEntry)
	}
	if err := rows.Err(); err != nil {
		return nil, txErr("load stat logs", err)
	}
	return snapshot, nil
}

// ApplyStat increments the player's aggregate row, the scoring side of the
// game and appends the ledger entry, all in one transaction.
func (s *store) ApplyStat(ctx context.Context, req game.ApplyRequest) (*game.StatLogEntry, bool, error) {
	delta, ok := stats.Lookup(req.StatType)
	if !ok {
		return nil, false, fmt.Errorf("stat type %q: %w", req.StatType, game.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, txErr("begin apply", err)
	}
	defer tx.Rollback()

	if req.ClientMutationID != "" {
		existing, err := scanStatLog(tx.QueryRowContext(ctx, `SELECT `+statLogColumns+` FROM stat_logs WHERE client_mutation_id = ?`, req.ClientMutationID))
		switch {
		case err == nil:
			if existing.GameID != req.GameID {
				return nil, false, fmt.Errorf("mutation %s belongs to game %s: %w", req.ClientMutationID, existing.GameID, game.ErrValidation)
			}
			log.Info("Duplicate stat submission ignored", "gameID", req.GameID, "mutationID", req.ClientMutationID, "statLogID", existing.ID)
			return &existing.StatLogEntry, true, nil
		case !errors.Is(err, sql.ErrNoRows):
			return nil, false, txErr("check mutation id", err)
		}
	}

	g, err := s.getGame(ctx, tx, req.GameID)
	if err != nil {
		return nil, false, err
	}
	if g.Status == game.StatusFinal {
		return nil, false, fmt.Errorf("game %s: %w", g.ID, game.ErrGameFinal)
	}
	if req.TeamID != g.HomeTeamID && req.TeamID != g.AwayTeamID {
		return nil, false, fmt.Errorf("team %s does not play in game %s: %w", req.TeamID, g.ID, game.ErrValidation)
	}
	var rosterTeam sql.NullString
	err = tx.QueryRowContext(ctx, `SELECT team_id FROM players WHERE id = ?`, req.PlayerID).Scan(&rosterTeam)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("player %s: %w", req.PlayerID, game.ErrNotFound)
	}
	if err != nil {
		return nil, false, txErr("load player", err)
	}
	// Points always go to the player's own side.
	if rosterTeam.Valid && rosterTeam.String != req.TeamID {
		return nil, false, fmt.Errorf("player %s plays for %s, not %s: %w", req.PlayerID, rosterTeam.String, req.TeamID, game.ErrValidation)
	}

	current, err := s.getPlayerStats(ctx, tx, req.GameID, req.PlayerID)
	if err != nil {
		return nil, false, err
	}
	current.TeamID = req.TeamID
	current.BoxScore = current.BoxScore.Add(delta.Fields, 1)
	if err := s.putPlayerStats(ctx, tx, current); err != nil {
		return nil, false, err
	}

	if delta.Points > 0 {
		if err := s.addScore(ctx, tx, g, req.TeamID, delta.Points); err != nil {
			return nil, false, err
		}
	}

	now := s.now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO stat_logs (game_id, player_id, team_id, stat_type, value, period, created_at, is_undone, client_mutation_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		req.GameID, req.PlayerID, req.TeamID, req.StatType, delta.Points, req.Period, now.UnixMilli(), nullString(req.ClientMutationID))
	if err != nil {
		return nil, false, txErr("insert stat log", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, txErr("insert stat log", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, txErr("commit apply", err)
	}

	entry := &game.StatLogEntry{
		ID:               id,
		GameID:           req.GameID,
		PlayerID:         req.PlayerID,
		TeamID:           req.TeamID,
		StatType:         req.StatType,
		Value:            delta.Points,
		Period:           req.Period,
		CreatedAt:        time.UnixMilli(now.UnixMilli()).UTC(),
		ClientMutationID: req.ClientMutationID,
	}
	log.Debug("Applied stat", "gameID", req.GameID, "playerID", req.PlayerID, "statType", req.StatType, "statLogID", id)
	return entry, false, nil
}

// UndoStat marks a ledger entry undone and subtracts its exact delta from
// the aggregates, all in one transaction. Undoing twice fails with
// ErrAlreadyUndone unless the retry carries the mutation id that did the
// original undo.
func (s *store) UndoStat(ctx context.Context, req game.UndoRequest) (*game.StatLogEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, txErr("begin undo", err)
	}
	defer tx.Rollback()

	r, err := scanStatLog(tx.QueryRowContext(ctx, `SELECT `+statLogColumns+` FROM stat_logs WHERE id = ?`, req.StatLogID))
	if errors.Is(err, sql.ErrNoRows) || (err == nil && r.GameID != req.GameID) {
		return nil, fmt.Errorf("stat log %d in game %s: %w", req.StatLogID, req.GameID, game.ErrNotFound)
	}
	if err != nil {
		return nil, txErr("load stat log", err)
	}
	if r.IsUndone {
		if req.ClientMutationID != "" && r.undoMutationID == req.ClientMutationID {
			log.Info("Duplicate undo submission ignored", "gameID", req.GameID, "statLogID", r.ID)
			return &r.StatLogEntry, nil
		}
		return nil, fmt.Errorf("stat log %d: %w", r.ID, game.ErrAlreadyUndone)
	}

	g, err := s.getGame(ctx, tx, r.GameID)
	if err != nil {
		return nil, err
	}
	if g.Status == game.StatusFinal {
		return nil, fmt.Errorf("game %s: %w", g.ID, game.ErrGameFinal)
	}

	delta, ok := stats.Lookup(r.StatType)
	if !ok {
		return nil, fmt.Errorf("stored stat type %q: %w", r.StatType, game.ErrValidation)
	}
	current, err := s.getPlayerStats(ctx, tx, r.GameID, r.PlayerID)
	if err != nil {
		return nil, err
	}
	current.BoxScore = current.BoxScore.Add(delta.Fields, -1)
	if neg := current.BoxScore.Negative(); len(neg) > 0 {
		return nil, fmt.Errorf("undo stat log %d drives %s below zero: %w", r.ID, strings.Join(neg, ", "), game.ErrNegativeAggregate)
	}
	if err := s.putPlayerStats(ctx, tx, current); err != nil {
		return nil, err
	}
	if delta.Points > 0 {
		if err := s.addScore(ctx, tx, g, r.TeamID, -delta.Points); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	res, err := tx.ExecContext(ctx, `UPDATE stat_logs SET is_undone = 1, undone_at = ?, undo_mutation_id = ? WHERE id = ? AND is_undone = 0`,
		now.UnixMilli(), nullString(req.ClientMutationID), r.ID)
	if err != nil {
		return nil, txErr("mark stat log undone", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return nil, fmt.Errorf("stat log %d: %w", r.ID, game.ErrAlreadyUndone)
	}
	if err := tx.Commit(); err != nil {
		return nil, txErr("commit undo", err)
	}

	entry := r.StatLogEntry
	entry.IsUndone = true
	undoneAt := time.UnixMilli(now.UnixMilli()).UTC()
	entry.UndoneAt = &undoneAt
	log.Debug("Undid stat", "gameID", r.GameID, "statLogID", r.ID, "statType", r.StatType)
	return &entry, nil
}

// addScore adds points (negative on undo) to the side teamID plays for.
func (s *store) addScore(ctx context.Context, tx *sql.Tx, g *game.Game, teamID string, points int) error {
	column, current := "away_score", g.AwayScore
	if g.IsHomeTeam(teamID) {
		column, current = "home_score", g.HomeScore
	}
	if current+points < 0 {
		return fmt.Errorf("%s of game %s would become %d: %w", column, g.ID, current+points, game.ErrNegativeAggregate)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE games SET `+column+` = `+column+` + ? WHERE id = ?`, points, g.ID); err != nil {
		return txErr("update score", err)
	}
	return nil
}

// getPlayerStats returns the aggregate row, zero-valued when it does not exist yet.
func (s *store) getPlayerStats(ctx context.Context, q queryer, gameID, playerID string) (*game.PlayerGameStats, error) {
	ps, err := scanPlayerStats(q.QueryRowContext(ctx, `SELECT `+playerStatsColumns+` FROM player_game_stats WHERE game_id = ? AND player_id = ?`, gameID, playerID))
	if errors.Is(err, sql.ErrNoRows) {
		return &game.PlayerGameStats{GameID: gameID, PlayerID: playerID}, nil
	}
	if err != nil {
		return nil, txErr("load player stats", err)
	}
	return ps, nil
}

func (s *store) putPlayerStats(ctx context.Context, tx *sql.Tx, ps *game.PlayerGameStats) error {
	updates := make([]string, len(stats.Columns))
	for i, col := range stats.Columns {
		updates[i] = col + " = excluded." + col
	}
	query := `INSERT INTO player_game_stats (` + playerStatsColumns + `)
		VALUES (?, ?, ?` + strings.Repeat(", ?", len(stats.Columns)) + `)
		ON CONFLICT(game_id, player_id) DO UPDATE SET ` + strings.Join(updates, ", ")

	args := []any{ps.GameID, ps.PlayerID, ps.TeamID}
	for _, v := range ps.BoxScore.Values() {
		args = append(args, v)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return txErr("write player stats", err)
	}
	return nil
}

// TransitionStatus moves the game through its lifecycle. Finalizing also
// records the result in team and event standings inside the same transaction.
func (s *store) TransitionStatus(ctx context.Context, req game.TransitionRequest) (*game.Game, error) {
	if !req.Status.Valid() {
		return nil, fmt.Errorf("status %q: %w", req.Status, game.ErrValidation)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, txErr("begin transition", err)
	}
	defer tx.Rollback()

	g, err := s.getGame(ctx, tx, req.GameID)
	if err != nil {
		return nil, err
	}
	if g.Status == game.StatusFinal {
		return nil, fmt.Errorf("game %s: %w", g.ID, game.ErrGameFinal)
	}
	if !g.Status.CanTransition(req.Status) {
		return nil, fmt.Errorf("%s -> %s: %w", g.Status, req.Status, game.ErrInvalidTransition)
	}

	now := s.now().UTC().UnixMilli()
	switch req.Status {
	case game.StatusInProgress:
		if g.Status == game.StatusScheduled {
			_, err = tx.ExecContext(ctx, `UPDATE games SET status = ?, started_at = ?, current_period = 1 WHERE id = ?`, req.Status, now, g.ID)
		} else {
			_, err = tx.ExecContext(ctx, `UPDATE games SET status = ? WHERE id = ?`, req.Status, g.ID)
		}
	case game.StatusHalftime:
		_, err = tx.ExecContext(ctx, `UPDATE games SET status = ? WHERE id = ?`, req.Status, g.ID)
	case game.StatusFinal:
		home, away := g.HomeScore, g.AwayScore
		if req.HomeScore != nil {
			home = *req.HomeScore
		}
		if req.AwayScore != nil {
			away = *req.AwayScore
		}
		if home < 0 || away < 0 {
			return nil, fmt.Errorf("final score %d-%d: %w", home, away, game.ErrValidation)
		}
		_, err = tx.ExecContext(ctx, `UPDATE games SET status = ?, ended_at = ?, is_official = 1, home_score = ?, away_score = ? WHERE id = ?`,
			req.Status, now, home, away, g.ID)
		if err == nil {
			g.HomeScore, g.AwayScore = home, away
			err = s.recordResult(ctx, tx, g)
		}
	}
	if err != nil {
		if errors.Is(err, game.ErrTransaction) || errors.Is(err, game.ErrNotFound) {
			return nil, err
		}
		return nil, txErr("update status", err)
	}

	updated, err := s.getGame(ctx, tx, g.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, txErr("commit transition", err)
	}
	log.Info("Game status changed", "gameID", g.ID, "from", g.Status, "to", updated.Status, "homeScore", updated.HomeScore, "awayScore", updated.AwayScore)
	return updated, nil
}

// recordResult writes the final result into the team and event standings.
// A tie changes no win/loss counter but still records points for both sides.
func (s *store) recordResult(ctx context.Context, tx *sql.Tx, g *game.Game) error {
	var homeWin, awayWin int
	switch {
	case g.HomeScore > g.AwayScore:
		homeWin = 1
	case g.AwayScore > g.HomeScore:
		awayWin = 1
	}
	tie := homeWin == 0 && awayWin == 0

	if !tie {
		winner, loser := g.HomeTeamID, g.AwayTeamID
		if awayWin == 1 {
			winner, loser = g.AwayTeamID, g.HomeTeamID
		}
		if err := s.bumpTeam(ctx, tx, "wins", winner); err != nil {
			return err
		}
		if err := s.bumpTeam(ctx, tx, "losses", loser); err != nil {
			return err
		}
	}

	if g.EventID == "" {
		return nil
	}
	upsert := `
		INSERT INTO event_teams (event_id, team_id, wins, losses, points_for, points_against)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id, team_id) DO UPDATE SET
			wins = wins + excluded.wins,
			losses = losses + excluded.losses,
			points_for = points_for + excluded.points_for,
			points_against = points_against + excluded.points_against`
	if _, err := tx.ExecContext(ctx, upsert, g.EventID, g.HomeTeamID, homeWin, awayWin, g.HomeScore, g.AwayScore); err != nil {
		return txErr("update home standings", err)
	}
	if _, err := tx.ExecContext(ctx, upsert, g.EventID, g.AwayTeamID, awayWin, homeWin, g.AwayScore, g.HomeScore); err != nil {
		return txErr("update away standings", err)
	}
	return nil
}

func (s *store) bumpTeam(ctx context.Context, tx *sql.Tx, column, teamID string) error {
	res, err := tx.ExecContext(ctx, `UPDATE teams SET `+column+` = `+column+` + 1 WHERE id = ?`, teamID)
	if err != nil {
		return txErr("update team record", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("team %s: %w", teamID, game.ErrNotFound)
	}
	return nil
}

// SetPeriod moves the current period of a running game.
func (s *store) SetPeriod(ctx context.Context, req game.PeriodRequest) (*game.Game, error) {
	if req.Period < 1 {
		return nil, fmt.Errorf("period %d: %w", req.Period, game.ErrValidation)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, txErr("begin set period", err)
	}
	defer tx.Rollback()

	g, err := s.getGame(ctx, tx, req.GameID)
	if err != nil {
		return nil, err
	}
	switch g.Status {
	case game.StatusFinal:
		return nil, fmt.Errorf("game %s: %w", g.ID, game.ErrGameFinal)
	case game.StatusScheduled:
		return nil, fmt.Errorf("game %s has not started: %w", g.ID, game.ErrValidation)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE games SET current_period = ? WHERE id = ?`, req.Period, g.ID); err != nil {
		return nil, txErr("update period", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, txErr("commit set period", err)
	}
	g.CurrentPeriod = req.Period
	return g, nil
}

// GetStandings returns the event's table, best record first.
func (s *store) GetStandings(ctx context.Context, eventID string) ([]game.EventTeamRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT et.event_id, et.team_id, t.name, et.wins, et.losses, et.points_for, et.points_against
		FROM event_teams et
		JOIN teams t ON t.id = et.team_id
		WHERE et.event_id = ?
		ORDER BY et.wins DESC, et.losses ASC, (et.points_for - et.points_against) DESC, t.name ASC`, eventID)
	if err != nil {
		return nil, txErr("load standings", err)
	}
	defer rows.Close()

	records := []game.EventTeamRecord{}
	for rows.Next() {
		var r game.EventTeamRecord
		if err := rows.Scan(&r.EventID, &r.TeamID, &r.TeamName, &r.Wins, &r.Losses, &r.PointsFor, &r.PointsAgainst); err != nil {
			return nil, txErr("scan standings", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetTeam returns a team record.
func (s *store) GetTeam(ctx context.Context, teamID string) (*game.Team, error) {
	var t game.Team
	err := s.db.QueryRowContext(ctx, `SELECT id, name, wins, losses FROM teams WHERE id = ?`, teamID).Scan(&t.ID, &t.Name, &t.Wins, &t.Losses)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("team %s: %w", teamID, game.ErrNotFound)
	}
	if err != nil {
		return nil, txErr("load team", err)
	}
	return &t, nil
}
