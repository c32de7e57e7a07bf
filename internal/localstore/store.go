package localstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/mauv0809/courtside/internal/database"
	"github.com/mauv0809/courtside/internal/game"
	"github.com/vmihailenco/msgpack/v5"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Open opens (or creates) the device database at path and migrates it.
func Open(path string) (*Store, error) {
	db, err := database.OpenLocal(path)
	if err != nil {
		return nil, err
	}
	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := database.Migrate(context.Background(), db, migrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate local store: %w", err)
	}
	log.Debug("Local store ready", "path", path)
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the cached snapshot for gameID and clears its stale flag.
func (s *Store) Save(ctx context.Context, gameID string, snapshot *game.Snapshot) error {
	payload, err := msgpack.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", gameID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshot_cache (game_id, payload, fetched_at, stale) VALUES (?, ?, ?, 0)
		ON CONFLICT(game_id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at, stale = 0`,
		gameID, payload, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to cache snapshot %s: %w", gameID, err)
	}
	return nil
}

// Get returns the cached snapshot for gameID. The bool is false when
// nothing has been cached yet.
func (s *Store) Get(ctx context.Context, gameID string) (*CachedSnapshot, bool, error) {
	var (
		payload   []byte
		fetchedAt int64
		stale     bool
	)
	err := s.db.QueryRowContext(ctx, `SELECT payload, fetched_at, stale FROM snapshot_cache WHERE game_id = ?`, gameID).
		Scan(&payload, &fetchedAt, &stale)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached snapshot %s: %w", gameID, err)
	}
	cached := &CachedSnapshot{FetchedAt: time.UnixMilli(fetchedAt).UTC(), Stale: stale}
	if err := msgpack.Unmarshal(payload, &cached.Snapshot); err != nil {
		return nil, false, fmt.Errorf("decode cached snapshot %s: %w", gameID, err)
	}
	return cached, true, nil
}

// Invalidate marks the cached snapshot stale. The payload is kept so it can
// still be shown while offline.
func (s *Store) Invalidate(ctx context.Context, gameID string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE snapshot_cache SET stale = 1 WHERE game_id = ?`, gameID); err != nil {
		return fmt.Errorf("failed to invalidate snapshot %s: %w", gameID, err)
	}
	return nil
}

// Enqueue durably appends a mutation for gameID and assigns it a fresh
// mutation id. payload is msgpack encoded.
func (s *Store) Enqueue(ctx context.Context, gameID string, typ MutationType, payload any) (*PendingMutation, error) {
	if gameID == "" {
		return nil, fmt.Errorf("game id is required: %w", game.ErrValidation)
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("mutation type %q: %w", typ, game.ErrValidation)
	}
	data, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s mutation: %w", typ, err)
	}
	m := &PendingMutation{
		GameID:     gameID,
		MutationID: uuid.NewString(),
		Type:       typ,
		Payload:    data,
		CreatedAt:  s.now().UTC(),
		State:      StatePending,
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_mutations (game_id, mutation_id, type, payload, created_at, state)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.GameID, m.MutationID, m.Type, m.Payload, m.CreatedAt.UnixMilli(), m.State)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue %s mutation for game %s: %w", typ, gameID, err)
	}
	if m.LocalID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	log.Debug("Mutation queued", "gameID", gameID, "type", typ, "localID", m.LocalID, "mutationID", m.MutationID)
	return m, nil
}

const mutationColumns = `local_id, game_id, mutation_id, type, payload, created_at, attempts, next_attempt_at, last_error, state`

func (s *Store) list(ctx context.Context, gameID string, state State) ([]PendingMutation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+mutationColumns+` FROM pending_mutations
		WHERE game_id = ? AND state = ? ORDER BY local_id`, gameID, state)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s mutations for game %s: %w", state, gameID, err)
	}
	defer rows.Close()

	var mutations []PendingMutation
	for rows.Next() {
		m, err := scanMutation(rows)
		if err != nil {
			return nil, err
		}
		mutations = append(mutations, *m)
	}
	return mutations, rows.Err()
}

// ListPending returns the queued mutations for gameID in submission order.
func (s *Store) ListPending(ctx context.Context, gameID string) ([]PendingMutation, error) {
	return s.list(ctx, gameID, StatePending)
}

func (s *Store) ListDeadLetters(ctx context.Context, gameID string) ([]PendingMutation, error) {
	return s.list(ctx, gameID, StateDead)
}

// Remove deletes a mutation the server has acknowledged.
func (s *Store) Remove(ctx context.Context, localID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pending_mutations WHERE local_id = ?`, localID); err != nil {
		return fmt.Errorf("failed to remove mutation %d: %w", localID, err)
	}
	return nil
}

// MarkFailed records a failed attempt and when the next one may happen.
func (s *Store) MarkFailed(ctx context.Context, localID int64, cause error, nextAttempt time.Time) error {
	// A zero nextAttempt leaves the mutation ready for the next drain.
	var next sql.NullInt64
	if !nextAttempt.IsZero() {
		next = sql.NullInt64{Int64: nextAttempt.UnixMilli(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE pending_mutations SET attempts = attempts + 1, last_error = ?, next_attempt_at = ?
		WHERE local_id = ? AND state = ?`,
		errorText(cause), next, localID, StatePending)
	if err != nil {
		return fmt.Errorf("failed to record attempt for mutation %d: %w", localID, err)
	}
	return nil
}

// DeadLetter moves a mutation out of the queue so later ones can drain.
func (s *Store) DeadLetter(ctx context.Context, localID int64, cause error) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pending_mutations SET state = ?, attempts = attempts + 1, last_error = ?, next_attempt_at = NULL
		WHERE local_id = ?`,
		StateDead, errorText(cause), localID)
	if err != nil {
		return fmt.Errorf("failed to dead-letter mutation %d: %w", localID, err)
	}
	log.Warn("Mutation dead-lettered", "localID", localID, "error", cause)
	return nil
}

// Requeue puts a dead-lettered mutation back at the end of its game's queue
// with a fresh attempt budget. It keeps its mutation id so a submission the
// server already applied is still recognised as a replay.
func (s *Store) Requeue(ctx context.Context, localID int64) (*PendingMutation, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+mutationColumns+` FROM pending_mutations WHERE local_id = ? AND state = ?`, localID, StateDead)
	m, err := scanMutation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dead-lettered mutation %d: %w", localID, game.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_mutations WHERE local_id = ?`, localID); err != nil {
		return nil, fmt.Errorf("failed to requeue mutation %d: %w", localID, err)
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO pending_mutations (game_id, mutation_id, type, payload, created_at, state)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.GameID, m.MutationID, m.Type, m.Payload, m.CreatedAt.UnixMilli(), StatePending)
	if err != nil {
		return nil, fmt.Errorf("failed to requeue mutation %d: %w", localID, err)
	}
	if m.LocalID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	m.Attempts, m.NextAttemptAt, m.LastError, m.State = 0, nil, "", StatePending
	return m, nil
}

// PendingGames lists games with queued work, oldest queue head first.
func (s *Store) PendingGames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_id FROM pending_mutations WHERE state = ?
		GROUP BY game_id ORDER BY MIN(local_id)`, StatePending)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending games: %w", err)
	}
	defer rows.Close()

	var games []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		games = append(games, id)
	}
	return games, rows.Err()
}

// Counts returns how many mutations are queued and how many are dead-lettered.
func (s *Store) Counts(ctx context.Context) (pending, dead int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN state = ? THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN state = ? THEN 1 ELSE 0 END), 0)
		FROM pending_mutations`, StatePending, StateDead).Scan(&pending, &dead)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count mutations: %w", err)
	}
	return pending, dead, nil
}

type scanner interface{ Scan(...any) error }

func scanMutation(row scanner) (*PendingMutation, error) {
	var (
		m           PendingMutation
		createdAt   int64
		nextAttempt sql.NullInt64
		lastError   sql.NullString
	)
	err := row.Scan(&m.LocalID, &m.GameID, &m.MutationID, &m.Type, &m.Payload, &createdAt,
		&m.Attempts, &nextAttempt, &lastError, &m.State)
	if err != nil {
		return nil, err
	}
	m.CreatedAt = time.UnixMilli(createdAt).UTC()
	if nextAttempt.Valid {
		t := time.UnixMilli(nextAttempt.Int64).UTC()
		m.NextAttemptAt = &t
	}
	m.LastError = lastError.String
	return &m, nil
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
