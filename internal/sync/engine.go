package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jpillora/backoff"
	"github.com/mauv0809/courtside/internal/client"
	"github.com/mauv0809/courtside/internal/game"
	"github.com/mauv0809/courtside/internal/localstore"
	"github.com/mauv0809/courtside/internal/metrics"
)

// snapshotLogs is how many ledger entries a fetched snapshot carries.
const snapshotLogs = 50

var errOffline = errors.New("server unreachable, drain stopped")

// New creates an engine. It starts out assuming it is online.
func New(queue Queue, cache Cache, api API, m metrics.SyncMetrics, cfg Config) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BackoffMin <= 0 {
		cfg.BackoffMin = DefaultBackoffMin
	}
	if cfg.BackoffMax < cfg.BackoffMin {
		cfg.BackoffMax = max(DefaultBackoffMax, cfg.BackoffMin)
	}
	e := &Engine{
		queue:   queue,
		cache:   cache,
		api:     api,
		metrics: m,
		cfg:     cfg,
		backoff: &backoff.Backoff{Min: cfg.BackoffMin, Max: cfg.BackoffMax, Factor: 2},
		trigger: make(chan struct{}, 1),
		now:     time.Now,
	}
	e.online.Store(true)
	return e
}

// Run drains on start, on every tick, on Trigger and whenever the engine
// comes back online. While offline each tick pings the server first and
// a successful ping brings the engine back online. It returns when ctx
// is done.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	log.Info("Sync engine started", "interval", e.cfg.Interval, "maxAttempts", e.cfg.MaxAttempts)
	e.Trigger()
	for {
		select {
		case <-ctx.Done():
			log.Info("Sync engine stopped")
			return ctx.Err()
		case <-ticker.C:
			if !e.IsOnline() {
				e.reconnect(ctx)
			}
		case <-e.trigger:
		}
		if _, err := e.Drain(ctx); err != nil && !errors.Is(err, errOffline) && ctx.Err() == nil {
			log.Error("Sync drain failed", "error", err)
		}
	}
}

func (e *Engine) reconnect(ctx context.Context) {
	if err := e.api.Ping(ctx); err != nil {
		log.Debug("Server still unreachable", "error", err)
		return
	}
	e.SetOnline(true)
}

// Trigger asks Run for a drain soon. It never blocks.
func (e *Engine) Trigger() {
	select {
	case e.trigger <- struct{}{}:
	default:
	}
}

// SetOnline records a connectivity change. Coming back online triggers a drain.
func (e *Engine) SetOnline(online bool) {
	was := e.online.Swap(online)
	if was == online {
		return
	}
	log.Info("Connectivity changed", "online", online)
	if online {
		e.Trigger()
	}
}

func (e *Engine) IsOnline() bool  { return e.online.Load() }
func (e *Engine) IsSyncing() bool { return e.syncing.Load() }

func (e *Engine) Status(ctx context.Context) (Status, error) {
	pending, dead, err := e.queue.Counts(ctx)
	if err != nil {
		return Status{}, err
	}
	e.metrics.SetPendingMutations(pending)
	return Status{Online: e.IsOnline(), Syncing: e.IsSyncing(), Pending: pending, DeadLettered: dead}, nil
}

// Record durably queues a mutation and asks for a drain.
func (e *Engine) Record(ctx context.Context, gameID string, typ localstore.MutationType, payload any) (*localstore.PendingMutation, error) {
	m, err := e.queue.Enqueue(ctx, gameID, typ, payload)
	if err != nil {
		return nil, err
	}
	if pending, _, err := e.queue.Counts(ctx); err == nil {
		e.metrics.SetPendingMutations(pending)
	}
	e.Trigger()
	return m, nil
}

// Snapshot fetches the game from the server and caches it. When the server
// cannot be reached the cached copy is returned instead.
func (e *Engine) Snapshot(ctx context.Context, gameID string) (*SnapshotResult, error) {
	snapshot, err := e.api.FetchSnapshot(ctx, gameID, snapshotLogs)
	if err == nil {
		e.SetOnline(true)
		if err := e.cache.Save(ctx, gameID, snapshot); err != nil {
			log.Warn("Failed to cache snapshot", "gameID", gameID, "error", err)
		}
		return &SnapshotResult{CachedSnapshot: localstore.CachedSnapshot{Snapshot: *snapshot, FetchedAt: e.now().UTC()}}, nil
	}
	if game.IsPermanent(err) {
		return nil, err
	}
	if errors.Is(err, client.ErrUnreachable) {
		e.SetOnline(false)
	}

	cached, ok, cacheErr := e.cache.Get(ctx, gameID)
	if cacheErr != nil {
		return nil, errors.Join(err, cacheErr)
	}
	if !ok {
		return nil, fmt.Errorf("no cached snapshot for game %s: %w", gameID, err)
	}
	log.Warn("Serving cached snapshot", "gameID", gameID, "fetchedAt", cached.FetchedAt, "stale", cached.Stale, "error", err)
	return &SnapshotResult{CachedSnapshot: *cached, FromCache: true}, nil
}

// Drain submits every ready mutation. A drain already in progress makes
// this call a no-op.
func (e *Engine) Drain(ctx context.Context) (Result, error) {
	var result Result
	if !e.drainMu.TryLock() {
		log.Debug("Drain already running, skipping")
		return result, nil
	}
	defer e.drainMu.Unlock()
	e.syncing.Store(true)
	defer e.syncing.Store(false)

	games, err := e.queue.PendingGames(ctx)
	if err != nil {
		return result, err
	}
	for _, gameID := range games {
		if err := e.drainGame(ctx, gameID, &result); err != nil {
			e.report(ctx, result)
			return result, err
		}
	}
	e.report(ctx, result)
	return result, nil
}

func (e *Engine) report(ctx context.Context, result Result) {
	if pending, _, err := e.queue.Counts(ctx); err == nil {
		e.metrics.SetPendingMutations(pending)
	}
	if result.empty() {
		return
	}
	log.Info("Sync drain finished", "delivered", result.Delivered, "failed", result.Failed, "deadLettered", result.DeadLettered)
	if e.OnDrain != nil {
		e.OnDrain(ctx, result)
	}
}

// drainGame submits one game's queue head to tail. Anything retryable
// stops the game so later mutations never overtake earlier ones.
func (e *Engine) drainGame(ctx context.Context, gameID string, result *Result) error {
	pending, err := e.queue.ListPending(ctx, gameID)
	if err != nil {
		return err
	}
	for i := range pending {
		m := &pending[i]
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if m.NextAttemptAt != nil && m.NextAttemptAt.After(e.now()) {
			log.Debug("Mutation waiting out backoff", "gameID", gameID, "localID", m.LocalID, "until", m.NextAttemptAt)
			result.Halted = append(result.Halted, gameID)
			return nil
		}

		err := e.submit(ctx, m)
		switch {
		case err == nil:
			e.SetOnline(true)
			if err := e.queue.Remove(ctx, m.LocalID); err != nil {
				return err
			}
			e.invalidate(ctx, gameID)
			e.metrics.IncSyncDelivered()
			result.Delivered++

		case game.IsPermanent(err) || (!errors.Is(err, client.ErrUnreachable) && m.Attempts+1 >= e.cfg.MaxAttempts):
			log.Warn("Dead-lettering mutation", "gameID", gameID, "localID", m.LocalID, "type", m.Type, "attempts", m.Attempts+1, "error", err)
			if err := e.queue.DeadLetter(ctx, m.LocalID, err); err != nil {
				return err
			}
			e.invalidate(ctx, gameID)
			e.metrics.IncDeadLettered()
			result.DeadLettered++

		default:
			// An unreachable server is retried on the next tick or reconnect.
			// Backoff is for a server that answered and failed.
			unreachable := errors.Is(err, client.ErrUnreachable)
			var next time.Time
			if !unreachable {
				next = e.now().Add(e.backoff.ForAttempt(float64(m.Attempts)))
			}
			log.Warn("Mutation submission failed, will retry", "gameID", gameID, "localID", m.LocalID, "attempt", m.Attempts+1, "retryAt", next, "error", err)
			if err := e.queue.MarkFailed(ctx, m.LocalID, err, next); err != nil {
				return err
			}
			e.metrics.IncSyncFailed()
			result.Failed++
			result.Halted = append(result.Halted, gameID)
			if unreachable {
				e.SetOnline(false)
				return errOffline
			}
			return nil
		}
	}
	return nil
}

func (e *Engine) invalidate(ctx context.Context, gameID string) {
	if err := e.cache.Invalidate(ctx, gameID); err != nil {
		log.Warn("Failed to invalidate cached snapshot", "gameID", gameID, "error", err)
	}
}

// submit replays one mutation. The queue's mutation id is always sent so a
// retry of something the server already applied is answered as a replay.
func (e *Engine) submit(ctx context.Context, m *localstore.PendingMutation) error {
	switch m.Type {
	case localstore.MutationStat:
		var req game.ApplyRequest
		if err := m.Decode(&req); err != nil {
			return fmt.Errorf("%v: %w", err, game.ErrValidation)
		}
		req.GameID, req.ClientMutationID = m.GameID, m.MutationID
		_, duplicate, err := e.api.ApplyStat(ctx, req)
		if duplicate {
			log.Info("Server already had mutation", "gameID", m.GameID, "mutationID", m.MutationID)
		}
		return err
	case localstore.MutationUndo:
		var req game.UndoRequest
		if err := m.Decode(&req); err != nil {
			return fmt.Errorf("%v: %w", err, game.ErrValidation)
		}
		req.GameID, req.ClientMutationID = m.GameID, m.MutationID
		_, err := e.api.UndoStat(ctx, req)
		return err
	case localstore.MutationStatus:
		var req game.TransitionRequest
		if err := m.Decode(&req); err != nil {
			return fmt.Errorf("%v: %w", err, game.ErrValidation)
		}
		req.GameID = m.GameID
		_, err := e.api.TransitionStatus(ctx, req)
		return err
	case localstore.MutationPeriod:
		var req game.PeriodRequest
		if err := m.Decode(&req); err != nil {
			return fmt.Errorf("%v: %w", err, game.ErrValidation)
		}
		req.GameID = m.GameID
		_, err := e.api.SetPeriod(ctx, req)
		return err
	}
	return fmt.Errorf("mutation type %q: %w", m.Type, game.ErrValidation)
}
