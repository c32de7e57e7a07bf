package processor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtside/internal/dedupe"
	"github.com/mauv0809/courtside/internal/game"
	"github.com/mauv0809/courtside/internal/live"
	"github.com/mauv0809/courtside/internal/metrics"
	"github.com/mauv0809/courtside/internal/notifier"
	"github.com/mauv0809/courtside/internal/pubsub"
)

// New creates a new Processor. A nil dedupe cache disables the fast
// replay path; a nil broadcaster disables live updates.
func New(store Store, notifier Notifier, metrics metrics.Metrics, counters metrics.MetricsStore, pubsub pubsub.PubSubClient, cache dedupe.Cache, broadcaster live.Broadcaster) *Processor {
	if cache == nil {
		cache = dedupe.Noop{}
	}
	return &Processor{
		store:    store,
		pubsub:   pubsub,
		notifier: notifier,
		metrics:  metrics,
		counters: counters,
		dedupe:   cache,
		live:     broadcaster,
		now:      time.Now,
	}
}

// Snapshot returns the game, its aggregates and the newest logLimit ledger entries.
func (p *Processor) Snapshot(ctx context.Context, gameID string, logLimit int) (*game.Snapshot, error) {
	if gameID == "" {
		return nil, p.reject(fmt.Errorf("game id is required: %w", game.ErrValidation))
	}
	snapshot, err := p.store.GetSnapshot(ctx, gameID, logLimit)
	if err != nil {
		return nil, p.fail("snapshot", err)
	}
	return snapshot, nil
}

// Apply records one stat event. The boolean is true when the request was a
// replay of an already applied mutation; the original entry is returned.
func (p *Processor) Apply(ctx context.Context, req game.ApplyRequest) (*game.StatLogEntry, bool, error) {
	if err := validateApply(req); err != nil {
		return nil, false, p.reject(err)
	}

	if req.ClientMutationID != "" {
		cached, ok, err := p.dedupe.Lookup(ctx, req.ClientMutationID)
		if err != nil {
			log.Warn("Dedupe lookup failed, falling back to ledger", "error", err, "mutationID", req.ClientMutationID)
		} else if ok && cached.GameID == req.GameID {
			log.Info("Duplicate stat submission answered from cache", "gameID", req.GameID, "mutationID", req.ClientMutationID)
			p.metrics.IncDuplicates()
			return cached, true, nil
		}
	}

	start := time.Now()
	entry, duplicate, err := p.store.ApplyStat(ctx, req)
	p.metrics.ObserveTxDuration("apply", time.Since(start).Seconds())
	if err != nil {
		return nil, false, p.fail("apply stat", err)
	}
	p.remember(ctx, entry)
	if duplicate {
		p.metrics.IncDuplicates()
		return entry, true, nil
	}

	p.metrics.IncStatsApplied(string(entry.StatType))
	p.counters.Increment(metrics.KeyStatsApplied)
	p.afterCommit(ctx, pubsub.EventStatApplied, req.GameID, entry)
	return entry, false, nil
}

// Undo reverses one ledger entry.
func (p *Processor) Undo(ctx context.Context, req game.UndoRequest) (*game.StatLogEntry, error) {
	if req.GameID == "" {
		return nil, p.reject(fmt.Errorf("game id is required: %w", game.ErrValidation))
	}
	if req.StatLogID <= 0 {
		return nil, p.reject(fmt.Errorf("stat log id %d: %w", req.StatLogID, game.ErrValidation))
	}

	start := time.Now()
	entry, err := p.store.UndoStat(ctx, req)
	p.metrics.ObserveTxDuration("undo", time.Since(start).Seconds())
	if err != nil {
		return nil, p.fail("undo stat", err)
	}

	p.metrics.IncStatsUndone()
	p.counters.Increment(metrics.KeyStatsUndone)
	p.afterCommit(ctx, pubsub.EventStatUndone, req.GameID, entry)
	return entry, nil
}

// Transition moves the game through its lifecycle. Score overrides are only
// accepted when finalizing.
func (p *Processor) Transition(ctx context.Context, req game.TransitionRequest) (*game.Game, error) {
	if req.GameID == "" {
		return nil, p.reject(fmt.Errorf("game id is required: %w", game.ErrValidation))
	}
	if !req.Status.Valid() {
		return nil, p.reject(fmt.Errorf("status %q: %w", req.Status, game.ErrValidation))
	}
	if req.Status != game.StatusFinal && (req.HomeScore != nil || req.AwayScore != nil) {
		return nil, p.reject(fmt.Errorf("score overrides only apply when finalizing: %w", game.ErrValidation))
	}

	start := time.Now()
	g, err := p.store.TransitionStatus(ctx, req)
	p.metrics.ObserveTxDuration("transition", time.Since(start).Seconds())
	if err != nil {
		return nil, p.fail("transition status", err)
	}

	p.metrics.IncTransitions(string(g.Status))
	p.publish(pubsub.EventGameStatusChanged, g, nil)
	if g.Status == game.StatusFinal {
		p.counters.Increment(metrics.KeyGamesFinalized)
		p.publish(pubsub.EventGameFinalized, g, nil)
	}
	return g, nil
}

// SetPeriod moves the current period of a running game.
func (p *Processor) SetPeriod(ctx context.Context, req game.PeriodRequest) (*game.Game, error) {
	if req.GameID == "" {
		return nil, p.reject(fmt.Errorf("game id is required: %w", game.ErrValidation))
	}
	if req.Period < 1 {
		return nil, p.reject(fmt.Errorf("period %d: %w", req.Period, game.ErrValidation))
	}
	g, err := p.store.SetPeriod(ctx, req)
	if err != nil {
		return nil, p.fail("set period", err)
	}
	p.publish(pubsub.EventGameStatusChanged, g, nil)
	return g, nil
}

// Standings returns an event table.
func (p *Processor) Standings(ctx context.Context, eventID string) ([]game.EventTeamRecord, error) {
	if eventID == "" {
		return nil, p.reject(fmt.Errorf("event id is required: %w", game.ErrValidation))
	}
	records, err := p.store.GetStandings(ctx, eventID)
	if err != nil {
		return nil, p.fail("standings", err)
	}
	return records, nil
}

// NotifyFinal posts the final score of a finalized game, followed by the
// updated event table when the game belongs to one.
func (p *Processor) NotifyFinal(ctx context.Context, gameID string, dryRun bool) error {
	snapshot, err := p.store.GetSnapshot(ctx, gameID, 1)
	if err != nil {
		return p.fail("load final game", err)
	}
	g := snapshot.Game
	if g.Status != game.StatusFinal {
		return fmt.Errorf("game %s is %s: %w", g.ID, g.Status, game.ErrValidation)
	}

	result := &notifier.GameResult{
		Game:       g,
		HomeName:   p.teamName(ctx, g.HomeTeamID),
		AwayName:   p.teamName(ctx, g.AwayTeamID),
		TopScorers: leaders(snapshot.Stats, topScorers),
	}
	if err := p.notifier.SendFinalScore(result, dryRun); err != nil {
		return fmt.Errorf("failed to send final score for game %s: %w", g.ID, err)
	}
	log.Info("Sent final score notification", "gameID", g.ID, "dryRun", dryRun)

	if g.EventID == "" {
		return nil
	}
	records, err := p.store.GetStandings(ctx, g.EventID)
	if err != nil {
		return p.fail("standings", err)
	}
	if err := p.notifier.SendStandings(g.EventID, records, dryRun); err != nil {
		return fmt.Errorf("failed to send standings for event %s: %w", g.EventID, err)
	}
	return nil
}

func (p *Processor) teamName(ctx context.Context, teamID string) string {
	team, err := p.store.GetTeam(ctx, teamID)
	if err != nil {
		log.Warn("Could not load team for notification", "error", err, "teamID", teamID)
		return ""
	}
	return team.Name
}

// leaders returns the n highest scorers, ties broken by player id.
func leaders(rows []game.PlayerGameStats, n int) []game.PlayerGameStats {
	sorted := append([]game.PlayerGameStats(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Points != sorted[j].Points {
			return sorted[i].Points > sorted[j].Points
		}
		return sorted[i].PlayerID < sorted[j].PlayerID
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func validateApply(req game.ApplyRequest) error {
	switch {
	case req.GameID == "":
		return fmt.Errorf("game id is required: %w", game.ErrValidation)
	case req.PlayerID == "":
		return fmt.Errorf("player id is required: %w", game.ErrValidation)
	case req.TeamID == "":
		return fmt.Errorf("team id is required: %w", game.ErrValidation)
	case !req.StatType.Valid():
		return fmt.Errorf("stat type %q: %w", req.StatType, game.ErrValidation)
	case req.Period < 1:
		return fmt.Errorf("period %d: %w", req.Period, game.ErrValidation)
	}
	return nil
}

// remember is best effort; the ledger's unique column still catches replays.
func (p *Processor) remember(ctx context.Context, entry *game.StatLogEntry) {
	if entry.ClientMutationID == "" {
		return
	}
	if err := p.dedupe.Remember(ctx, entry); err != nil {
		log.Warn("Failed to cache mutation id", "error", err, "mutationID", entry.ClientMutationID)
	}
}

// afterCommit reloads the game so subscribers see the committed score line.
func (p *Processor) afterCommit(ctx context.Context, event pubsub.EventType, gameID string, entry *game.StatLogEntry) {
	g, err := p.store.GetGame(ctx, gameID)
	if err != nil {
		log.Error("Failed to reload game after commit", "error", err, "gameID", gameID)
		return
	}
	p.publish(event, g, entry)
}

// publish never fails the request: the ledger already committed.
func (p *Processor) publish(event pubsub.EventType, g *game.Game, entry *game.StatLogEntry) {
	msg := pubsub.GameEvent{
		Type:    event,
		GameID:  g.ID,
		Game:    g,
		StatLog: entry,
		SentAt:  p.now().UTC(),
	}
	if err := p.pubsub.SendMessage(event, msg); err != nil {
		log.Error("Failed to publish game event", "error", err, "event", event, "gameID", g.ID)
	}
	if p.live != nil {
		p.live.Publish(g.ID, live.NewScoreUpdate(g, string(event), entry))
	}
}

// reject counts a request refused before reaching the ledger.
func (p *Processor) reject(err error) error {
	p.metrics.IncRejected(game.Code(err))
	return err
}

// fail keeps domain errors as they are and wraps anything else as a
// transaction failure.
func (p *Processor) fail(op string, err error) error {
	if !isDomain(err) {
		err = fmt.Errorf("%s: %w: %w", op, game.ErrTransaction, err)
	}
	log.Warn("Ledger operation failed", "op", op, "error", err)
	return p.reject(err)
}

func isDomain(err error) bool {
	for _, target := range []error{game.ErrValidation, game.ErrNotFound, game.ErrGameFinal, game.ErrNegativeAggregate, game.ErrTransaction} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
