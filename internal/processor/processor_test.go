package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/mauv0809/courtside/internal/dedupe"
	"github.com/mauv0809/courtside/internal/game"
	"github.com/mauv0809/courtside/internal/ledger"
	"github.com/mauv0809/courtside/internal/live"
	"github.com/mauv0809/courtside/internal/metrics"
	"github.com/mauv0809/courtside/internal/notifier"
	"github.com/mauv0809/courtside/internal/pubsub"
	"github.com/mauv0809/courtside/internal/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *ledger.MockStore
	notif    *notifier.Mock
	metr     *metrics.Mock
	counters *metrics.MockStore
	pubsub   *pubsub.MockPubSubClient
	cache    *dedupe.Mock
	live     *live.Mock
	p        *Processor
}

func setup() *fixture {
	f := &fixture{
		store:    ledger.NewMock(),
		notif:    notifier.NewMock(),
		metr:     metrics.NewMock(),
		counters: metrics.NewMockStore(),
		pubsub:   pubsub.NewMock(),
		cache:    dedupe.NewMock(),
		live:     live.NewMock(),
	}
	f.p = New(f.store, f.notif, f.metr, f.counters, f.pubsub, f.cache, f.live)
	return f
}

func applyReq(mutationID string) game.ApplyRequest {
	return game.ApplyRequest{GameID: "g1", PlayerID: "p1", TeamID: "home", StatType: stats.Made3, Period: 2, ClientMutationID: mutationID}
}

func TestProcessor_Apply(t *testing.T) {
	t.Run("applies and fans out the committed score", func(t *testing.T) {
		f := setup()
		f.store.GetGameFunc = func(gameID string) (*game.Game, error) {
			return &game.Game{ID: gameID, HomeTeamID: "home", AwayTeamID: "away", HomeScore: 13, Status: game.StatusInProgress, CurrentPeriod: 2}, nil
		}

		entry, dup, err := f.p.Apply(context.Background(), applyReq("m-1"))
		require.NoError(t, err)
		assert.False(t, dup)
		assert.Equal(t, "m-1", entry.ClientMutationID)

		require.Len(t, f.store.ApplyStatCalls, 1)
		assert.Equal(t, 1, f.metr.StatsApplied("PTS_3"))
		assert.Equal(t, 1, f.metr.TxObservations())
		assert.Equal(t, 1, f.counters.Count(metrics.KeyStatsApplied))
		assert.Equal(t, []pubsub.EventType{pubsub.EventStatApplied}, f.pubsub.Topics())

		update, ok := f.live.Last()
		require.True(t, ok)
		assert.Equal(t, 13, update.HomeScore)
		assert.Equal(t, "stat-applied", update.LastEvent)
		assert.Equal(t, entry, update.StatLog)
	})

	t.Run("rejects invalid payloads before the ledger", func(t *testing.T) {
		tests := []struct {
			name string
			req  game.ApplyRequest
		}{
			{"missing game", game.ApplyRequest{PlayerID: "p1", TeamID: "home", StatType: stats.Made2, Period: 1}},
			{"missing player", game.ApplyRequest{GameID: "g1", TeamID: "home", StatType: stats.Made2, Period: 1}},
			{"missing team", game.ApplyRequest{GameID: "g1", PlayerID: "p1", StatType: stats.Made2, Period: 1}},
			{"unknown stat", game.ApplyRequest{GameID: "g1", PlayerID: "p1", TeamID: "home", StatType: "DUNK", Period: 1}},
			{"period zero", game.ApplyRequest{GameID: "g1", PlayerID: "p1", TeamID: "home", StatType: stats.Made2}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := setup()
				_, _, err := f.p.Apply(context.Background(), tt.req)
				assert.ErrorIs(t, err, game.ErrValidation)
				assert.Empty(t, f.store.ApplyStatCalls)
				assert.Equal(t, 1, f.metr.Rejected("VALIDATION"))
				assert.Empty(t, f.pubsub.SendMessageCalls)
			})
		}
	})

	t.Run("replay is answered from the dedupe cache", func(t *testing.T) {
		f := setup()
		first, _, err := f.p.Apply(context.Background(), applyReq("m-2"))
		require.NoError(t, err)

		again, dup, err := f.p.Apply(context.Background(), applyReq("m-2"))
		require.NoError(t, err)
		assert.True(t, dup)
		assert.Equal(t, first.ID, again.ID)
		assert.Len(t, f.store.ApplyStatCalls, 1, "the ledger must not be touched again")
		assert.Equal(t, 1, f.metr.Duplicates())
		assert.Len(t, f.pubsub.SendMessageCalls, 1)
	})

	t.Run("replay detected by the ledger is not published", func(t *testing.T) {
		f := setup()
		f.cache.LookupErr = errors.New("redis down")
		f.store.ApplyStatFunc = func(req game.ApplyRequest) (*game.StatLogEntry, bool, error) {
			return &game.StatLogEntry{ID: 41, GameID: req.GameID, ClientMutationID: req.ClientMutationID}, true, nil
		}

		entry, dup, err := f.p.Apply(context.Background(), applyReq("m-3"))
		require.NoError(t, err)
		assert.True(t, dup)
		assert.Equal(t, int64(41), entry.ID)
		assert.Equal(t, 1, f.metr.Duplicates())
		assert.Zero(t, f.metr.StatsApplied("PTS_3"))
		assert.Empty(t, f.pubsub.SendMessageCalls)
	})

	t.Run("storage failures become transaction errors", func(t *testing.T) {
		f := setup()
		f.store.ApplyStatFunc = func(req game.ApplyRequest) (*game.StatLogEntry, bool, error) {
			return nil, false, errors.New("disk I/O error")
		}
		_, _, err := f.p.Apply(context.Background(), applyReq(""))
		require.Error(t, err)
		assert.ErrorIs(t, err, game.ErrTransaction)
		assert.Equal(t, 1, f.metr.Rejected("TRANSACTION"))
	})

	t.Run("domain errors pass through unchanged", func(t *testing.T) {
		f := setup()
		f.store.ApplyStatFunc = func(req game.ApplyRequest) (*game.StatLogEntry, bool, error) {
			return nil, false, game.ErrGameFinal
		}
		_, _, err := f.p.Apply(context.Background(), applyReq(""))
		assert.ErrorIs(t, err, game.ErrGameFinal)
		assert.NotErrorIs(t, err, game.ErrTransaction)
		assert.Equal(t, 1, f.metr.Rejected("GAME_FINAL"))
	})

	t.Run("publish failure does not fail the request", func(t *testing.T) {
		f := setup()
		f.pubsub.SendMessageFunc = func(topic pubsub.EventType, data any) error {
			return errors.New("pubsub unavailable")
		}
		_, _, err := f.p.Apply(context.Background(), applyReq(""))
		assert.NoError(t, err)
		_, ok := f.live.Last()
		assert.True(t, ok)
	})
}

func TestProcessor_Undo(t *testing.T) {
	t.Run("undoes and publishes", func(t *testing.T) {
		f := setup()
		entry, err := f.p.Undo(context.Background(), game.UndoRequest{GameID: "g1", StatLogID: 5})
		require.NoError(t, err)
		assert.True(t, entry.IsUndone)
		assert.Equal(t, 1, f.metr.StatsUndone())
		assert.Equal(t, 1, f.counters.Count(metrics.KeyStatsUndone))
		assert.Equal(t, []pubsub.EventType{pubsub.EventStatUndone}, f.pubsub.Topics())
	})

	t.Run("already undone is reported", func(t *testing.T) {
		f := setup()
		f.store.UndoStatFunc = func(req game.UndoRequest) (*game.StatLogEntry, error) {
			return nil, game.ErrAlreadyUndone
		}
		_, err := f.p.Undo(context.Background(), game.UndoRequest{GameID: "g1", StatLogID: 5})
		assert.ErrorIs(t, err, game.ErrAlreadyUndone)
		assert.Equal(t, 1, f.metr.Rejected("ALREADY_UNDONE"))
		assert.Empty(t, f.pubsub.SendMessageCalls)
	})

	t.Run("rejects a missing stat log id", func(t *testing.T) {
		f := setup()
		_, err := f.p.Undo(context.Background(), game.UndoRequest{GameID: "g1"})
		assert.ErrorIs(t, err, game.ErrValidation)
		assert.Empty(t, f.store.UndoStatCalls)
	})
}

func TestProcessor_Transition(t *testing.T) {
	t.Run("finalizing publishes both events", func(t *testing.T) {
		f := setup()
		home, away := 80, 74
		f.store.TransitionStatusFunc = func(req game.TransitionRequest) (*game.Game, error) {
			return &game.Game{ID: req.GameID, Status: game.StatusFinal, HomeScore: *req.HomeScore, AwayScore: *req.AwayScore, IsOfficial: true}, nil
		}

		g, err := f.p.Transition(context.Background(), game.TransitionRequest{GameID: "g1", Status: game.StatusFinal, HomeScore: &home, AwayScore: &away})
		require.NoError(t, err)
		assert.Equal(t, 80, g.HomeScore)
		assert.Equal(t, []pubsub.EventType{pubsub.EventGameStatusChanged, pubsub.EventGameFinalized}, f.pubsub.Topics())
		assert.Equal(t, 1, f.metr.Transitions("FINAL"))
		assert.Equal(t, 1, f.counters.Count(metrics.KeyGamesFinalized))

		event, ok := f.pubsub.SendMessageCalls[1].Data.(pubsub.GameEvent)
		require.True(t, ok)
		assert.Equal(t, "g1", event.GameID)
		assert.Equal(t, 74, event.Game.AwayScore)
	})

	t.Run("score overrides outside finalization are rejected", func(t *testing.T) {
		f := setup()
		score := 10
		_, err := f.p.Transition(context.Background(), game.TransitionRequest{GameID: "g1", Status: game.StatusHalftime, HomeScore: &score})
		assert.ErrorIs(t, err, game.ErrValidation)
		assert.Empty(t, f.store.TransitionStatusCalls)
	})

	t.Run("invalid transition from the ledger", func(t *testing.T) {
		f := setup()
		f.store.TransitionStatusFunc = func(req game.TransitionRequest) (*game.Game, error) {
			return nil, game.ErrInvalidTransition
		}
		_, err := f.p.Transition(context.Background(), game.TransitionRequest{GameID: "g1", Status: game.StatusFinal})
		assert.ErrorIs(t, err, game.ErrInvalidTransition)
		assert.Equal(t, 1, f.metr.Rejected("INVALID_TRANSITION"))
	})

	t.Run("set period publishes a status change", func(t *testing.T) {
		f := setup()
		g, err := f.p.SetPeriod(context.Background(), game.PeriodRequest{GameID: "g1", Period: 3})
		require.NoError(t, err)
		assert.Equal(t, 3, g.CurrentPeriod)
		update, ok := f.live.Last()
		require.True(t, ok)
		assert.Equal(t, 3, update.Period)

		_, err = f.p.SetPeriod(context.Background(), game.PeriodRequest{GameID: "g1", Period: 0})
		assert.ErrorIs(t, err, game.ErrValidation)
	})
}

func TestProcessor_NotifyFinal(t *testing.T) {
	finalSnapshot := func(status game.Status, eventID string) func(string, int) (*game.Snapshot, error) {
		return func(gameID string, logLimit int) (*game.Snapshot, error) {
			return &game.Snapshot{
				Game: game.Game{ID: gameID, EventID: eventID, HomeTeamID: "home", AwayTeamID: "away", HomeScore: 80, AwayScore: 74, Status: status},
				Stats: []game.PlayerGameStats{
					{PlayerID: "a", BoxScore: stats.BoxScore{Points: 10}},
					{PlayerID: "b", BoxScore: stats.BoxScore{Points: 31}},
					{PlayerID: "c", BoxScore: stats.BoxScore{Points: 10}},
					{PlayerID: "d", BoxScore: stats.BoxScore{Points: 22}},
				},
			}, nil
		}
	}
	names := map[string]string{"home": "Hawks", "away": "Owls"}

	t.Run("sends final score and standings", func(t *testing.T) {
		f := setup()
		f.store.GetSnapshotFunc = finalSnapshot(game.StatusFinal, "spring")
		f.store.GetTeamFunc = func(teamID string) (*game.Team, error) {
			return &game.Team{ID: teamID, Name: names[teamID]}, nil
		}

		require.NoError(t, f.p.NotifyFinal(context.Background(), "g1", true))

		require.Len(t, f.notif.SendFinalScoreCalls, 1)
		result := f.notif.SendFinalScoreCalls[0]
		assert.Equal(t, "Hawks", result.HomeName)
		assert.Equal(t, "Owls", result.AwayName)
		require.Len(t, result.TopScorers, 3)
		assert.Equal(t, []string{"b", "d", "a"}, []string{result.TopScorers[0].PlayerID, result.TopScorers[1].PlayerID, result.TopScorers[2].PlayerID})
		assert.Equal(t, 1, f.notif.StandingsCount())
		assert.Equal(t, "spring", f.notif.SendStandingsCalls[0].EventID)
	})

	t.Run("game without event sends only the score", func(t *testing.T) {
		f := setup()
		f.store.GetSnapshotFunc = finalSnapshot(game.StatusFinal, "")
		require.NoError(t, f.p.NotifyFinal(context.Background(), "g1", false))
		assert.Equal(t, 1, f.notif.FinalScoreCount())
		assert.Equal(t, 0, f.notif.StandingsCount())
	})

	t.Run("refuses a game that is not final", func(t *testing.T) {
		f := setup()
		f.store.GetSnapshotFunc = finalSnapshot(game.StatusInProgress, "")
		err := f.p.NotifyFinal(context.Background(), "g1", false)
		assert.ErrorIs(t, err, game.ErrValidation)
		assert.Equal(t, 0, f.notif.FinalScoreCount())
	})

	t.Run("notifier failure is returned", func(t *testing.T) {
		f := setup()
		f.store.GetSnapshotFunc = finalSnapshot(game.StatusFinal, "spring")
		f.notif.SendFinalScoreFunc = func(result *notifier.GameResult, dryRun bool) error {
			return errors.New("slack down")
		}
		assert.Error(t, f.p.NotifyFinal(context.Background(), "g1", false))
		assert.Equal(t, 0, f.notif.StandingsCount())
	})
}
