package ledger

import (
	"context"
	"sync"

	"github.com/mauv0809/courtside/internal/game"
)

var _ LedgerStore = (*MockStore)(nil)

// MockStore is a mock implementation of the LedgerStore interface for testing.
// It is safe for concurrent use.
type MockStore struct {
	mu sync.Mutex

	// Spies for method calls
	GetGameFunc          func(gameID string) (*game.Game, error)
	GetSnapshotFunc      func(gameID string, logLimit int) (*game.Snapshot, error)
	ApplyStatFunc        func(req game.ApplyRequest) (*game.StatLogEntry, bool, error)
	UndoStatFunc         func(req game.UndoRequest) (*game.StatLogEntry, error)
	TransitionStatusFunc func(req game.TransitionRequest) (*game.Game, error)
	SetPeriodFunc        func(req game.PeriodRequest) (*game.Game, error)
	GetStandingsFunc     func(eventID string) ([]game.EventTeamRecord, error)
	GetTeamFunc          func(teamID string) (*game.Team, error)

	// Call records
	ApplyStatCalls        []game.ApplyRequest
	UndoStatCalls         []game.UndoRequest
	TransitionStatusCalls []game.TransitionRequest
	SetPeriodCalls        []game.PeriodRequest
}

// NewMock creates a new mock instance.
func NewMock() *MockStore {
	return &MockStore{}
}

// Reset clears all call records.
func (m *MockStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ApplyStatCalls = nil
	m.UndoStatCalls = nil
	m.TransitionStatusCalls = nil
	m.SetPeriodCalls = nil
}

func (m *MockStore) GetGame(ctx context.Context, gameID string) (*game.Game, error) {
	if m.GetGameFunc != nil {
		return m.GetGameFunc(gameID)
	}
	return &game.Game{ID: gameID}, nil
}

func (m *MockStore) GetSnapshot(ctx context.Context, gameID string, logLimit int) (*game.Snapshot, error) {
	if m.GetSnapshotFunc != nil {
		return m.GetSnapshotFunc(gameID, logLimit)
	}
	return &game.Snapshot{Game: game.Game{ID: gameID}}, nil
}

func (m *MockStore) ApplyStat(ctx context.Context, req game.ApplyRequest) (*game.StatLogEntry, bool, error) {
	m.mu.Lock()
	m.ApplyStatCalls = append(m.ApplyStatCalls, req)
	id := int64(len(m.ApplyStatCalls))
	m.mu.Unlock()
	if m.ApplyStatFunc != nil {
		return m.ApplyStatFunc(req)
	}
	return &game.StatLogEntry{
		ID:               id,
		GameID:           req.GameID,
		PlayerID:         req.PlayerID,
		TeamID:           req.TeamID,
		StatType:         req.StatType,
		Period:           req.Period,
		ClientMutationID: req.ClientMutationID,
	}, false, nil
}

func (m *MockStore) UndoStat(ctx context.Context, req game.UndoRequest) (*game.StatLogEntry, error) {
	m.mu.Lock()
	m.UndoStatCalls = append(m.UndoStatCalls, req)
	m.mu.Unlock()
	if m.UndoStatFunc != nil {
		return m.UndoStatFunc(req)
	}
	return &game.StatLogEntry{ID: req.StatLogID, GameID: req.GameID, IsUndone: true}, nil
}

func (m *MockStore) TransitionStatus(ctx context.Context, req game.TransitionRequest) (*game.Game, error) {
	m.mu.Lock()
	m.TransitionStatusCalls = append(m.TransitionStatusCalls, req)
	m.mu.Unlock()
	if m.TransitionStatusFunc != nil {
		return m.TransitionStatusFunc(req)
	}
	return &game.Game{ID: req.GameID, Status: req.Status}, nil
}

func (m *MockStore) SetPeriod(ctx context.Context, req game.PeriodRequest) (*game.Game, error) {
	m.mu.Lock()
	m.SetPeriodCalls = append(m.SetPeriodCalls, req)
	m.mu.Unlock()
	if m.SetPeriodFunc != nil {
		return m.SetPeriodFunc(req)
	}
	return &game.Game{ID: req.GameID, Status: game.StatusInProgress, CurrentPeriod: req.Period}, nil
}

func (m *MockStore) GetStandings(ctx context.Context, eventID string) ([]game.EventTeamRecord, error) {
	if m.GetStandingsFunc != nil {
		return m.GetStandingsFunc(eventID)
	}
	return []game.EventTeamRecord{}, nil
}

func (m *MockStore) GetTeam(ctx context.Context, teamID string) (*game.Team, error) {
	if m.GetTeamFunc != nil {
		return m.GetTeamFunc(teamID)
	}
	return &game.Team{ID: teamID}, nil
}
