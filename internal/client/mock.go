package client

import (
	"context"
	"sync"

	"github.com/mauv0809/courtside/internal/game"
)

var _ API = (*MockClient)(nil)

// MockClient is a mock implementation of the API interface for testing.
// It is safe for concurrent use.
type MockClient struct {
	mu sync.Mutex

	// Spies for method calls
	FetchSnapshotFunc    func(gameID string, logLimit int) (*game.Snapshot, error)
	ApplyStatFunc        func(req game.ApplyRequest) (*game.StatLogEntry, bool, error)
	UndoStatFunc         func(req game.UndoRequest) (*game.StatLogEntry, error)
	TransitionStatusFunc func(req game.TransitionRequest) (*game.Game, error)
	SetPeriodFunc        func(req game.PeriodRequest) (*game.Game, error)
	PingFunc             func() error

	// Call records
	FetchSnapshotCalls    []string
	ApplyStatCalls        []game.ApplyRequest
	UndoStatCalls         []game.UndoRequest
	TransitionStatusCalls []game.TransitionRequest
	SetPeriodCalls        []game.PeriodRequest
	// Order holds the mutation id of every submission, in call order.
	Order []string
}

// NewMockClient creates a new mock instance.
func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) FetchSnapshot(ctx context.Context, gameID string, logLimit int) (*game.Snapshot, error) {
	m.mu.Lock()
	m.FetchSnapshotCalls = append(m.FetchSnapshotCalls, gameID)
	m.mu.Unlock()
	if m.FetchSnapshotFunc != nil {
		return m.FetchSnapshotFunc(gameID, logLimit)
	}
	return &game.Snapshot{Game: game.Game{ID: gameID}}, nil
}

func (m *MockClient) ApplyStat(ctx context.Context, req game.ApplyRequest) (*game.StatLogEntry, bool, error) {
	m.mu.Lock()
	m.ApplyStatCalls = append(m.ApplyStatCalls, req)
	m.Order = append(m.Order, req.ClientMutationID)
	id := int64(len(m.ApplyStatCalls))
	m.mu.Unlock()
	if m.ApplyStatFunc != nil {
		return m.ApplyStatFunc(req)
	}
	return &game.StatLogEntry{ID: id, GameID: req.GameID, PlayerID: req.PlayerID, TeamID: req.TeamID, StatType: req.StatType, ClientMutationID: req.ClientMutationID}, false, nil
}

func (m *MockClient) UndoStat(ctx context.Context, req game.UndoRequest) (*game.StatLogEntry, error) {
	m.mu.Lock()
	m.UndoStatCalls = append(m.UndoStatCalls, req)
	m.Order = append(m.Order, req.ClientMutationID)
	m.mu.Unlock()
	if m.UndoStatFunc != nil {
		return m.UndoStatFunc(req)
	}
	return &game.StatLogEntry{ID: req.StatLogID, GameID: req.GameID, IsUndone: true}, nil
}

func (m *MockClient) TransitionStatus(ctx context.Context, req game.TransitionRequest) (*game.Game, error) {
	m.mu.Lock()
	m.TransitionStatusCalls = append(m.TransitionStatusCalls, req)
	m.Order = append(m.Order, string(req.Status))
	m.mu.Unlock()
	if m.TransitionStatusFunc != nil {
		return m.TransitionStatusFunc(req)
	}
	return &game.Game{ID: req.GameID, Status: req.Status}, nil
}

func (m *MockClient) SetPeriod(ctx context.Context, req game.PeriodRequest) (*game.Game, error) {
	m.mu.Lock()
	m.SetPeriodCalls = append(m.SetPeriodCalls, req)
	m.mu.Unlock()
	if m.SetPeriodFunc != nil {
		return m.SetPeriodFunc(req)
	}
	return &game.Game{ID: req.GameID, CurrentPeriod: req.Period}, nil
}

func (m *MockClient) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc()
	}
	return nil
}

// Submitted returns a copy of Order.
func (m *MockClient) Submitted() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Order...)
}
