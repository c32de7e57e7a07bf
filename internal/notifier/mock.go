package notifier

import (
	"sync"

	"github.com/mauv0809/courtside/internal/game"
)

var _ Notifier = (*Mock)(nil)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Spies for method calls
	SendFinalScoreFunc func(result *GameResult, dryRun bool) error
	SendStandingsFunc  func(eventID string, records []game.EventTeamRecord, dryRun bool) error

	// Spies for format functions
	FormatStandingsResponseFunc func(eventID string, records []game.EventTeamRecord) (any, error)

	// Call records
	SendFinalScoreCalls []*GameResult
	SendStandingsCalls  []struct {
		EventID string
		Records []game.EventTeamRecord
	}
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) SendFinalScore(result *GameResult, dryRun bool) error {
	m.mu.Lock()
	m.SendFinalScoreCalls = append(m.SendFinalScoreCalls, result)
	m.mu.Unlock()
	if m.SendFinalScoreFunc != nil {
		return m.SendFinalScoreFunc(result, dryRun)
	}
	return nil
}

func (m *Mock) SendStandings(eventID string, records []game.EventTeamRecord, dryRun bool) error {
	m.mu.Lock()
	m.SendStandingsCalls = append(m.SendStandingsCalls, struct {
		EventID string
		Records []game.EventTeamRecord
	}{eventID, records})
	m.mu.Unlock()
	if m.SendStandingsFunc != nil {
		return m.SendStandingsFunc(eventID, records, dryRun)
	}
	return nil
}

func (m *Mock) FormatStandingsResponse(eventID string, records []game.EventTeamRecord) (any, error) {
	if m.FormatStandingsResponseFunc != nil {
		return m.FormatStandingsResponseFunc(eventID, records)
	}
	return nil, nil
}

// FinalScoreCount returns the number of SendFinalScore calls.
func (m *Mock) FinalScoreCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SendFinalScoreCalls)
}

// StandingsCount returns the number of SendStandings calls.
func (m *Mock) StandingsCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SendStandingsCalls)
}
