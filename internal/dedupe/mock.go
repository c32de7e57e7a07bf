package dedupe

import (
	"context"
	"sync"

	"github.com/mauv0809/courtside/internal/game"
)

var _ Cache = (*Mock)(nil)

// Mock is an in-memory Cache for tests. It is safe for concurrent use.
type Mock struct {
	mu      sync.Mutex
	entries map[string]game.StatLogEntry

	LookupErr     error
	RememberCalls int
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{entries: make(map[string]game.StatLogEntry)}
}

func (m *Mock) Lookup(ctx context.Context, mutationID string) (*game.StatLogEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LookupErr != nil {
		return nil, false, m.LookupErr
	}
	entry, ok := m.entries[mutationID]
	if !ok {
		return nil, false, nil
	}
	return &entry, true, nil
}

func (m *Mock) Remember(ctx context.Context, entry *game.StatLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RememberCalls++
	if entry.ClientMutationID == "" {
		return nil
	}
	if _, ok := m.entries[entry.ClientMutationID]; !ok {
		m.entries[entry.ClientMutationID] = *entry
	}
	return nil
}

func (m *Mock) Close() error { return nil }
