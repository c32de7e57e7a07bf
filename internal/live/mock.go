package live

import "sync"

var _ Broadcaster = (*Mock)(nil)

// Mock records published updates. It is safe for concurrent use.
type Mock struct {
	mu      sync.Mutex
	Updates []ScoreUpdate
}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Publish(gameID string, update ScoreUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Updates = append(m.Updates, update)
}

// Last returns the most recent update, or false if none was published.
func (m *Mock) Last() (ScoreUpdate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Updates) == 0 {
		return ScoreUpdate{}, false
	}
	return m.Updates[len(m.Updates)-1], true
}
