package metrics

import "sync"

var (
	_ Metrics     = (*Mock)(nil)
	_ SyncMetrics = (*Mock)(nil)
)

// Mock is a mock implementation of the Metrics and SyncMetrics interfaces for testing.
// It is safe for concurrent use.
type Mock struct {
	mu               sync.Mutex
	statsApplied     map[string]int
	statsUndone      int
	duplicates       int
	rejected         map[string]int
	transitions      map[string]int
	txDurations      []float64
	slackNotifSent   int
	slackNotifFailed int
	liveSubscribers  int
	startupTime      float64
	pending          int
	delivered        int
	failed           int
	deadLettered     int
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{
		statsApplied: make(map[string]int),
		rejected:     make(map[string]int),
		transitions:  make(map[string]int),
		txDurations:  make([]float64, 0),
	}
}

func (m *Mock) IncStatsApplied(statType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsApplied[statType]++
}

func (m *Mock) IncStatsUndone() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statsUndone++
}

func (m *Mock) IncDuplicates() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duplicates++
}

func (m *Mock) IncRejected(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejected[code]++
}

func (m *Mock) IncTransitions(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[status]++
}

func (m *Mock) ObserveTxDuration(op string, duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txDurations = append(m.txDurations, duration)
}

func (m *Mock) IncSlackNotifSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifSent++
}

func (m *Mock) IncSlackNotifFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slackNotifFailed++
}

func (m *Mock) SetLiveSubscribers(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.liveSubscribers = n
}

func (m *Mock) SetStartupTime(duration float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startupTime = duration
}

func (m *Mock) SetPendingMutations(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = n
}

func (m *Mock) IncSyncDelivered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delivered++
}

func (m *Mock) IncSyncFailed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed++
}

func (m *Mock) IncDeadLettered() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deadLettered++
}

// StatsApplied returns how often IncStatsApplied was called for statType.
func (m *Mock) StatsApplied(statType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statsApplied[statType]
}

// StatsUndone returns the number of times IncStatsUndone was called.
func (m *Mock) StatsUndone() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statsUndone
}

// Duplicates returns the number of times IncDuplicates was called.
func (m *Mock) Duplicates() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duplicates
}

// Rejected returns how often IncRejected was called for code.
func (m *Mock) Rejected(code string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rejected[code]
}

// Transitions returns how often IncTransitions was called for status.
func (m *Mock) Transitions(status string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.transitions[status]
}

// TxObservations returns the number of recorded transaction durations.
func (m *Mock) TxObservations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txDurations)
}

// SlackNotifSent returns the number of times IncSlackNotifSent was called.
func (m *Mock) SlackNotifSent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifSent
}

// SlackNotifFailed returns the number of times IncSlackNotifFailed was called.
func (m *Mock) SlackNotifFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slackNotifFailed
}

// LiveSubscribers returns the last value passed to SetLiveSubscribers.
func (m *Mock) LiveSubscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.liveSubscribers
}

// PendingMutations returns the last value passed to SetPendingMutations.
func (m *Mock) PendingMutations() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

func (m *Mock) SyncDelivered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.delivered
}

func (m *Mock) SyncFailed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed
}

func (m *Mock) DeadLettered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deadLettered
}

var _ MetricsStore = (*MockStore)(nil)

// MockStore is an in-memory MetricsStore for testing.
type MockStore struct {
	mu       sync.Mutex
	counters map[string]int
}

// NewMockStore creates a new in-memory counter store.
func NewMockStore() *MockStore {
	return &MockStore{counters: make(map[string]int)}
}

func (m *MockStore) Increment(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[key]++
}

func (m *MockStore) Get(key string) (int, error) {
	return m.Count(key), nil
}

func (m *MockStore) Totals() (Totals, error) {
	var t Totals
	for key, dst := range t.fields() {
		*dst = m.Count(key)
	}
	return t, nil
}

// Count returns the value of one counter.
func (m *MockStore) Count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[key]
}
