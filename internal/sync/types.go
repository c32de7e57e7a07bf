package sync

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jpillora/backoff"
	"github.com/mauv0809/courtside/internal/localstore"
	"github.com/mauv0809/courtside/internal/metrics"
)

const (
	DefaultInterval    = 10 * time.Second
	DefaultMaxAttempts = 8
	DefaultBackoffMin  = time.Second
	DefaultBackoffMax  = 5 * time.Minute
)

// Config tunes the engine. Zero values take the defaults above.
type Config struct {
	Interval    time.Duration
	MaxAttempts int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
}

// Engine drains queued mutations to the server in per-game FIFO order.
type Engine struct {
	queue   Queue
	cache   Cache
	api     API
	metrics metrics.SyncMetrics
	cfg     Config
	backoff *backoff.Backoff

	trigger chan struct{}
	online  atomic.Bool
	syncing atomic.Bool
	drainMu sync.Mutex
	now     func() time.Time

	// OnDrain, when set, is called after every drain that did any work.
	OnDrain func(ctx context.Context, result Result)
}

// Result summarises one drain.
type Result struct {
	Delivered    int
	Failed       int
	DeadLettered int
	// Halted lists games whose drain stopped on a retryable failure or a
	// mutation still waiting out its backoff.
	Halted []string
}

func (r Result) empty() bool {
	return r.Delivered == 0 && r.Failed == 0 && r.DeadLettered == 0
}

// Status is the engine state as shown to the scorekeeper.
type Status struct {
	Online       bool `json:"online"`
	Syncing      bool `json:"syncing"`
	Pending      int  `json:"pending"`
	DeadLettered int  `json:"deadLettered"`
}

// SnapshotResult is a game snapshot plus where it came from.
type SnapshotResult struct {
	localstore.CachedSnapshot
	FromCache bool
}
