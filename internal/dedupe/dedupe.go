package dedupe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/courtside/internal/game"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultTTL is how long a seen mutation id is remembered. Replays after
// that still dedupe through the ledger's unique column.
const DefaultTTL = 6 * time.Hour

// Cache remembers which client mutations were already applied, so replays
// can be answered without opening a ledger transaction.
type Cache interface {
	Lookup(ctx context.Context, mutationID string) (*game.StatLogEntry, bool, error)
	Remember(ctx context.Context, entry *game.StatLogEntry) error
	Close() error
}

// RedisCache keeps one msgpack-encoded ledger entry per mutation id.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

var (
	_ Cache = (*RedisCache)(nil)
	_ Cache = Noop{}
)

// New connects to redisURL. An empty URL gives a cache that never hits.
func New(ctx context.Context, redisURL string, ttl time.Duration) (Cache, error) {
	if redisURL == "" {
		log.Info("Redis not configured, mutation dedupe relies on the ledger alone")
		return Noop{}, nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisCache(client, ttl), nil
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}
}

func key(mutationID string) string {
	return "courtside:mutation:" + mutationID
}

func (c *RedisCache) Lookup(ctx context.Context, mutationID string) (*game.StatLogEntry, bool, error) {
	data, err := c.client.Get(ctx, key(mutationID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", mutationID, err)
	}
	var entry game.StatLogEntry
	if err := msgpack.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("decode cached entry %s: %w", mutationID, err)
	}
	return &entry, true, nil
}

// Remember stores the entry under its mutation id. The first writer wins.
func (c *RedisCache) Remember(ctx context.Context, entry *game.StatLogEntry) error {
	if entry.ClientMutationID == "" {
		return nil
	}
	data, err := msgpack.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry %d: %w", entry.ID, err)
	}
	if err := c.client.SetNX(ctx, key(entry.ClientMutationID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis setnx %s: %w", entry.ClientMutationID, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Noop never remembers anything.
type Noop struct{}

func (Noop) Lookup(ctx context.Context, mutationID string) (*game.StatLogEntry, bool, error) {
	return nil, false, nil
}

func (Noop) Remember(ctx context.Context, entry *game.StatLogEntry) error { return nil }

func (Noop) Close() error { return nil }
