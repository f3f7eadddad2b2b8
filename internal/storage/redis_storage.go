package storage

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"neutron-agent/internal/core/ports"
	"neutron-agent/internal/logging"
)

// DefaultRedisKey holds the handled comment id set.
const DefaultRedisKey = "neutron-agent:replied-comments"

// RedisLedger stores handled comment ids in a Redis set.
type RedisLedger struct {
	client *redis.Client
	key    string
	set    idSet
	// dirty is set after a failed write; the next mark rewrites the full set.
	dirty  atomic.Bool
	logger logging.Logger
}

// OpenRedisLedger parses a redis:// URL and verifies the connection.
func OpenRedisLedger(ctx context.Context, url string, logger logging.Logger) (*RedisLedger, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to connect to redis: %w", err)
	}
	return NewRedisLedger(client, DefaultRedisKey, logger), nil
}

func NewRedisLedger(client *redis.Client, key string, logger logging.Logger) *RedisLedger {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisLedger{client: client, key: key, logger: logger}
}

var _ ports.Ledger = (*RedisLedger)(nil)

func (l *RedisLedger) Load(ctx context.Context) error {
	ids, err := l.client.SMembers(ctx, l.key).Result()
	if err != nil {
		return fmt.Errorf("load replied comments: %w", err)
	}
	// Redis sets are unordered; sorting keeps snapshots stable.
	sort.Strings(ids)
	l.set.reset(ids)
	l.logger.WithField("count", len(ids)).Info("Loaded replied comments")
	return nil
}

func (l *RedisLedger) Has(commentID string) bool { return l.set.has(commentID) }

func (l *RedisLedger) MarkHandled(ctx context.Context, commentID string) error {
	if !l.set.add(commentID) {
		return nil
	}
	if l.dirty.Load() {
		return l.repair(ctx)
	}
	if err := l.client.SAdd(ctx, l.key, commentID).Err(); err != nil {
		l.dirty.Store(true)
		return fmt.Errorf("persist replied comment: %w", err)
	}
	return nil
}

func (l *RedisLedger) Persist(ctx context.Context) error {
	ids := l.set.snapshot()
	if len(ids) == 0 {
		return nil
	}
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	if err := l.client.SAdd(ctx, l.key, members...).Err(); err != nil {
		return fmt.Errorf("persist replied comments: %w", err)
	}
	return nil
}

func (l *RedisLedger) repair(ctx context.Context) error {
	if err := l.Persist(ctx); err != nil {
		return err
	}
	l.dirty.Store(false)
	l.logger.WithField("count", l.set.len()).Info("Ledger store repaired")
	return nil
}

func (l *RedisLedger) Len() int { return l.set.len() }

func (l *RedisLedger) Close() error { return l.client.Close() }
