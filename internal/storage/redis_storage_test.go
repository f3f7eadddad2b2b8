package storage

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLedgerDefaultsKey(t *testing.T) {
	logger, _ := test.NewNullLogger()
	l := NewRedisLedger(unreachableRedis(t), "", logger)
	assert.Equal(t, DefaultRedisKey, l.key)
}

func TestRedisLedgerMarkHandledFailureKeepsID(t *testing.T) {
	logger, _ := test.NewNullLogger()
	l := NewRedisLedger(unreachableRedis(t), "test:replied", logger)

	err := l.MarkHandled(context.Background(), "c1")
	assert.Error(t, err)
	assert.True(t, l.Has("c1"))
	assert.Equal(t, 1, l.Len())

	// Already present: no second write is attempted.
	assert.NoError(t, l.MarkHandled(context.Background(), "c1"))
}

func TestRedisLedgerLoadError(t *testing.T) {
	logger, _ := test.NewNullLogger()
	l := NewRedisLedger(unreachableRedis(t), "test:replied", logger)
	assert.Error(t, l.Load(context.Background()))
}

func TestRedisLedgerPersistEmptyIsNoop(t *testing.T) {
	logger, _ := test.NewNullLogger()
	l := NewRedisLedger(unreachableRedis(t), "test:replied", logger)
	assert.NoError(t, l.Persist(context.Background()))
}

func TestOpenRedisLedgerRejectsBadURL(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := OpenRedisLedger(context.Background(), "not-a-url", logger)
	assert.Error(t, err)
}
