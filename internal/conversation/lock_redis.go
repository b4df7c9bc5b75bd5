package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"clinic-bot/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultLockTTL   = 10 * time.Second
	defaultLockRetry = 25 * time.Millisecond
	lockKeyPrefix    = "clinic-bot:caller-lock:"
)

// RedisLocker serializes a caller's messages across processes sharing one
// Redis, such as an old and a new instance overlapping during a restart.
// It does not coordinate slot allocation: each process owns its slots.Pool,
// so the service still runs as a single replica.
// The TTL must exceed the slowest expected message handling.
type RedisLocker struct {
	rdb   *redis.Client
	ttl   time.Duration
	retry time.Duration
	log   *slog.Logger
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisLocker{rdb: rdb, ttl: ttl, retry: defaultLockRetry, log: log}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	if l.rdb == nil {
		return nil, fmt.Errorf("conversation: redis locker has no client")
	}
	redisKey := lockKeyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := utils.AcquireLock(ctx, l.rdb, redisKey, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("conversation: acquire caller lock: %w", err)
		}
		if ok {
			break
		}
		t := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The request context may already be done; release on a fresh one.
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			released, err := utils.ReleaseLock(rctx, l.rdb, redisKey, token)
			if err != nil {
				l.log.Warn("caller lock release failed", "err", err)
				return
			}
			if !released {
				l.log.Warn("caller lock expired before release", "ttl", l.ttl.String())
			}
		})
	}, nil
}
