// Package lock serializes engine operations that touch the same invoices, parties
// or items across processes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrNotObtained is returned when a key stays held by someone else for longer
// than the configured wait.
var ErrNotObtained = errors.New("lock not obtained")

// Release frees every key obtained by one Acquire call.
type Release func()

// Locker obtains all keys or none.
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (Release, error)
}

// Key formats a lock key such as "party:<id>".
func Key(kind, id string) string {
	return kind + ":" + id
}

// Normalize sorts and de-duplicates keys so concurrent callers take them in the
// same order.
func Normalize(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Noop is used when no Redis is configured; the store's transaction isolation is
// then the only guard.
type Noop struct{}

func (Noop) Acquire(context.Context, ...string) (Release, error) {
	return func() {}, nil
}

// Redis obtains keys with redislock.
type Redis struct {
	client *redislock.Client
	prefix string
	ttl    time.Duration
	wait   time.Duration
	logger *zap.Logger
}

// NewRedis wraps a go-redis client. ttl bounds how long a crashed holder blocks
// others; wait bounds how long Acquire polls for one key.
func NewRedis(rdb redislock.RedisClient, ttl, wait time.Duration, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{
		client: redislock.New(rdb),
		prefix: "cycleshop:lock:",
		ttl:    ttl,
		wait:   wait,
		logger: logger,
	}
}

// Connect creates a go-redis client and verifies it answers.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func (r *Redis) Acquire(ctx context.Context, keys ...string) (Release, error) {
	held := make([]*redislock.Lock, 0, len(keys))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				r.logger.Warn("failed to release lock", zap.String("key", held[i].Key()), zap.Error(err))
			}
		}
	}

	opts := &redislock.Options{RetryStrategy: redislock.LinearBackoff(25 * time.Millisecond)}
	for _, key := range Normalize(keys) {
		waitCtx, cancel := context.WithTimeout(ctx, r.wait)
		l, err := r.client.Obtain(waitCtx, r.prefix+key, r.ttl, opts)
		cancel()
		if err != nil {
			release()
			if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
				r.logger.Info("lock busy", zap.String("key", key))
				return nil, fmt.Errorf("%w: %s", ErrNotObtained, key)
			}
			return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
		}
		held = append(held, l)
	}
	return release, nil
}
