package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shophub-dev/storefront/internal/kv"
)

// SubmitGuard reserves an idempotency key for one checkout attempt.
// Reserve reports whether this caller won the key; a lost reservation
// means the same attempt was already submitted. Release frees the key
// after a failed attempt so the same submission can be retried.
type SubmitGuard interface {
	Reserve(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

func (g *RedisGuard) Reserve(ctx context.Context, key string) (bool, error) {
	return g.rdb.SetNX(ctx, "checkout:"+key, "1", g.ttl).Result()
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.rdb.Del(ctx, "checkout:"+key).Err()
}

type kvGuard struct {
	kvs kv.Store
	ttl time.Duration
	now func() time.Time
}

// NewKVGuard backs the guard with the plain key-value port. Good enough
// for a single-process client; multi-instance deployments use Redis.
// Reservations expire after ttl so a repeat of the same order later is
// not mistaken for a duplicate.
func NewKVGuard(kvs kv.Store, ttl time.Duration) SubmitGuard {
	return &kvGuard{kvs: kvs, ttl: ttl, now: time.Now}
}

func (g *kvGuard) Reserve(ctx context.Context, key string) (bool, error) {
	full := "checkout:" + key
	raw, err := g.kvs.Get(ctx, full)
	switch {
	case err == nil:
		if ts, perr := time.Parse(time.RFC3339Nano, string(raw)); perr == nil && g.now().Sub(ts) < g.ttl {
			return false, nil
		}
		// Expired or unreadable reservation: take it over.
	case !errors.Is(err, kv.ErrNotFound):
		return false, err
	}
	if err := g.kvs.Set(ctx, full, []byte(g.now().Format(time.RFC3339Nano))); err != nil {
		return false, err
	}
	return true, nil
}

func (g *kvGuard) Release(ctx context.Context, key string) error {
	return g.kvs.Delete(ctx, "checkout:"+key)
}
