//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shophub-dev/storefront/internal/cart"
	"github.com/shophub-dev/storefront/internal/checkout"
	"github.com/shophub-dev/storefront/internal/kv"
)

func TestRedisBackedClientState(t *testing.T) {
	ctx := context.Background()
	env, err := Setup(ctx)
	require.NoError(t, err)
	defer env.Teardown(ctx)

	rdb := redis.NewClient(&redis.Options{Addr: env.Addr})
	defer rdb.Close()
	store := kv.NewRedis(rdb)

	t.Run("cart survives a new store handle", func(t *testing.T) {
		sess := kv.Prefixed(store, "sess:it:")
		cs := cart.NewStore(sess)
		require.NoError(t, cs.Load(ctx))
		require.NoError(t, cs.Add(ctx, 7, 2, 25.0, 10))

		reloaded := cart.NewStore(sess)
		require.NoError(t, reloaded.Load(ctx))
		require.Equal(t, 1, reloaded.Len())
		assert.InDelta(t, 50.0, reloaded.Total(), 1e-9)
	})

	t.Run("submission guard reserves a key once", func(t *testing.T) {
		guard := checkout.NewRedisGuard(rdb, time.Minute)

		won, err := guard.Reserve(ctx, "attempt-1")
		require.NoError(t, err)
		assert.True(t, won)

		won, err = guard.Reserve(ctx, "attempt-1")
		require.NoError(t, err)
		assert.False(t, won)
	})

	t.Run("session keys are isolated", func(t *testing.T) {
		a := kv.Prefixed(store, "sess:a:")
		b := kv.Prefixed(store, "sess:b:")
		require.NoError(t, a.Set(ctx, kv.KeyAuthToken, []byte("tok")))
		_, err := b.Get(ctx, kv.KeyAuthToken)
		assert.ErrorIs(t, err, kv.ErrNotFound)
	})
}
