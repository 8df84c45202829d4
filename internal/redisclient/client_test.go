package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return NewFromRedis(rdb), s
}

func TestLock(t *testing.T) {
	client, s := newTestClient(t)
	ctx := context.Background()

	t.Run("AcquireAndRelease", func(t *testing.T) {
		token, err := client.AcquireLock(ctx, "checkout:u1:t1", time.Minute)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		again, err := client.AcquireLock(ctx, "checkout:u1:t1", time.Minute)
		require.NoError(t, err)
		assert.Empty(t, again)

		require.NoError(t, client.ReleaseLock(ctx, "checkout:u1:t1", token))
		assert.False(t, s.Exists("lock:checkout:u1:t1"))
	})

	t.Run("ReleaseWithForeignTokenKeepsLock", func(t *testing.T) {
		token, err := client.AcquireLock(ctx, "checkout:u2:t1", time.Minute)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		require.NoError(t, client.ReleaseLock(ctx, "checkout:u2:t1", "someone-else"))
		assert.True(t, s.Exists("lock:checkout:u2:t1"))
	})

	t.Run("LockExpires", func(t *testing.T) {
		token, err := client.AcquireLock(ctx, "checkout:u3:t1", time.Second)
		require.NoError(t, err)
		require.NotEmpty(t, token)

		s.FastForward(2 * time.Second)

		token, err = client.AcquireLock(ctx, "checkout:u3:t1", time.Second)
		require.NoError(t, err)
		assert.NotEmpty(t, token)
	})
}

func TestCheckoutSessionCache(t *testing.T) {
	client, s := newTestClient(t)
	ctx := context.Background()

	got, err := client.GetCheckoutSession(ctx, "b1")
	require.NoError(t, err)
	assert.Nil(t, got)

	session := CheckoutSession{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1"}
	require.NoError(t, client.CacheCheckoutSession(ctx, "b1", session, time.Minute))

	got, err = client.GetCheckoutSession(ctx, "b1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session, *got)

	s.FastForward(2 * time.Minute)

	got, err = client.GetCheckoutSession(ctx, "b1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, client.CacheCheckoutSession(ctx, "b2", session, time.Minute))
	require.NoError(t, client.ForgetCheckoutSession(ctx, "b2"))
	got, err = client.GetCheckoutSession(ctx, "b2")
	require.NoError(t, err)
	assert.Nil(t, got)
}
