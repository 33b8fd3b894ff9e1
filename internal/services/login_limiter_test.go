package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T, max int) (*LoginLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLoginLimiter(client, max, 15*time.Minute), mr
}

func TestLoginLimiterBlocksAfterMaxFailures(t *testing.T) {
	limiter, mr := newTestLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := limiter.Allowed(ctx, "Jane@Example.com")
		require.NoError(t, err)
		assert.True(t, ok)
		require.NoError(t, limiter.RecordFailure(ctx, "jane@example.com"))
	}

	ok, err := limiter.Allowed(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	ttl := mr.TTL(attemptsKey("jane@example.com"))
	assert.Equal(t, 15*time.Minute, ttl)

	mr.FastForward(16 * time.Minute)
	ok, err = limiter.Allowed(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoginLimiterReset(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1)
	ctx := context.Background()

	require.NoError(t, limiter.RecordFailure(ctx, "a@b.co"))
	ok, _ := limiter.Allowed(ctx, "a@b.co")
	assert.False(t, ok)

	require.NoError(t, limiter.Reset(ctx, "a@b.co"))
	ok, _ = limiter.Allowed(ctx, "a@b.co")
	assert.True(t, ok)
}

func TestNilLoginLimiterAllows(t *testing.T) {
	var limiter *LoginLimiter = NewLoginLimiter(nil, 5, time.Minute)
	assert.Nil(t, limiter)

	ok, err := limiter.Allowed(context.Background(), "x@y.z")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, limiter.RecordFailure(context.Background(), "x@y.z"))
	assert.NoError(t, limiter.Reset(context.Background(), "x@y.z"))
}
