package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindowAllow(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	limiter := SlidingWindow{Client: client, Prefix: "test:"}

	ctx := context.Background()
	window := 2 * time.Second
	max := 2

	for i := 0; i < max; i++ {
		allowed, remaining, _, err := limiter.Allow(ctx, "key", window, max)
		require.NoError(t, err)
		require.True(t, allowed, "request %d", i)
		require.Equal(t, max-(i+1), remaining)
	}

	allowed, remaining, _, err := limiter.Allow(ctx, "key", window, max)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)
	require.True(t, mr.Exists("test:key"))
}

func TestSlidingWindowDisabled(t *testing.T) {
	allowed, remaining, _, err := SlidingWindow{}.Allow(context.Background(), "key", time.Second, 5)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 5, remaining)
}

func TestStoreLimiterFixedWindow(t *testing.T) {
	limiter := NewMemoryLimiter("fixed:")
	ctx := context.Background()

	allowed, remaining, reset, err := limiter.Allow(ctx, "key", time.Minute, 1)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Zero(t, remaining)
	require.True(t, reset.After(time.Now()))

	allowed, _, _, err = limiter.Allow(ctx, "key", time.Minute, 1)
	require.NoError(t, err)
	require.False(t, allowed)
}
