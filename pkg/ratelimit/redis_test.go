package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aussiebroadwan/zenith-auth/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedis(t *testing.T) {
	ctx := context.Background()

	t.Run("fixed window", func(t *testing.T) {
		mr, client := newRedis(t)
		l := ratelimit.NewRedis(client, "rl:login:", ratelimit.Config{Requests: 5, Window: 15 * time.Minute})

		for i := range 5 {
			d, err := l.Allow(ctx, "alice@example.com")
			require.NoError(t, err)
			require.True(t, d.Allowed)
			require.Equal(t, 4-i, d.Remaining)
		}

		d, err := l.Allow(ctx, "alice@example.com")
		require.NoError(t, err)
		require.False(t, d.Allowed)
		require.Equal(t, 15*time.Minute, d.RetryAfter)

		mr.FastForward(15*time.Minute + time.Second)

		d, err = l.Allow(ctx, "alice@example.com")
		require.NoError(t, err)
		require.True(t, d.Allowed)
	})

	t.Run("prefix separates limiters", func(t *testing.T) {
		_, client := newRedis(t)
		a := ratelimit.NewRedis(client, "rl:a:", ratelimit.Config{Requests: 1, Window: time.Minute})
		b := ratelimit.NewRedis(client, "rl:b:", ratelimit.Config{Requests: 1, Window: time.Minute})

		d, _ := a.Allow(ctx, "k")
		require.True(t, d.Allowed)
		d, _ = b.Allow(ctx, "k")
		require.True(t, d.Allowed)
		d, _ = a.Allow(ctx, "k")
		require.False(t, d.Allowed)
	})

	t.Run("reset", func(t *testing.T) {
		_, client := newRedis(t)
		l := ratelimit.NewRedis(client, "rl:", ratelimit.Config{Requests: 1, Window: time.Minute})

		d, _ := l.Allow(ctx, "k")
		require.True(t, d.Allowed)
		require.NoError(t, l.Reset(ctx, "k"))
		d, _ = l.Allow(ctx, "k")
		require.True(t, d.Allowed)
	})

	t.Run("redis down surfaces error", func(t *testing.T) {
		mr, client := newRedis(t)
		l := ratelimit.NewRedis(client, "rl:", ratelimit.Config{Requests: 1, Window: time.Minute})
		mr.Close()

		_, err := l.Allow(ctx, "k")
		require.Error(t, err)
	})
}
