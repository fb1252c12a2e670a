package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/aussiebroadwan/zenith-auth/pkg/ratelimit"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemory(t *testing.T) {
	ctx := context.Background()

	t.Run("allows budget then denies", func(t *testing.T) {
		c := &clock{t: time.Unix(1_700_000_000, 0)}
		l := ratelimit.NewMemory(ratelimit.Config{Requests: 5, Window: 15 * time.Minute}).WithClock(c.now)

		for i := range 5 {
			d, err := l.Allow(ctx, "alice@example.com")
			require.NoError(t, err)
			require.True(t, d.Allowed, "request %d", i+1)
		}

		d, err := l.Allow(ctx, "alice@example.com")
		require.NoError(t, err)
		require.False(t, d.Allowed)
		require.InDelta(t, float64(3*time.Minute), float64(d.RetryAfter), float64(time.Millisecond))
	})

	t.Run("keys are independent", func(t *testing.T) {
		c := &clock{t: time.Unix(1_700_000_000, 0)}
		l := ratelimit.NewMemory(ratelimit.Config{Requests: 1, Window: time.Minute}).WithClock(c.now)

		d, _ := l.Allow(ctx, "a")
		require.True(t, d.Allowed)
		d, _ = l.Allow(ctx, "a")
		require.False(t, d.Allowed)
		d, _ = l.Allow(ctx, "b")
		require.True(t, d.Allowed)
	})

	t.Run("refills over time", func(t *testing.T) {
		c := &clock{t: time.Unix(1_700_000_000, 0)}
		l := ratelimit.NewMemory(ratelimit.Config{Requests: 10, Window: time.Minute}).WithClock(c.now)

		for range 10 {
			d, _ := l.Allow(ctx, "sess")
			require.True(t, d.Allowed)
		}
		d, _ := l.Allow(ctx, "sess")
		require.False(t, d.Allowed)

		c.advance(7 * time.Second)
		d, _ = l.Allow(ctx, "sess")
		require.True(t, d.Allowed)
	})

	t.Run("denied attempts do not consume budget", func(t *testing.T) {
		c := &clock{t: time.Unix(1_700_000_000, 0)}
		l := ratelimit.NewMemory(ratelimit.Config{Requests: 1, Window: time.Minute}).WithClock(c.now)

		d, _ := l.Allow(ctx, "k")
		require.True(t, d.Allowed)
		for range 5 {
			d, _ = l.Allow(ctx, "k")
			require.False(t, d.Allowed)
		}
		c.advance(time.Minute)
		d, _ = l.Allow(ctx, "k")
		require.True(t, d.Allowed)
	})

	t.Run("reset restores budget", func(t *testing.T) {
		l := ratelimit.NewMemory(ratelimit.Config{Requests: 1, Window: time.Hour})
		d, _ := l.Allow(ctx, "k")
		require.True(t, d.Allowed)
		l.Reset("k")
		d, _ = l.Allow(ctx, "k")
		require.True(t, d.Allowed)
	})

	t.Run("invalid config never allows", func(t *testing.T) {
		l := ratelimit.NewMemory(ratelimit.Config{})
		d, err := l.Allow(ctx, "k")
		require.NoError(t, err)
		require.False(t, d.Allowed)
	})
}

func TestRetryAfterSeconds(t *testing.T) {
	require.Equal(t, 1, ratelimit.Decision{}.RetryAfterSeconds())
	require.Equal(t, 2, ratelimit.Decision{RetryAfter: 1500 * time.Millisecond}.RetryAfterSeconds())
	require.Equal(t, 60, ratelimit.Decision{RetryAfter: time.Minute}.RetryAfterSeconds())
}

func TestUnlimited(t *testing.T) {
	d, err := ratelimit.Unlimited{}.Allow(context.Background(), "anything")
	require.NoError(t, err)
	require.True(t, d.Allowed)
}
