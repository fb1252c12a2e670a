// Package ratelimit provides keyed request limiters. Memory keeps one token
// bucket per key in process; Redis counts fixed windows in a shared Redis so
// several replicas enforce one budget.
package ratelimit

import (
	"context"
	"time"
)

// Config is a budget of Requests per Window. Burst only applies to the
// in-memory limiter and defaults to Requests.
type Config struct {
	Requests int
	Window   time.Duration
	Burst    int
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter consumes one unit of budget for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Unlimited always allows.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (Decision, error) {
	return Decision{Allowed: true}, nil
}

func (c Config) burst() int {
	if c.Burst > 0 {
		return c.Burst
	}
	return c.Requests
}

func (c Config) valid() bool {
	return c.Requests > 0 && c.Window > 0
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds, at least one.
func (d Decision) RetryAfterSeconds() int {
	s := int(d.RetryAfter / time.Second)
	if d.RetryAfter%time.Second != 0 {
		s++
	}
	return max(s, 1)
}
