package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const cleanupInterval = 5 * time.Minute

// Memory is a per-key token bucket limiter held in process memory.
type Memory struct {
	cfg   Config
	limit rate.Limit
	now   func() time.Time

	limiters sync.Map // map[string]*rate.Limiter

	mu          sync.Mutex
	lastCleanup time.Time
}

// NewMemory returns an in-memory limiter refilling cfg.Requests tokens per
// cfg.Window. An invalid config yields a limiter that never allows.
func NewMemory(cfg Config) *Memory {
	m := &Memory{cfg: cfg, now: time.Now}
	if cfg.valid() {
		m.limit = rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds())
	}
	m.lastCleanup = m.now()
	return m
}

// WithClock replaces the time source; intended for tests.
func (m *Memory) WithClock(now func() time.Time) *Memory {
	m.now = now
	m.lastCleanup = now()
	return m
}

func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()
	l := m.limiter(key, now)

	r := l.ReserveN(now, 1)
	if !r.OK() {
		return Decision{}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{RetryAfter: delay}, nil
	}
	return Decision{Allowed: true, Remaining: int(l.TokensAt(now))}, nil
}

// Reset forgets the bucket for key.
func (m *Memory) Reset(key string) {
	m.limiters.Delete(key)
}

func (m *Memory) limiter(key string, now time.Time) *rate.Limiter {
	if l, ok := m.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	actual, _ := m.limiters.LoadOrStore(key, rate.NewLimiter(m.limit, m.cfg.burst()))
	m.maybeCleanup(now)
	return actual.(*rate.Limiter)
}

// maybeCleanup drops buckets that have refilled completely; they carry no
// state a fresh bucket would not.
func (m *Memory) maybeCleanup(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastCleanup) < cleanupInterval {
		return
	}
	m.lastCleanup = now

	burst := float64(m.cfg.burst())
	m.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).TokensAt(now) >= burst {
			m.limiters.Delete(key)
		}
		return true
	})
}
