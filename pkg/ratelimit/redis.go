package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window counter shared through Redis.
type Redis struct {
	client redis.UniversalClient
	prefix string
	cfg    Config
}

// NewRedis returns a limiter storing counters under prefix+key.
func NewRedis(client redis.UniversalClient, prefix string, cfg Config) *Redis {
	return &Redis{client: client, prefix: prefix, cfg: cfg}
}

func (l *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	if !l.cfg.valid() {
		return Decision{}, nil
	}
	k := l.prefix + key

	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit incr: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, k, l.cfg.Window).Err(); err != nil {
			return Decision{}, fmt.Errorf("ratelimit expire: %w", err)
		}
	}

	if count > int64(l.cfg.Requests) {
		ttl, err := l.client.TTL(ctx, k).Result()
		if err != nil {
			return Decision{}, fmt.Errorf("ratelimit ttl: %w", err)
		}
		// A key that lost its expiry would block forever.
		if ttl < 0 {
			_ = l.client.Expire(ctx, k, l.cfg.Window).Err()
			ttl = l.cfg.Window
		}
		return Decision{RetryAfter: ttl}, nil
	}
	return Decision{Allowed: true, Remaining: l.cfg.Requests - int(count)}, nil
}

// Reset clears the window for key.
func (l *Redis) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.prefix+key).Err()
}

var (
	_ Limiter = (*Memory)(nil)
	_ Limiter = (*Redis)(nil)
	_ Limiter = Unlimited{}
)
