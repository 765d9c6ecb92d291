package identity

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Throttle is the provider's own server-side limit on outgoing mails.
type Throttle interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisThrottle is a fixed-window counter: INCR, then EXPIRE on the first hit.
type RedisThrottle struct {
	C      *redis.Client
	Limit  int64
	Window time.Duration
}

func (t *RedisThrottle) Allow(ctx context.Context, key string) (bool, error) {
	k := "throttle:" + key
	n, err := t.C.Incr(ctx, k).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := t.C.Expire(ctx, k, t.Window).Err(); err != nil {
			return false, err
		}
	}
	return n <= t.Limit, nil
}

type unlimited struct{}

func (unlimited) Allow(context.Context, string) (bool, error) { return true, nil }
