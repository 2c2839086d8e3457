// Package ratelimit throttles repeated hits on sensitive endpoints with a
// Redis fixed window per client key.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "ratelimit:"

type Result struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// fixedWindow increments the counter, starts the window on the first hit
// and reports the count with the remaining window in milliseconds.
var fixedWindow = goredis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {n, redis.call('PTTL', KEYS[1])}
`)

// RedisLimiter allows limit hits per key in each window.
type RedisLimiter struct {
	client goredis.Scripter
	limit  int
	window time.Duration
}

func NewRedisLimiter(client goredis.Scripter, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	vals, err := fixedWindow.Run(ctx, l.client, []string{keyPrefix + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: %w", err)
	}
	if len(vals) != 2 {
		return Result{}, fmt.Errorf("ratelimit: unexpected script reply %v", vals)
	}

	count := int(vals[0])
	if count <= l.limit {
		return Result{Allowed: true, Remaining: l.limit - count}, nil
	}

	retry := time.Duration(vals[1]) * time.Millisecond
	if retry <= 0 {
		retry = l.window
	}
	return Result{Allowed: false, RetryAfter: retry}, nil
}
