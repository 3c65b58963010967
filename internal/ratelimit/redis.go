package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter shares host slots across server replicas through Redis. Each
// slot is a key that expires after minInterval.
type RedisLimiter struct {
	client      *redis.Client
	prefix      string
	minInterval time.Duration
	poll        time.Duration
	fallback    *Limiter
}

// NewRedis creates a Redis-backed limiter
func NewRedis(client *redis.Client, prefix string, minInterval time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "griva:ratelimit:"
	}
	poll := minInterval / 4
	if poll < 10*time.Millisecond {
		poll = 10 * time.Millisecond
	}
	return &RedisLimiter{
		client:      client,
		prefix:      prefix,
		minInterval: minInterval,
		poll:        poll,
		fallback:    New(minInterval),
	}
}

// Wait blocks until this process claims the host's slot or ctx ends. Redis
// errors drop back to the in-process limiter.
func (r *RedisLimiter) Wait(ctx context.Context, host string) error {
	if r.minInterval <= 0 {
		return ctx.Err()
	}
	key := r.prefix + HostKey(host)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		opCtx, cancel := context.WithTimeout(ctx, time.Second)
		ok, err := r.client.SetNX(opCtx, key, time.Now().UnixMilli(), r.minInterval).Result()
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return r.fallback.Wait(ctx, host)
		}
		if ok {
			return nil
		}

		timer := time.NewTimer(r.poll)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Allow claims the key's slot without waiting. Redis errors fall back to the
// in-process limiter.
func (r *RedisLimiter) Allow(key string) bool {
	if r.minInterval <= 0 {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ok, err := r.client.SetNX(ctx, r.prefix+HostKey(key), time.Now().UnixMilli(), r.minInterval).Result()
	if err != nil {
		return r.fallback.Allow(key)
	}
	return ok
}

var _ RateLimiter = (*RedisLimiter)(nil)
