package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ministry-digital/portal-api/internal/core/ports"
)

// bucketGrace keeps a bucket around briefly past its window so Reset and
// inspection tooling can still see it.
const bucketGrace = time.Minute

// RateLimiter implements fixed-window counting on Redis.
// Key format: ratelimit:<identifier>:<endpoint>:<window_start_unix>
type RateLimiter struct {
	client *redis.Client
}

// NewRateLimiter creates a RateLimiter wrapping the given Redis client.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

func (l *RateLimiter) Check(ctx context.Context, identifier, endpoint string, limit int, window time.Duration) (ports.RateLimitResult, error) {
	now := time.Now()
	windowStart, windowSecs := windowBounds(now, window)
	key := l.key(identifier, endpoint, windowStart)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window+bucketGrace)
	if _, err := pipe.Exec(ctx); err != nil {
		return ports.RateLimitResult{}, fmt.Errorf("rate limit check: %w", err)
	}

	count := int(incr.Val())
	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return ports.RateLimitResult{
		Allowed:   count <= limit,
		Remaining: remaining,
		ResetAt:   time.Unix(windowStart+windowSecs, 0),
	}, nil
}

func (l *RateLimiter) Reset(ctx context.Context, identifier, endpoint string) (int, error) {
	pattern := fmt.Sprintf("ratelimit:%s:*", identifier)
	if endpoint != "" {
		pattern = fmt.Sprintf("ratelimit:%s:%s:*", identifier, endpoint)
	}

	n := 0
	iter := l.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := l.client.Del(ctx, iter.Val()).Err(); err != nil {
			return n, fmt.Errorf("rate limit reset: %w", err)
		}
		n++
	}
	if err := iter.Err(); err != nil {
		return n, fmt.Errorf("rate limit reset scan: %w", err)
	}
	return n, nil
}

// Cleanup removes orphan buckets that lost their TTL. Normal eviction is
// handled by Redis key expiry.
func (l *RateLimiter) Cleanup(ctx context.Context, _ time.Duration) (int, error) {
	n := 0
	iter := l.client.Scan(ctx, 0, "ratelimit:*", 100).Iterator()
	for iter.Next(ctx) {
		ttl, err := l.client.TTL(ctx, iter.Val()).Result()
		if err != nil {
			return n, fmt.Errorf("rate limit cleanup: %w", err)
		}
		if ttl < 0 {
			if err := l.client.Del(ctx, iter.Val()).Err(); err != nil {
				return n, fmt.Errorf("rate limit cleanup: %w", err)
			}
			n++
		}
	}
	if err := iter.Err(); err != nil {
		return n, fmt.Errorf("rate limit cleanup scan: %w", err)
	}
	return n, nil
}

func (l *RateLimiter) key(identifier, endpoint string, windowStart int64) string {
	return fmt.Sprintf("ratelimit:%s:%s:%d", identifier, endpoint, windowStart)
}

// windowBounds quantizes the window start to wall-clock seconds. Windows
// under one second clamp to one second: Redis keys are second-granular.
func windowBounds(now time.Time, window time.Duration) (start, secs int64) {
	secs = int64(window.Seconds())
	if secs < 1 {
		secs = 1
	}
	start = now.Unix() - now.Unix()%secs
	return start, secs
}
