package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ministry-digital/portal-api/internal/core/ports"
)

type bucket struct {
	count       int
	windowStart time.Time
	lastSeen    time.Time
}

// RateLimiter is an in-process fixed-window counter. Buckets are created
// lazily on first request and evicted by Cleanup.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	now func() time.Time // overridable in tests
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (l *RateLimiter) Check(_ context.Context, identifier, endpoint string, limit int, window time.Duration) (ports.RateLimitResult, error) {
	now := l.now()
	// Quantized window start, matching the Redis implementation, so a
	// failover between the two backends does not shift bucket boundaries.
	windowStart := now.Truncate(window)
	key := identifier + "|" + endpoint

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok || !b.windowStart.Equal(windowStart) {
		b = &bucket{windowStart: windowStart}
		l.buckets[key] = b
	}
	b.count++
	b.lastSeen = now

	remaining := limit - b.count
	if remaining < 0 {
		remaining = 0
	}
	return ports.RateLimitResult{
		Allowed:   b.count <= limit,
		Remaining: remaining,
		ResetAt:   b.windowStart.Add(window),
	}, nil
}

func (l *RateLimiter) Reset(_ context.Context, identifier, endpoint string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for key := range l.buckets {
		id, ep, _ := strings.Cut(key, "|")
		if id != identifier {
			continue
		}
		if endpoint != "" && ep != endpoint {
			continue
		}
		delete(l.buckets, key)
		n++
	}
	return n, nil
}

func (l *RateLimiter) Cleanup(_ context.Context, maxAge time.Duration) (int, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > maxAge {
			delete(l.buckets, key)
			n++
		}
	}
	return n, nil
}
