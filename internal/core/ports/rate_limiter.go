package ports

import (
	"context"
	"time"
)

// RateLimitResult reports the outcome of a single rate-limit check.
type RateLimitResult struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// RateLimiter counts requests per (identifier, endpoint) bucket within a
// fixed time window. The window-rollover burst is an accepted approximation
// of fixed-window counting.
type RateLimiter interface {
	// Check increments the bucket and allows the request when the
	// post-increment count is within limit for the current window.
	Check(ctx context.Context, identifier, endpoint string, limit int, window time.Duration) (RateLimitResult, error)

	// Reset clears buckets for an identifier, optionally scoped to one
	// endpoint (empty endpoint clears all). Returns the bucket count cleared.
	Reset(ctx context.Context, identifier, endpoint string) (int, error)

	// Cleanup evicts buckets idle for longer than maxAge and returns the
	// number evicted.
	Cleanup(ctx context.Context, maxAge time.Duration) (int, error)
}
