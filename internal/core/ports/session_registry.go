package ports

import (
	"context"

	"github.com/ministry-digital/portal-api/internal/core/domain"
)

// SessionRegistry tracks active authenticated browser contexts. The
// in-memory implementation serves single-node deployments; the Redis
// implementation shares the same contract across instances.
type SessionRegistry interface {
	Create(ctx context.Context, userID, ip, userAgent string) (*domain.Session, error)

	// Touch advances the session's last-activity time. Absent sessions are
	// treated as already expired: no error, no-op.
	Touch(ctx context.Context, sessionID string) error

	Get(ctx context.Context, sessionID string) (*domain.Session, error)

	// Invalidate deactivates the session. Idempotent: invalidating an
	// already-inactive or absent session is not an error.
	Invalidate(ctx context.Context, sessionID string) error

	InvalidateAllForUser(ctx context.Context, userID string) (int, error)
	ListActiveForUser(ctx context.Context, userID string) ([]*domain.Session, error)
	ListActive(ctx context.Context) ([]*domain.Session, error)
	Stats(ctx context.Context) (domain.SessionStats, error)

	// PurgeExpired evicts sessions past their idle or absolute timeout and
	// returns the number removed.
	PurgeExpired(ctx context.Context) (int, error)
}
