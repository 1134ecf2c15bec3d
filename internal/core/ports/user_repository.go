package ports

import (
	"context"

	"github.com/ministry-digital/portal-api/internal/core/domain"
)

// UserRepository defines the persistence interface for user records.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	UpdateStatus(ctx context.Context, id string, status domain.UserStatus) error
	SetPassword(ctx context.Context, id, passwordHash string, firstLogin bool) error
	SetTwoFactor(ctx context.Context, id string, tf domain.TwoFactor) error

	// ConsumeBackupCode atomically marks the backup code at index idx as
	// used, conditioned on it still being unused. Returns
	// domain.ErrInvalidCode when the code was already consumed, so the same
	// code can never authenticate twice even under concurrent submission.
	ConsumeBackupCode(ctx context.Context, id string, idx int) error
}
