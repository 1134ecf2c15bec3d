package ports

import (
	"context"

	"github.com/ministry-digital/portal-api/internal/core/domain"
)

// LoginResult is the outcome of a credential check. When the account has
// two-factor enabled, Tokens is nil and TwoFactorRequired is set: the
// client must complete login via the two-factor step.
type LoginResult struct {
	User              *domain.User
	Session           *domain.Session
	Tokens            *domain.TokenPair
	TwoFactorRequired bool
}

// AuthService implements the credential side of the gate: login, logout,
// token refresh and password changes.
type AuthService interface {
	Login(ctx context.Context, username, password, ip, userAgent string) (*LoginResult, error)
	LoginTwoFactor(ctx context.Context, username, password, code string, useBackupCode bool, ip, userAgent string) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
}

// TwoFactorSetup carries the one-time plaintext secret and provisioning URI.
type TwoFactorSetup struct {
	Secret string `json:"secret"`
	OTPUri string `json:"otp_uri"`
}

// TwoFactorService manages per-user TOTP secrets and backup codes.
type TwoFactorService interface {
	GenerateSecret(username string) (*TwoFactorSetup, error)
	Enable(ctx context.Context, userID, secret, code string) ([]string, error)
	Verify(ctx context.Context, userID, code string, useBackupCode bool) error
	Disable(ctx context.Context, userID, currentPassword, code string) error
	RegenerateBackupCodes(ctx context.Context, userID, currentPassword, code string) ([]string, error)
}

// UserService is the admin-facing user management surface.
type UserService interface {
	Create(ctx context.Context, username, email, password string, role domain.Role) (*domain.User, error)
	Get(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) error
	UpdateStatus(ctx context.Context, id string, status domain.UserStatus) (int, error)
	ResetPassword(ctx context.Context, id, newPassword string) error
}
