package ports

import (
	"context"
	"time"

	"github.com/ministry-digital/portal-api/internal/core/domain"
)

// TokenIdentity is the identity recovered from a verified token.
type TokenIdentity struct {
	UserID    string
	Username  string
	Role      domain.Role
	SessionID string
	ExpiresAt time.Time
}

// TokenService issues and verifies the signed access/refresh token pair.
// Writing cookie values is the caller's responsibility.
type TokenService interface {
	IssueAccessToken(user *domain.User, sessionID string) (string, time.Time, error)
	IssueRefreshToken(user *domain.User, sessionID string) (string, time.Time, error)
	IssuePair(user *domain.User, sessionID string) (*domain.TokenPair, error)

	// Verify checks signature, expiry and the token type tag. Fails with
	// domain.ErrTokenExpired for expired tokens and domain.ErrInvalidToken
	// for malformed, forged or wrong-type tokens.
	Verify(token string, expected domain.TokenType) (*TokenIdentity, error)

	// Refresh verifies the refresh token, re-loads the user, confirms the
	// account is still active and issues a new access token. Fails with
	// domain.ErrInvalidRefreshToken on any verification failure.
	Refresh(ctx context.Context, refreshToken string) (string, time.Time, error)
}
