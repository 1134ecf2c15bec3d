package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ministry-digital/portal-api/internal/core/domain"
	"github.com/ministry-digital/portal-api/internal/core/ports"
)

const tokenIssuer = "ministry-portal"

// tokenClaims is the signed claim set shared by both token types. The typ
// field must be checked on every verification so one token kind can never
// stand in for the other.
type tokenClaims struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	SessionID string `json:"sid,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies the HS256-signed access/refresh pair.
type TokenService struct {
	repo       ports.UserRepository
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(repo ports.UserRepository, secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &TokenService{
		repo:       repo,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (s *TokenService) IssueAccessToken(user *domain.User, sessionID string) (string, time.Time, error) {
	return s.issue(user, sessionID, domain.TokenAccess, s.accessTTL)
}

func (s *TokenService) IssueRefreshToken(user *domain.User, sessionID string) (string, time.Time, error) {
	return s.issue(user, sessionID, domain.TokenRefresh, s.refreshTTL)
}

// IssuePair mints both tokens bound to the same session id.
func (s *TokenService) IssuePair(user *domain.User, sessionID string) (*domain.TokenPair, error) {
	access, accessExp, err := s.IssueAccessToken(user, sessionID)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.IssueRefreshToken(user, sessionID)
	if err != nil {
		return nil, err
	}
	return &domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *TokenService) issue(user *domain.User, sessionID string, typ domain.TokenType, ttl time.Duration) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := tokenClaims{
		Username:  user.Username,
		Role:      string(user.Role),
		SessionID: sessionID,
		TokenType: string(typ),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks signature, expiry and the type tag, in that order of
// failure precedence: a forged token is never reported as merely expired.
func (s *TokenService) Verify(token string, expected domain.TokenType) (*ports.TokenIdentity, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrInvalidToken
	}
	if !parsed.Valid {
		return nil, domain.ErrInvalidToken
	}
	if claims.TokenType != string(expected) {
		return nil, domain.ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, domain.ErrInvalidToken
	}

	return &ports.TokenIdentity{
		UserID:    claims.Subject,
		Username:  claims.Username,
		Role:      domain.Role(claims.Role),
		SessionID: claims.SessionID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token without
// re-authentication. The user is re-loaded so a suspension takes effect on
// the next refresh even while the refresh token itself is still valid.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	identity, err := s.Verify(refreshToken, domain.TokenRefresh)
	if err != nil {
		return "", time.Time{}, domain.ErrInvalidRefreshToken
	}

	user, err := s.repo.FindByID(ctx, identity.UserID)
	if err != nil {
		return "", time.Time{}, domain.ErrInvalidRefreshToken
	}
	if !user.Active() {
		return "", time.Time{}, domain.ErrInvalidRefreshToken
	}

	return s.IssueAccessToken(user, identity.SessionID)
}
