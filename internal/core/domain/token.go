package domain

import (
	"errors"
	"time"
)

// TokenType tags a signed token so an access token can never be replayed
// where a refresh token is required, and vice versa.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")
var ErrTokenExpired = errors.New("token expired")
var ErrInvalidRefreshToken = errors.New("invalid refresh token")
var ErrUnauthenticated = errors.New("authentication required")
var ErrForbidden = errors.New("access forbidden")
var ErrTooManyRequests = errors.New("too many requests")

// TokenPair carries a freshly issued access/refresh token pair together
// with their expiry instants, for the caller to write as cookies.
type TokenPair struct {
	AccessToken      string    `json:"-"`
	RefreshToken     string    `json:"-"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}
