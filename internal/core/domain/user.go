package domain

import (
	"errors"
	"time"
)

// Role enumerates the portal's user roles.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleEditor      Role = "editor"
	RoleContributor Role = "contributor"
	RoleViewer      Role = "viewer"
)

// ValidRole reports whether r is one of the enumerated roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleContributor, RoleViewer:
		return true
	}
	return false
}

// UserStatus represents the account lifecycle state. Accounts are suspended
// rather than deleted.
type UserStatus string

const (
	StatusActive    UserStatus = "active"
	StatusSuspended UserStatus = "suspended"
)

var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already exists")
var ErrUserSuspended = errors.New("user account suspended")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrInvalidCode = errors.New("invalid verification code")
var ErrTwoFactorRequired = errors.New("two-factor verification required")
var ErrTwoFactorEnabled = errors.New("two-factor already enabled")
var ErrTwoFactorNotEnabled = errors.New("two-factor not enabled")

// BackupCode is a single-use two-factor fallback credential, stored hashed.
type BackupCode struct {
	Hash string
	Used bool
}

// TwoFactor holds a user's two-factor authentication state. The plaintext
// secret and backup codes are returned to the caller at most once, at
// generation time; only hashed/derived forms are stored.
type TwoFactor struct {
	Enabled     bool
	Secret      string
	BackupCodes []BackupCode
}

// User models an authenticated actor in the portal.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Status       UserStatus `json:"status"`
	IsFirstLogin bool       `json:"is_first_login"`
	TwoFactor    TwoFactor  `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Active reports whether the account may authenticate.
func (u *User) Active() bool {
	return u.Status == StatusActive
}
