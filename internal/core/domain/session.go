package domain

import (
	"errors"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")
var ErrSessionInactive = errors.New("session is not active")

// Session is an ephemeral record of an authenticated browser context.
// Many sessions may exist per user. LastActivity only ever moves forward.
type Session struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	CreatedAt    time.Time         `json:"created_at"`
	LastActivity time.Time         `json:"last_activity"`
	IP           string            `json:"ip"`
	UserAgent    string            `json:"user_agent"`
	Active       bool              `json:"active"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Expired reports whether the session has passed its idle or absolute
// timeout as of now. An expired session must not grant access even if its
// Active flag has not been flipped yet.
func (s *Session) Expired(now time.Time, idle, max time.Duration) bool {
	if idle > 0 && now.Sub(s.LastActivity) > idle {
		return true
	}
	if max > 0 && now.Sub(s.CreatedAt) > max {
		return true
	}
	return false
}

// SessionStats summarises the registry for admin dashboards.
type SessionStats struct {
	TotalSessions  int `json:"total_sessions"`
	ActiveSessions int `json:"active_sessions"`
}
