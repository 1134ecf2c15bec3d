// Package memory provides in-process implementations of the session
// registry and rate limiter, suitable for single-node deployments and
// tests. Multi-instance deployments use the Redis implementations instead.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ministry-digital/portal-api/internal/core/domain"
)

// SessionRegistry is a mutex-guarded in-process session table.
type SessionRegistry struct {
	mu          sync.RWMutex
	sessions    map[string]*domain.Session
	idleTimeout time.Duration
	maxLifetime time.Duration

	now func() time.Time // overridable in tests
}

func NewSessionRegistry(idleTimeout, maxLifetime time.Duration) *SessionRegistry {
	return &SessionRegistry{
		sessions:    make(map[string]*domain.Session),
		idleTimeout: idleTimeout,
		maxLifetime: maxLifetime,
		now:         time.Now,
	}
}

func (r *SessionRegistry) Create(_ context.Context, userID, ip, userAgent string) (*domain.Session, error) {
	now := r.now().UTC()
	session := &domain.Session{
		ID:           uuid.NewString(),
		UserID:       userID,
		CreatedAt:    now,
		LastActivity: now,
		IP:           ip,
		UserAgent:    userAgent,
		Active:       true,
		Metadata:     map[string]string{},
	}

	r.mu.Lock()
	r.sessions[session.ID] = session
	r.mu.Unlock()

	return copySession(session), nil
}

// Touch advances last-activity, never backwards. Absent, inactive and
// already-expired sessions are a no-op: touching must not resurrect them.
func (r *SessionRegistry) Touch(_ context.Context, sessionID string) error {
	now := r.now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok || !s.Active || s.Expired(now, r.idleTimeout, r.maxLifetime) {
		return nil
	}
	if now.After(s.LastActivity) {
		s.LastActivity = now
	}
	return nil
}

// Get returns the session, or ErrSessionNotFound once it has passed its
// idle or absolute timeout: expiry is evaluated on read, not only by the
// purge ticker, so a timed-out session stops granting access immediately.
func (r *SessionRegistry) Get(_ context.Context, sessionID string) (*domain.Session, error) {
	now := r.now().UTC()

	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok || s.Expired(now, r.idleTimeout, r.maxLifetime) {
		return nil, domain.ErrSessionNotFound
	}
	return copySession(s), nil
}

// Invalidate is idempotent; invalidating an absent session is not an error.
func (r *SessionRegistry) Invalidate(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[sessionID]; ok {
		s.Active = false
	}
	return nil
}

func (r *SessionRegistry) InvalidateAllForUser(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, s := range r.sessions {
		if s.UserID == userID && s.Active {
			s.Active = false
			n++
		}
	}
	return n, nil
}

func (r *SessionRegistry) ListActiveForUser(_ context.Context, userID string) ([]*domain.Session, error) {
	now := r.now().UTC()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Session
	for _, s := range r.sessions {
		if s.UserID == userID && s.Active && !s.Expired(now, r.idleTimeout, r.maxLifetime) {
			out = append(out, copySession(s))
		}
	}
	return out, nil
}

func (r *SessionRegistry) ListActive(_ context.Context) ([]*domain.Session, error) {
	now := r.now().UTC()

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Session
	for _, s := range r.sessions {
		if s.Active && !s.Expired(now, r.idleTimeout, r.maxLifetime) {
			out = append(out, copySession(s))
		}
	}
	return out, nil
}

func (r *SessionRegistry) Stats(_ context.Context) (domain.SessionStats, error) {
	now := r.now().UTC()

	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := domain.SessionStats{TotalSessions: len(r.sessions)}
	for _, s := range r.sessions {
		if s.Active && !s.Expired(now, r.idleTimeout, r.maxLifetime) {
			stats.ActiveSessions++
		}
	}
	return stats, nil
}

func (r *SessionRegistry) PurgeExpired(_ context.Context) (int, error) {
	now := r.now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, s := range r.sessions {
		if !s.Active || s.Expired(now, r.idleTimeout, r.maxLifetime) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func copySession(s *domain.Session) *domain.Session {
	clone := *s
	if s.Metadata != nil {
		clone.Metadata = make(map[string]string, len(s.Metadata))
		for k, v := range s.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}
