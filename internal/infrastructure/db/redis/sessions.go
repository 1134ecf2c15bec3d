package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ministry-digital/portal-api/internal/core/domain"
)

const sessionIndexKey = "sessions:index"

// SessionRegistry stores sessions as JSON documents in Redis so multiple
// portal instances share one registry. Keys carry the absolute session
// lifetime as TTL; idle expiry is evaluated on read, like the in-memory
// registry.
type SessionRegistry struct {
	client      *redis.Client
	idleTimeout time.Duration
	maxLifetime time.Duration
}

func NewSessionRegistry(client *redis.Client, idleTimeout, maxLifetime time.Duration) *SessionRegistry {
	return &SessionRegistry{
		client:      client,
		idleTimeout: idleTimeout,
		maxLifetime: maxLifetime,
	}
}

func (r *SessionRegistry) Create(ctx context.Context, userID, ip, userAgent string) (*domain.Session, error) {
	now := time.Now().UTC()
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

	if err := r.save(ctx, session); err != nil {
		return nil, err
	}
	if err := r.client.SAdd(ctx, sessionIndexKey, session.ID).Err(); err != nil {
		return nil, fmt.Errorf("session index: %w", err)
	}
	return session, nil
}

// Touch advances last-activity. Concurrent touches race last-write-wins,
// which is acceptable since both writes carry monotonic wall-clock times.
// Expired sessions are left alone: a touch must not resurrect them.
func (r *SessionRegistry) Touch(ctx context.Context, sessionID string) error {
	session, err := r.load(ctx, sessionID)
	if err != nil || session == nil || !session.Active {
		return err
	}

	now := time.Now().UTC()
	if session.Expired(now, r.idleTimeout, r.maxLifetime) {
		return nil
	}
	if now.After(session.LastActivity) {
		session.LastActivity = now
		return r.save(ctx, session)
	}
	return nil
}

// Get returns the session, or ErrSessionNotFound once it has passed its
// idle or absolute timeout. The key TTL only covers the absolute lifetime,
// so idle expiry must be evaluated here on every read.
func (r *SessionRegistry) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := r.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Expired(time.Now().UTC(), r.idleTimeout, r.maxLifetime) {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (r *SessionRegistry) Invalidate(ctx context.Context, sessionID string) error {
	session, err := r.load(ctx, sessionID)
	if err != nil || session == nil {
		return err
	}
	if session.Active {
		session.Active = false
		return r.save(ctx, session)
	}
	return nil
}

func (r *SessionRegistry) InvalidateAllForUser(ctx context.Context, userID string) (int, error) {
	sessions, err := r.all(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, s := range sessions {
		if s.UserID == userID && s.Active {
			s.Active = false
			if err := r.save(ctx, s); err != nil {
				return n, err
			}
			n++
		}
	}
	return n, nil
}

func (r *SessionRegistry) ListActiveForUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	sessions, err := r.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	var out []*domain.Session
	for _, s := range sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *SessionRegistry) ListActive(ctx context.Context) ([]*domain.Session, error) {
	sessions, err := r.all(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var out []*domain.Session
	for _, s := range sessions {
		if s.Active && !s.Expired(now, r.idleTimeout, r.maxLifetime) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *SessionRegistry) Stats(ctx context.Context) (domain.SessionStats, error) {
	sessions, err := r.all(ctx)
	if err != nil {
		return domain.SessionStats{}, err
	}

	now := time.Now().UTC()
	stats := domain.SessionStats{TotalSessions: len(sessions)}
	for _, s := range sessions {
		if s.Active && !s.Expired(now, r.idleTimeout, r.maxLifetime) {
			stats.ActiveSessions++
		}
	}
	return stats, nil
}

// PurgeExpired removes inactive and timed-out sessions plus index entries
// whose documents already expired via TTL.
func (r *SessionRegistry) PurgeExpired(ctx context.Context) (int, error) {
	ids, err := r.client.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return 0, fmt.Errorf("session index: %w", err)
	}

	now := time.Now().UTC()
	n := 0
	for _, id := range ids {
		session, err := r.load(ctx, id)
		if err != nil {
			return n, err
		}
		if session == nil || !session.Active || session.Expired(now, r.idleTimeout, r.maxLifetime) {
			if session != nil {
				if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
					return n, fmt.Errorf("session purge: %w", err)
				}
			}
			if err := r.client.SRem(ctx, sessionIndexKey, id).Err(); err != nil {
				return n, fmt.Errorf("session purge index: %w", err)
			}
			n++
		}
	}
	return n, nil
}

func (r *SessionRegistry) load(ctx context.Context, sessionID string) (*domain.Session, error) {
	raw, err := r.client.Get(ctx, r.key(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, fmt.Errorf("session decode: %w", err)
	}
	return &session, nil
}

func (r *SessionRegistry) save(ctx context.Context, session *domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("session encode: %w", err)
	}

	ttl := r.maxLifetime - time.Since(session.CreatedAt)
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := r.client.Set(ctx, r.key(session.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("session set: %w", err)
	}
	return nil
}

func (r *SessionRegistry) all(ctx context.Context) ([]*domain.Session, error) {
	ids, err := r.client.SMembers(ctx, sessionIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("session index: %w", err)
	}

	var out []*domain.Session
	for _, id := range ids {
		session, err := r.load(ctx, id)
		if err != nil {
			return nil, err
		}
		if session != nil {
			out = append(out, session)
		}
	}
	return out, nil
}

func (r *SessionRegistry) key(sessionID string) string {
	return "session:" + sessionID
}
