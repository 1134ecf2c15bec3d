package service

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ministry-digital/portal-api/internal/core/domain"
	"github.com/ministry-digital/portal-api/internal/core/ports"
)

// UserService is the admin-facing account management surface. Accounts are
// suspended, never hard-deleted.
type UserService struct {
	repo     ports.UserRepository
	sessions ports.SessionRegistry
	audit    ports.AuditSink
}

func NewUserService(repo ports.UserRepository, sessions ports.SessionRegistry, audit ports.AuditSink) *UserService {
	return &UserService{repo: repo, sessions: sessions, audit: audit}
}

// Create provisions an account with a temporary password. The first-login
// flag forces a password change before the account is usable normally.
func (s *UserService) Create(ctx context.Context, username, email, password string, role domain.Role) (*domain.User, error) {
	if username == "" || email == "" || len(password) < minPasswordLength {
		return nil, domain.ErrInvalidCredentials
	}
	if !domain.ValidRole(role) {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Status:       domain.StatusActive,
		IsFirstLogin: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	s.record(username, "user created")
	return created, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.repo.List(ctx)
}

func (s *UserService) UpdateRole(ctx context.Context, id string, role domain.Role) error {
	if !domain.ValidRole(role) {
		return domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	user.Role = role
	user.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}

	s.record(user.Username, "role changed to "+string(role))
	return nil
}

// UpdateStatus toggles the account between active and suspended. Suspension
// also revokes the user's live sessions so access ends immediately rather
// than at next token refresh. Returns the number of sessions revoked.
func (s *UserService) UpdateStatus(ctx context.Context, id string, status domain.UserStatus) (int, error) {
	if status != domain.StatusActive && status != domain.StatusSuspended {
		return 0, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return 0, err
	}

	revoked := 0
	if status == domain.StatusSuspended {
		revoked, err = s.sessions.InvalidateAllForUser(ctx, id)
		if err != nil {
			return 0, err
		}
	}

	s.record(user.Username, "status changed to "+string(status))
	return revoked, nil
}

// ResetPassword sets a new temporary password and re-arms the first-login
// flag.
func (s *UserService) ResetPassword(ctx context.Context, id, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.SetPassword(ctx, id, string(hash), true); err != nil {
		return err
	}

	s.record(user.Username, "password reset by admin")
	return nil
}

func (s *UserService) record(username, detail string) {
	if s.audit == nil {
		return
	}
	s.audit.Submit(domain.AuditEvent{
		Type:      domain.AuditUserChange,
		Actor:     username,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
}
