package service

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ministry-digital/portal-api/internal/core/domain"
	"github.com/ministry-digital/portal-api/internal/core/ports"
)

const minPasswordLength = 10

// AuthService implements login, logout, refresh and password changes.
type AuthService struct {
	repo      ports.UserRepository
	tokens    ports.TokenService
	sessions  ports.SessionRegistry
	twoFactor ports.TwoFactorService
	audit     ports.AuditSink
}

func NewAuthService(repo ports.UserRepository, tokens ports.TokenService, sessions ports.SessionRegistry, twoFactor ports.TwoFactorService, audit ports.AuditSink) *AuthService {
	return &AuthService{
		repo:      repo,
		tokens:    tokens,
		sessions:  sessions,
		twoFactor: twoFactor,
		audit:     audit,
	}
}

// Login checks credentials and either issues a session and token pair or,
// for two-factor accounts, reports that the second factor is still owed.
func (s *AuthService) Login(ctx context.Context, username, password, ip, userAgent string) (*ports.LoginResult, error) {
	user, err := s.authenticate(ctx, username, password, ip)
	if err != nil {
		return nil, err
	}

	if user.TwoFactor.Enabled {
		return &ports.LoginResult{User: user, TwoFactorRequired: true}, nil
	}
	return s.openSession(ctx, user, ip, userAgent)
}

// LoginTwoFactor completes a two-factor login: credentials are re-proved
// together with the TOTP or backup code before any tokens are issued.
func (s *AuthService) LoginTwoFactor(ctx context.Context, username, password, code string, useBackupCode bool, ip, userAgent string) (*ports.LoginResult, error) {
	user, err := s.authenticate(ctx, username, password, ip)
	if err != nil {
		return nil, err
	}
	if !user.TwoFactor.Enabled {
		return nil, domain.ErrTwoFactorNotEnabled
	}

	if err := s.twoFactor.Verify(ctx, user.ID, code, useBackupCode); err != nil {
		s.record(domain.AuditEvent{
			Type:   domain.AuditLoginFailure,
			Actor:  username,
			IP:     ip,
			Detail: "two-factor verification failed",
		})
		return nil, err
	}
	return s.openSession(ctx, user, ip, userAgent)
}

func (s *AuthService) authenticate(ctx context.Context, username, password, ip string) (*domain.User, error) {
	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		s.record(domain.AuditEvent{Type: domain.AuditLoginFailure, Actor: username, IP: ip, Detail: "unknown user"})
		return nil, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.record(domain.AuditEvent{Type: domain.AuditLoginFailure, Actor: username, IP: ip, Detail: "password mismatch"})
		return nil, domain.ErrInvalidCredentials
	}
	if !user.Active() {
		s.record(domain.AuditEvent{Type: domain.AuditLoginFailure, Actor: username, IP: ip, Detail: "account suspended"})
		return nil, domain.ErrUserSuspended
	}
	return user, nil
}

func (s *AuthService) openSession(ctx context.Context, user *domain.User, ip, userAgent string) (*ports.LoginResult, error) {
	session, err := s.sessions.Create(ctx, user.ID, ip, userAgent)
	if err != nil {
		return nil, err
	}

	pair, err := s.tokens.IssuePair(user, session.ID)
	if err != nil {
		_ = s.sessions.Invalidate(ctx, session.ID)
		return nil, err
	}

	s.record(domain.AuditEvent{Type: domain.AuditLoginSuccess, Actor: user.Username, IP: ip})
	return &ports.LoginResult{User: user, Session: session, Tokens: pair}, nil
}

// Logout invalidates the session. Idempotent.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Invalidate(ctx, sessionID); err != nil {
		return err
	}
	s.record(domain.AuditEvent{Type: domain.AuditLogout, Detail: sessionID})
	return nil
}

// ChangePassword requires re-proof with the current password. Clearing the
// first-login flag is what releases accounts created with a temporary
// password into normal use.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.repo.SetPassword(ctx, user.ID, string(hash), false); err != nil {
		return err
	}

	s.record(domain.AuditEvent{Type: domain.AuditUserChange, Actor: user.Username, Detail: "password changed"})
	return nil
}

func (s *AuthService) record(event domain.AuditEvent) {
	if s.audit == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	s.audit.Submit(event)
}
