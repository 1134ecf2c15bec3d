package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"github.com/ministry-digital/portal-api/internal/core/domain"
	"github.com/ministry-digital/portal-api/internal/core/ports"
)

const (
	otpIssuer       = "Ministry Portal"
	backupCodeCount = 10
	backupCodeLen   = 10
)

// backupCodeAlphabet avoids ambiguous characters for codes users type by hand.
const backupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// TwoFactorService manages TOTP secrets and single-use backup codes.
type TwoFactorService struct {
	repo  ports.UserRepository
	audit ports.AuditSink
}

func NewTwoFactorService(repo ports.UserRepository, audit ports.AuditSink) *TwoFactorService {
	return &TwoFactorService{repo: repo, audit: audit}
}

// GenerateSecret produces a fresh shared secret and provisioning URI for an
// authenticator app. Pure: nothing is persisted until Enable verifies the
// user actually holds the secret.
func (s *TwoFactorService) GenerateSecret(username string) (*ports.TwoFactorSetup, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      otpIssuer,
		AccountName: username,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}
	return &ports.TwoFactorSetup{Secret: key.Secret(), OTPUri: key.URL()}, nil
}

// Enable verifies the supplied code against the pending secret, persists
// the secret as enabled and returns the plaintext backup codes exactly
// once. Only bcrypt hashes of the codes are stored.
func (s *TwoFactorService) Enable(ctx context.Context, userID, secret, code string) ([]string, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.TwoFactor.Enabled {
		return nil, domain.ErrTwoFactorEnabled
	}

	// totp.Validate accepts the current and adjacent time steps, which
	// tolerates authenticator clock drift.
	if !totp.Validate(code, secret) {
		return nil, domain.ErrInvalidCode
	}

	plaintext, hashed, err := newBackupCodes()
	if err != nil {
		return nil, err
	}

	tf := domain.TwoFactor{Enabled: true, Secret: secret, BackupCodes: hashed}
	if err := s.repo.SetTwoFactor(ctx, userID, tf); err != nil {
		return nil, err
	}

	s.record(user.Username, "two-factor enabled")
	return plaintext, nil
}

// Verify checks a live TOTP code, or consumes a matching backup code. A
// backup code that has been used once is rejected forever after; the
// repository's conditional update decides the winner when the same code is
// submitted concurrently.
func (s *TwoFactorService) Verify(ctx context.Context, userID, code string, useBackupCode bool) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TwoFactor.Enabled {
		return domain.ErrTwoFactorNotEnabled
	}

	if !useBackupCode {
		if !totp.Validate(code, user.TwoFactor.Secret) {
			return domain.ErrInvalidCode
		}
		return nil
	}

	for i, bc := range user.TwoFactor.BackupCodes {
		if bc.Used {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(bc.Hash), []byte(code)) == nil {
			return s.repo.ConsumeBackupCode(ctx, userID, i)
		}
	}
	return domain.ErrInvalidCode
}

// Disable turns two-factor off after re-proof of identity with both the
// current password and a live code.
func (s *TwoFactorService) Disable(ctx context.Context, userID, currentPassword, code string) error {
	user, err := s.reprove(ctx, userID, currentPassword, code)
	if err != nil {
		return err
	}

	if err := s.repo.SetTwoFactor(ctx, userID, domain.TwoFactor{}); err != nil {
		return err
	}
	s.record(user.Username, "two-factor disabled")
	return nil
}

// RegenerateBackupCodes invalidates every old backup code and issues a
// fresh set, returned in plaintext exactly once.
func (s *TwoFactorService) RegenerateBackupCodes(ctx context.Context, userID, currentPassword, code string) ([]string, error) {
	user, err := s.reprove(ctx, userID, currentPassword, code)
	if err != nil {
		return nil, err
	}

	plaintext, hashed, err := newBackupCodes()
	if err != nil {
		return nil, err
	}

	tf := user.TwoFactor
	tf.BackupCodes = hashed
	if err := s.repo.SetTwoFactor(ctx, userID, tf); err != nil {
		return nil, err
	}

	s.record(user.Username, "backup codes regenerated")
	return plaintext, nil
}

func (s *TwoFactorService) reprove(ctx context.Context, userID, currentPassword, code string) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.TwoFactor.Enabled {
		return nil, domain.ErrTwoFactorNotEnabled
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !totp.Validate(code, user.TwoFactor.Secret) {
		return nil, domain.ErrInvalidCode
	}
	return user, nil
}

func (s *TwoFactorService) record(username, detail string) {
	if s.audit == nil {
		return
	}
	s.audit.Submit(domain.AuditEvent{
		Type:      domain.AuditTwoFactorChange,
		Actor:     username,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	})
}

func newBackupCodes() ([]string, []domain.BackupCode, error) {
	plaintext := make([]string, backupCodeCount)
	hashed := make([]domain.BackupCode, backupCodeCount)
	for i := range plaintext {
		code, err := randomCode(backupCodeLen)
		if err != nil {
			return nil, nil, err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if err != nil {
			return nil, nil, err
		}
		plaintext[i] = code
		hashed[i] = domain.BackupCode{Hash: string(hash)}
	}
	return plaintext, hashed, nil
}

func randomCode(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate backup code: %w", err)
	}
	for i, b := range buf {
		buf[i] = backupCodeAlphabet[int(b)%len(backupCodeAlphabet)]
	}
	return string(buf), nil
}
