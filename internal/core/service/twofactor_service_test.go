package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"

	"github.com/ministry-digital/portal-api/internal/core/domain"
)

func enableTwoFactor(t *testing.T, svc *TwoFactorService, userID string) (secret string, backupCodes []string) {
	t.Helper()

	setup, err := svc.GenerateSecret("test-user")
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}
	if setup.Secret == "" || setup.OTPUri == "" {
		t.Fatal("expected secret and provisioning uri")
	}

	code, err := totp.GenerateCode(setup.Secret, time.Now())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}

	codes, err := svc.Enable(context.Background(), userID, setup.Secret, code)
	if err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	if len(codes) != backupCodeCount {
		t.Fatalf("expected %d backup codes, got %d", backupCodeCount, len(codes))
	}
	return setup.Secret, codes
}

func TestTwoFactorService_EnableAndVerify(t *testing.T) {
	repo := newStubUserRepo()
	user := mustCreateUser(t, repo, "alice", "alice-pass-1", domain.RoleEditor, domain.StatusActive)
	svc := NewTwoFactorService(repo, nil)

	secret, _ := enableTwoFactor(t, svc, user.ID)

	stored, err := repo.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if !stored.TwoFactor.Enabled || stored.TwoFactor.Secret != secret {
		t.Fatal("two-factor state not persisted")
	}

	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	if err := svc.Verify(context.Background(), user.ID, code, false); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if err := svc.Verify(context.Background(), user.ID, "000000", false); !errors.Is(err, domain.ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}
}

func TestTwoFactorService_Enable_BadCode(t *testing.T) {
	repo := newStubUserRepo()
	user := mustCreateUser(t, repo, "bob", "bob-pass-123", domain.RoleViewer, domain.StatusActive)
	svc := NewTwoFactorService(repo, nil)

	setup, err := svc.GenerateSecret("bob")
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}
	if _, err := svc.Enable(context.Background(), user.ID, setup.Secret, "000000"); !errors.Is(err, domain.ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}

	stored, _ := repo.FindByID(context.Background(), user.ID)
	if stored.TwoFactor.Enabled {
		t.Fatal("two-factor must not be enabled after a failed code")
	}
}

func TestTwoFactorService_BackupCode_SingleUse(t *testing.T) {
	repo := newStubUserRepo()
	user := mustCreateUser(t, repo, "carol", "carol-pass-1", domain.RoleViewer, domain.StatusActive)
	svc := NewTwoFactorService(repo, nil)

	_, codes := enableTwoFactor(t, svc, user.ID)

	if err := svc.Verify(context.Background(), user.ID, codes[0], true); err != nil {
		t.Fatalf("first use of backup code failed: %v", err)
	}
	if err := svc.Verify(context.Background(), user.ID, codes[0], true); !errors.Is(err, domain.ErrInvalidCode) {
		t.Fatalf("consumed backup code must be rejected, got %v", err)
	}

	// A different code still works.
	if err := svc.Verify(context.Background(), user.ID, codes[1], true); err != nil {
		t.Fatalf("unused backup code failed: %v", err)
	}
}

func TestTwoFactorService_BackupCode_ConcurrentUse(t *testing.T) {
	repo := newStubUserRepo()
	user := mustCreateUser(t, repo, "dave", "dave-pass-12", domain.RoleViewer, domain.StatusActive)
	svc := NewTwoFactorService(repo, nil)

	_, codes := enableTwoFactor(t, svc, user.ID)

	const attempts = 8
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.Verify(context.Background(), user.ID, codes[0], true)
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, domain.ErrInvalidCode) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("exactly one concurrent use must succeed, got %d", succeeded)
	}
}

func TestTwoFactorService_Disable(t *testing.T) {
	repo := newStubUserRepo()
	user := mustCreateUser(t, repo, "erin", "erin-pass-12", domain.RoleViewer, domain.StatusActive)
	svc := NewTwoFactorService(repo, nil)

	secret, _ := enableTwoFactor(t, svc, user.ID)

	code, _ := totp.GenerateCode(secret, time.Now())
	if err := svc.Disable(context.Background(), user.ID, "wrong-password", code); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	code, _ = totp.GenerateCode(secret, time.Now())
	if err := svc.Disable(context.Background(), user.ID, "erin-pass-12", code); err != nil {
		t.Fatalf("disable failed: %v", err)
	}

	stored, _ := repo.FindByID(context.Background(), user.ID)
	if stored.TwoFactor.Enabled || stored.TwoFactor.Secret != "" || len(stored.TwoFactor.BackupCodes) != 0 {
		t.Fatalf("two-factor state not cleared: %+v", stored.TwoFactor)
	}
}

func TestTwoFactorService_RegenerateBackupCodes(t *testing.T) {
	repo := newStubUserRepo()
	user := mustCreateUser(t, repo, "frank", "frank-pass-1", domain.RoleViewer, domain.StatusActive)
	svc := NewTwoFactorService(repo, nil)

	secret, oldCodes := enableTwoFactor(t, svc, user.ID)

	code, _ := totp.GenerateCode(secret, time.Now())
	newCodes, err := svc.RegenerateBackupCodes(context.Background(), user.ID, "frank-pass-1", code)
	if err != nil {
		t.Fatalf("regenerate failed: %v", err)
	}
	if len(newCodes) != backupCodeCount {
		t.Fatalf("expected %d codes, got %d", backupCodeCount, len(newCodes))
	}

	// Old codes are invalidated wholesale.
	if err := svc.Verify(context.Background(), user.ID, oldCodes[0], true); !errors.Is(err, domain.ErrInvalidCode) {
		t.Fatalf("old backup code must be rejected, got %v", err)
	}
	if err := svc.Verify(context.Background(), user.ID, newCodes[0], true); err != nil {
		t.Fatalf("new backup code failed: %v", err)
	}
}
