package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ministry-digital/portal-api/internal/core/domain"
)

func TestTokenService_IssueAndVerify(t *testing.T) {
	repo := newStubUserRepo()
	user := mustCreateUser(t, repo, "alice", "alice-pass-1", domain.RoleEditor, domain.StatusActive)
	svc := NewTokenService(repo, "secret", 15*time.Minute, time.Hour)

	token, exp, err := svc.IssueAccessToken(user, "sess-1")
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Fatal("expiry should be in the future")
	}

	identity, err := svc.Verify(token, domain.TokenAccess)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if identity.UserID != user.ID || identity.Username != "alice" || identity.Role != domain.RoleEditor {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if identity.SessionID != "sess-1" {
		t.Fatalf("expected session id sess-1, got %s", identity.SessionID)
	}
}

func TestTokenService_Verify_Expired(t *testing.T) {
	repo := newStubUserRepo()
	user := mustCreateUser(t, repo, "bob", "bob-pass-123", domain.RoleViewer, domain.StatusActive)
	svc := NewTokenService(repo, "secret", time.Nanosecond, time.Hour)

	token, _, err := svc.IssueAccessToken(user, "")
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	if _, err := svc.Verify(token, domain.TokenAccess); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestTokenService_Verify_WrongType(t *testing.T) {
	repo := newStubUserRepo()
	user := mustCreateUser(t, repo, "carol", "carol-pass-1", domain.RoleViewer, domain.StatusActive)
	svc := NewTokenService(repo, "secret", 15*time.Minute, time.Hour)

	refresh, _, err := svc.IssueRefreshToken(user, "sess-2")
	if err != nil {
		t.Fatalf("issue refresh token: %v", err)
	}

	// A perfectly signed refresh token must never pass as an access token.
	if _, err := svc.Verify(refresh, domain.TokenAccess); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	access, _, err := svc.IssueAccessToken(user, "sess-2")
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}
	if _, err := svc.Verify(access, domain.TokenRefresh); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenService_Verify_Forged(t *testing.T) {
	repo := newStubUserRepo()
	user := mustCreateUser(t, repo, "dave", "dave-pass-12", domain.RoleViewer, domain.StatusActive)

	issuer := NewTokenService(repo, "secret-a", 15*time.Minute, time.Hour)
	verifier := NewTokenService(repo, "secret-b", 15*time.Minute, time.Hour)

	token, _, err := issuer.IssueAccessToken(user, "")
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	if _, err := verifier.Verify(token, domain.TokenAccess); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong signature, got %v", err)
	}
	if _, err := verifier.Verify("not-a-token", domain.TokenAccess); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestTokenService_Refresh(t *testing.T) {
	repo := newStubUserRepo()
	user := mustCreateUser(t, repo, "erin", "erin-pass-12", domain.RoleEditor, domain.StatusActive)
	svc := NewTokenService(repo, "secret", 15*time.Minute, time.Hour)

	refresh, _, err := svc.IssueRefreshToken(user, "sess-3")
	if err != nil {
		t.Fatalf("issue refresh token: %v", err)
	}

	newAccess, _, err := svc.Refresh(context.Background(), refresh)
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	identity, err := svc.Verify(newAccess, domain.TokenAccess)
	if err != nil {
		t.Fatalf("refreshed token invalid: %v", err)
	}
	if identity.SessionID != "sess-3" {
		t.Fatal("refreshed token lost the session binding")
	}
}

func TestTokenService_Refresh_SuspendedUser(t *testing.T) {
	repo := newStubUserRepo()
	user := mustCreateUser(t, repo, "frank", "frank-pass-1", domain.RoleViewer, domain.StatusActive)
	svc := NewTokenService(repo, "secret", 15*time.Minute, time.Hour)

	refresh, _, err := svc.IssueRefreshToken(user, "")
	if err != nil {
		t.Fatalf("issue refresh token: %v", err)
	}

	// Suspension takes effect at the next refresh, before token expiry.
	if err := repo.UpdateStatus(context.Background(), user.ID, domain.StatusSuspended); err != nil {
		t.Fatalf("suspend user: %v", err)
	}
	if _, _, err := svc.Refresh(context.Background(), refresh); !errors.Is(err, domain.ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}

func TestTokenService_Refresh_RejectsAccessToken(t *testing.T) {
	repo := newStubUserRepo()
	user := mustCreateUser(t, repo, "grace", "grace-pass-1", domain.RoleViewer, domain.StatusActive)
	svc := NewTokenService(repo, "secret", 15*time.Minute, time.Hour)

	access, _, err := svc.IssueAccessToken(user, "")
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}
	if _, _, err := svc.Refresh(context.Background(), access); !errors.Is(err, domain.ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}
}
