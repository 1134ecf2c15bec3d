package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ministry-digital/portal-api/internal/api/middleware"
	"github.com/ministry-digital/portal-api/internal/core/domain"
	"github.com/ministry-digital/portal-api/internal/core/ports"
)

type stubAuthService struct {
	loginFn          func(ctx context.Context, username, password, ip, userAgent string) (*ports.LoginResult, error)
	loginTwoFactorFn func(ctx context.Context, username, password, code string, useBackupCode bool, ip, userAgent string) (*ports.LoginResult, error)
	logoutFn         func(ctx context.Context, sessionID string) error
	changePasswordFn func(ctx context.Context, userID, currentPassword, newPassword string) error
}

func (s *stubAuthService) Login(ctx context.Context, username, password, ip, userAgent string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, username, password, ip, userAgent)
}

func (s *stubAuthService) LoginTwoFactor(ctx context.Context, username, password, code string, useBackupCode bool, ip, userAgent string) (*ports.LoginResult, error) {
	return s.loginTwoFactorFn(ctx, username, password, code, useBackupCode, ip, userAgent)
}

func (s *stubAuthService) Logout(ctx context.Context, sessionID string) error {
	return s.logoutFn(ctx, sessionID)
}

func (s *stubAuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	return s.changePasswordFn(ctx, userID, currentPassword, newPassword)
}

type stubTokenService struct {
	refreshFn func(ctx context.Context, refreshToken string) (string, time.Time, error)
}

func (s *stubTokenService) IssueAccessToken(*domain.User, string) (string, time.Time, error) {
	return "", time.Time{}, errors.New("not implemented")
}

func (s *stubTokenService) IssueRefreshToken(*domain.User, string) (string, time.Time, error) {
	return "", time.Time{}, errors.New("not implemented")
}

func (s *stubTokenService) IssuePair(*domain.User, string) (*domain.TokenPair, error) {
	return nil, errors.New("not implemented")
}

func (s *stubTokenService) Verify(string, domain.TokenType) (*ports.TokenIdentity, error) {
	return nil, errors.New("not implemented")
}

func (s *stubTokenService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	return s.refreshFn(ctx, refreshToken)
}

func newAuthContext(t *testing.T, method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthHandler_Login_Success(t *testing.T) {
	now := time.Now().UTC()
	stub := &stubAuthService{
		loginFn: func(_ context.Context, username, password, _, _ string) (*ports.LoginResult, error) {
			if username != "alice" || password != "secret-password" {
				t.Fatalf("unexpected args: %s %s", username, password)
			}
			return &ports.LoginResult{
				User: &domain.User{ID: "u1", Username: "alice", Role: domain.RoleEditor},
				Tokens: &domain.TokenPair{
					AccessToken:      "access-token",
					RefreshToken:     "refresh-token",
					AccessExpiresAt:  now.Add(15 * time.Minute),
					RefreshExpiresAt: now.Add(7 * 24 * time.Hour),
				},
			}, nil
		},
	}
	h := NewAuthHandler(stub, &stubTokenService{}, middleware.CookieWriter{})

	c, rec := newAuthContext(t, http.MethodPost, "/auth/login",
		`{"username":"alice","password":"secret-password"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok || user["username"] != "alice" || user["role"] != "editor" {
		t.Fatalf("unexpected user payload: %+v", resp)
	}

	cookies := map[string]string{}
	for _, ck := range rec.Result().Cookies() {
		cookies[ck.Name] = ck.Value
	}
	if cookies[middleware.CookieAccessToken] != "access-token" ||
		cookies[middleware.CookieRefreshToken] != "refresh-token" {
		t.Fatalf("token cookies not set: %v", cookies)
	}
}

func TestAuthHandler_Login_TwoFactorRequired(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string, string, string) (*ports.LoginResult, error) {
			return &ports.LoginResult{
				User:              &domain.User{ID: "u1", Username: "alice"},
				TwoFactorRequired: true,
			}, nil
		},
	}
	h := NewAuthHandler(stub, &stubTokenService{}, middleware.CookieWriter{})

	c, rec := newAuthContext(t, http.MethodPost, "/auth/login",
		`{"username":"alice","password":"secret-password"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["two_factor_required"] != true {
		t.Fatalf("expected two_factor_required, got %+v", resp)
	}
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.CookieAccessToken || ck.Name == middleware.CookieRefreshToken {
			t.Fatal("tokens issued before the second factor")
		}
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string, string, string) (*ports.LoginResult, error) {
			return nil, domain.ErrInvalidCredentials
		},
	}
	h := NewAuthHandler(stub, &stubTokenService{}, middleware.CookieWriter{})

	c, _ := newAuthContext(t, http.MethodPost, "/auth/login",
		`{"username":"alice","password":"wrong-password"}`)
	if err := h.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthHandler_Login_InvalidPayload(t *testing.T) {
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string, string, string) (*ports.LoginResult, error) {
			t.Fatal("should not be called")
			return nil, nil
		},
	}
	h := NewAuthHandler(stub, &stubTokenService{}, middleware.CookieWriter{})

	for _, body := range []string{"not-json", `{"username":"alice"}`} {
		c, _ := newAuthContext(t, http.MethodPost, "/auth/login", body)
		err := h.Login(c)
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %v", body, err)
		}
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	exp := time.Now().UTC().Add(15 * time.Minute)
	tokens := &stubTokenService{
		refreshFn: func(_ context.Context, refreshToken string) (string, time.Time, error) {
			if refreshToken != "refresh-token" {
				return "", time.Time{}, domain.ErrInvalidRefreshToken
			}
			return "new-access-token", exp, nil
		},
	}
	h := NewAuthHandler(&stubAuthService{}, tokens, middleware.CookieWriter{})

	c, rec := newAuthContext(t, http.MethodPost, "/auth/refresh", "")
	c.Request().AddCookie(&http.Cookie{Name: middleware.CookieRefreshToken, Value: "refresh-token"})
	if err := h.Refresh(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	found := false
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.CookieAccessToken && ck.Value == "new-access-token" {
			found = true
		}
	}
	if !found {
		t.Fatal("new access cookie not set")
	}
}

func TestAuthHandler_Refresh_InvalidToken(t *testing.T) {
	tokens := &stubTokenService{
		refreshFn: func(context.Context, string) (string, time.Time, error) {
			return "", time.Time{}, domain.ErrInvalidRefreshToken
		},
	}
	h := NewAuthHandler(&stubAuthService{}, tokens, middleware.CookieWriter{})

	c, rec := newAuthContext(t, http.MethodPost, "/auth/refresh", "")
	c.Request().AddCookie(&http.Cookie{Name: middleware.CookieRefreshToken, Value: "garbage"})
	if err := h.Refresh(c); !errors.Is(err, domain.ErrInvalidRefreshToken) {
		t.Fatalf("expected ErrInvalidRefreshToken, got %v", err)
	}

	cleared := false
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.CookieRefreshToken && ck.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("stale refresh cookie not cleared")
	}
}

func TestAuthHandler_Logout_RequiresIdentity(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, &stubTokenService{}, middleware.CookieWriter{})

	c, _ := newAuthContext(t, http.MethodPost, "/auth/logout", "")
	if err := h.Logout(c); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	invalidated := ""
	stub := &stubAuthService{
		logoutFn: func(_ context.Context, sessionID string) error {
			invalidated = sessionID
			return nil
		},
	}
	h := NewAuthHandler(stub, &stubTokenService{}, middleware.CookieWriter{})

	c, rec := newAuthContext(t, http.MethodPost, "/auth/logout", "")
	c.Set(middleware.CtxUserID, "u1")
	c.Set(middleware.CtxUsername, "alice")
	c.Set(middleware.CtxRole, domain.RoleEditor)
	c.Set(middleware.CtxSessionID, "s1")

	if err := h.Logout(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if invalidated != "s1" {
		t.Fatalf("expected session s1 invalidated, got %q", invalidated)
	}

	cleared := map[string]bool{}
	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			cleared[ck.Name] = true
		}
	}
	if !cleared[middleware.CookieAccessToken] || !cleared[middleware.CookieRefreshToken] {
		t.Fatalf("token cookies not cleared: %v", cleared)
	}
}
