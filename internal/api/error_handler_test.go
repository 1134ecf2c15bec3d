package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ministry-digital/portal-api/internal/core/domain"
)

func renderError(t *testing.T, err error, production bool) (int, string) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	NewHTTPErrorHandler(zerolog.Nop(), production)(err, c)

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error response is not json: %q", rec.Body.String())
	}
	return rec.Code, body["error"]
}

func TestErrorHandler_DomainErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrUnauthenticated, http.StatusUnauthorized},
		{domain.ErrInvalidToken, http.StatusUnauthorized},
		{domain.ErrTokenExpired, http.StatusUnauthorized},
		{domain.ErrInvalidRefreshToken, http.StatusUnauthorized},
		{domain.ErrUserSuspended, http.StatusUnauthorized},
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{domain.ErrInvalidCode, http.StatusUnauthorized},
		{domain.ErrTwoFactorRequired, http.StatusUnauthorized},
		{domain.ErrForbidden, http.StatusForbidden},
		{domain.ErrTooManyRequests, http.StatusTooManyRequests},
		{domain.ErrUserNotFound, http.StatusNotFound},
		{domain.ErrSessionNotFound, http.StatusNotFound},
		{domain.ErrUserExists, http.StatusConflict},
		{domain.ErrTwoFactorEnabled, http.StatusConflict},
		{domain.ErrTwoFactorNotEnabled, http.StatusConflict},
	}
	for _, tc := range cases {
		code, msg := renderError(t, tc.err, true)
		if code != tc.code {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.code, code)
		}
		if msg == "" {
			t.Fatalf("%v: empty error message", tc.err)
		}
	}
}

func TestErrorHandler_AuthFailuresShareOneMessage(t *testing.T) {
	// Token and account-state failures must be indistinguishable to the
	// caller, so a probe cannot learn which check rejected it.
	_, base := renderError(t, domain.ErrUnauthenticated, true)
	for _, err := range []error{
		domain.ErrInvalidToken,
		domain.ErrTokenExpired,
		domain.ErrInvalidRefreshToken,
		domain.ErrUserSuspended,
	} {
		if _, msg := renderError(t, err, true); msg != base {
			t.Fatalf("%v: message %q differs from %q", err, msg, base)
		}
	}
}

func TestErrorHandler_UnexpectedErrorSuppressedInProduction(t *testing.T) {
	leaky := errors.New("dial tcp 10.1.2.3:27017: connection refused")

	code, msg := renderError(t, leaky, true)
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}
	if msg != "internal server error" {
		t.Fatalf("internal detail leaked in production: %q", msg)
	}

	code, msg = renderError(t, leaky, false)
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}
	if msg != leaky.Error() {
		t.Fatalf("expected full detail outside production, got %q", msg)
	}
}

func TestErrorHandler_EchoErrorsPassThrough(t *testing.T) {
	code, msg := renderError(t, echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), true)
	if code != http.StatusBadRequest || msg != "invalid payload" {
		t.Fatalf("expected 400 invalid payload, got %d %q", code, msg)
	}
}
