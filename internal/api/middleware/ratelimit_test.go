package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ministry-digital/portal-api/internal/core/ports"
	"github.com/ministry-digital/portal-api/internal/infrastructure/memory"
)

// failingLimiter simulates a lost backend connection.
type failingLimiter struct{}

func (failingLimiter) Check(context.Context, string, string, int, time.Duration) (ports.RateLimitResult, error) {
	return ports.RateLimitResult{}, errors.New("backend unavailable")
}

func (failingLimiter) Reset(context.Context, string, string) (int, error) { return 0, nil }

func (failingLimiter) Cleanup(context.Context, time.Duration) (int, error) { return 0, nil }

func doLimited(t *testing.T, mw echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:4321"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/auth/login")

	handler := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestRateLimit_AllowsWithinLimit(t *testing.T) {
	mw := RateLimit(memory.NewRateLimiter(), 3, time.Minute, "", zerolog.Nop())

	for i := 0; i < 3; i++ {
		rec := doLimited(t, mw)
		if rec.Code != http.StatusOK {
			t.Fatalf("request #%d: expected 200, got %d", i+1, rec.Code)
		}
	}
}

func TestRateLimit_DeniesOverLimit(t *testing.T) {
	mw := RateLimit(memory.NewRateLimiter(), 2, time.Minute, "", zerolog.Nop())

	doLimited(t, mw)
	doLimited(t, mw)
	rec := doLimited(t, mw)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("Retry-After header missing")
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Fatalf("expected remaining 0, got %q", rec.Header().Get("X-RateLimit-Remaining"))
	}

	var body struct {
		Error   string    `json:"error"`
		ResetAt time.Time `json:"reset_at"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error == "" || body.ResetAt.IsZero() {
		t.Fatalf("incomplete denial body: %+v", body)
	}
}

func TestRateLimit_SetsHeaders(t *testing.T) {
	mw := RateLimit(memory.NewRateLimiter(), 5, time.Minute, "", zerolog.Nop())

	rec := doLimited(t, mw)
	if rec.Header().Get("X-RateLimit-Limit") != "5" {
		t.Fatalf("expected limit header 5, got %q", rec.Header().Get("X-RateLimit-Limit"))
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "4" {
		t.Fatalf("expected remaining header 4, got %q", rec.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimit_ScopedBucketsAreIndependent(t *testing.T) {
	// A route-level limiter and a scope-level limiter stacked on the same
	// request must count in separate buckets.
	limiter := memory.NewRateLimiter()
	routeMW := RateLimit(limiter, 2, time.Minute, "", zerolog.Nop())
	scopeMW := RateLimit(limiter, 100, time.Minute, "api", zerolog.Nop())

	stacked := func(next echo.HandlerFunc) echo.HandlerFunc {
		return scopeMW(routeMW(next))
	}

	doLimited(t, stacked)
	rec := doLimited(t, stacked)
	if rec.Code != http.StatusOK {
		t.Fatalf("second request within route limit denied: %d", rec.Code)
	}
	rec = doLimited(t, stacked)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected route limit to trip on third request, got %d", rec.Code)
	}
}

func TestRateLimit_FailsOpen(t *testing.T) {
	mw := RateLimit(failingLimiter{}, 1, time.Minute, "", zerolog.Nop())

	for i := 0; i < 3; i++ {
		rec := doLimited(t, mw)
		if rec.Code != http.StatusOK {
			t.Fatalf("request #%d: expected fail-open 200, got %d", i+1, rec.Code)
		}
	}
}
