package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ministry-digital/portal-api/internal/api/metrics"
	"github.com/ministry-digital/portal-api/internal/core/ports"
)

// rateLimitResponse tells clients when they may retry.
type rateLimitResponse struct {
	Error   string    `json:"error"`
	ResetAt time.Time `json:"reset_at"`
}

// RateLimit throttles requests per client IP using fixed-window counting.
// With an empty scope each route gets its own bucket; a non-empty scope
// (the global API limiter uses "api") shares one bucket across routes so
// stacked limiters never double-count a request. A limiter backend failure
// fails open: availability wins over strictness, the incident is logged.
func RateLimit(limiter ports.RateLimiter, limit int, window time.Duration, scope string, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			endpoint := scope
			if endpoint == "" {
				endpoint = c.Path()
			}
			res, err := limiter.Check(c.Request().Context(), c.RealIP(), endpoint, limit, window)
			if err != nil {
				log.Warn().Err(err).
					Str("path", c.Path()).
					Msg("rate limiter unavailable, allowing request")
				return next(c)
			}

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

			if !res.Allowed {
				metrics.RateLimitHitsTotal.WithLabelValues(endpoint).Inc()
				retryAfter := int(time.Until(res.ResetAt).Seconds()) + 1
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return c.JSON(http.StatusTooManyRequests, rateLimitResponse{
					Error:   "too many requests",
					ResetAt: res.ResetAt,
				})
			}

			return next(c)
		}
	}
}
