package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/ministry-digital/portal-api/internal/api/metrics"
	"github.com/ministry-digital/portal-api/internal/core/domain"
)

// RequirePermission gates a route on the declared (resource, action) pair.
// Must run after Auth; a missing role means the identity was never resolved.
func RequirePermission(resource domain.Resource, action domain.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(domain.Role)
			if !ok {
				return domain.ErrUnauthenticated
			}
			if !domain.HasPermission(role, resource, action) {
				metrics.PermissionDeniedTotal.WithLabelValues(string(resource)).Inc()
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}

// RequireAdmin gates admin routes on administrative role membership,
// expressed through the same policy table (admin manages the security
// resource).
func RequireAdmin() echo.MiddlewareFunc {
	return RequirePermission(domain.ResourceSecurity, domain.ActionManage)
}
