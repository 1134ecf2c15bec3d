package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/ministry-digital/portal-api/internal/api/metrics"
	"github.com/ministry-digital/portal-api/internal/core/domain"
	"github.com/ministry-digital/portal-api/internal/core/ports"
)

// Context keys set by the Auth middleware for downstream handlers.
const (
	CtxUserID    = "user_id"
	CtxUsername  = "username"
	CtxRole      = "role"
	CtxSessionID = "session_id"
)

// Auth recovers an authenticated identity from the token cookies and
// injects it into the request context. An expired access token is
// transparently refreshed from the refresh cookie; a failed refresh clears
// both cookies. The session referenced by the token must still be active in
// the registry, so server-side revocation takes effect before token expiry.
func Auth(tokens ports.TokenService, sessions ports.SessionRegistry, cookies CookieWriter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			accessCookie, err := c.Cookie(CookieAccessToken)
			if err != nil || accessCookie.Value == "" {
				return domain.ErrUnauthenticated
			}

			identity, err := tokens.Verify(accessCookie.Value, domain.TokenAccess)
			if err != nil {
				if !errors.Is(err, domain.ErrTokenExpired) {
					cookies.ClearTokens(c)
					return domain.ErrUnauthenticated
				}

				identity, err = refreshAccess(c, tokens, cookies)
				if err != nil {
					cookies.ClearTokens(c)
					return domain.ErrUnauthenticated
				}
			}

			if identity.SessionID != "" {
				session, err := sessions.Get(c.Request().Context(), identity.SessionID)
				if err != nil || !session.Active {
					cookies.ClearTokens(c)
					return domain.ErrUnauthenticated
				}
				_ = sessions.Touch(c.Request().Context(), identity.SessionID)
			}

			c.Set(CtxUserID, identity.UserID)
			c.Set(CtxUsername, identity.Username)
			c.Set(CtxRole, identity.Role)
			c.Set(CtxSessionID, identity.SessionID)

			return next(c)
		}
	}
}

func refreshAccess(c echo.Context, tokens ports.TokenService, cookies CookieWriter) (*ports.TokenIdentity, error) {
	refreshCookie, err := c.Cookie(CookieRefreshToken)
	if err != nil || refreshCookie.Value == "" {
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		return nil, domain.ErrInvalidRefreshToken
	}

	newAccess, exp, err := tokens.Refresh(c.Request().Context(), refreshCookie.Value)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	identity, err := tokens.Verify(newAccess, domain.TokenAccess)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	cookies.Set(c, CookieAccessToken, newAccess, exp)
	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
	return identity, nil
}
