package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Cookie names shared between the gate and the auth handlers.
const (
	CookieAccessToken  = "accessToken"
	CookieRefreshToken = "refreshToken"
	CookieCSRFToken    = "csrfToken"
)

// CookieWriter writes the token cookies with the portal's hardening
// attributes: http-only, same-site strict, secure outside development.
type CookieWriter struct {
	Secure bool
}

func (w CookieWriter) Set(c echo.Context, name, value string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   w.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (w CookieWriter) Clear(c echo.Context, names ...string) {
	for _, name := range names {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   w.Secure,
			SameSite: http.SameSiteStrictMode,
		})
	}
}

// ClearTokens removes both token cookies, preventing repeated failed
// attempts with garbage tokens.
func (w CookieWriter) ClearTokens(c echo.Context) {
	w.Clear(c, CookieAccessToken, CookieRefreshToken)
}
