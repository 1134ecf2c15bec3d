package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/ministry-digital/portal-api/internal/api/middleware"
	"github.com/ministry-digital/portal-api/internal/core/domain"
)

// identity is the resolved caller injected by the Auth middleware.
type identity struct {
	UserID    string
	Username  string
	Role      domain.Role
	SessionID string
}

// ctxIdentity extracts the identity set by the Auth middleware and performs
// a fast-fail check before any service call: a missing user id means the
// middleware never ran on this route.
func ctxIdentity(c echo.Context) (identity, error) {
	userID, _ := c.Get(middleware.CtxUserID).(string)
	if userID == "" {
		return identity{}, domain.ErrUnauthenticated
	}

	username, _ := c.Get(middleware.CtxUsername).(string)
	role, _ := c.Get(middleware.CtxRole).(domain.Role)
	sessionID, _ := c.Get(middleware.CtxSessionID).(string)

	return identity{
		UserID:    userID,
		Username:  username,
		Role:      role,
		SessionID: sessionID,
	}, nil
}
