package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ministry-digital/portal-api/internal/core/domain"
	"github.com/ministry-digital/portal-api/internal/core/ports"
)

type SessionHandler struct {
	sessions ports.SessionRegistry
	audit    ports.AuditSink
}

func NewSessionHandler(sessions ports.SessionRegistry, audit ports.AuditSink) *SessionHandler {
	return &SessionHandler{sessions: sessions, audit: audit}
}

// List returns every active session, optionally filtered by user id.
//
// @Summary      List active sessions
// @Tags         sessions
// @Produce      json
// @Param        user_id  query    string  false  "Filter by owning user"
// @Success      200      {array}  domain.Session
// @Router       /admin/sessions [get]
func (h *SessionHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	if userID := c.QueryParam("user_id"); userID != "" {
		sessions, err := h.sessions.ListActiveForUser(ctx, userID)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, sessions)
	}

	sessions, err := h.sessions.ListActive(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessions)
}

// Stats returns registry totals for the admin dashboard.
//
// @Summary      Session statistics
// @Tags         sessions
// @Produce      json
// @Success      200  {object}  domain.SessionStats
// @Router       /admin/sessions/stats [get]
func (h *SessionHandler) Stats(c echo.Context) error {
	stats, err := h.sessions.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

// Revoke invalidates one session. Idempotent.
//
// @Summary      Revoke a session
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "Session id"
// @Success      200  {object}  map[string]string
// @Router       /admin/sessions/{id} [delete]
func (h *SessionHandler) Revoke(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	sessionID := c.Param("id")
	if err := h.sessions.Invalidate(c.Request().Context(), sessionID); err != nil {
		return err
	}

	h.audit.Submit(domain.AuditEvent{
		Type:      domain.AuditSessionRevoked,
		Actor:     id.Username,
		Detail:    sessionID,
		Timestamp: time.Now().UTC(),
	})
	return c.JSON(http.StatusOK, map[string]string{"message": "session revoked"})
}

// RevokeAllForUser invalidates every session a user holds.
//
// @Summary      Revoke all of a user's sessions
// @Tags         sessions
// @Produce      json
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  map[string]int
// @Router       /admin/users/{id}/sessions [delete]
func (h *SessionHandler) RevokeAllForUser(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	userID := c.Param("id")
	n, err := h.sessions.InvalidateAllForUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	h.audit.Submit(domain.AuditEvent{
		Type:      domain.AuditSessionRevoked,
		Actor:     id.Username,
		Detail:    "all sessions for user " + userID,
		Timestamp: time.Now().UTC(),
	})
	return c.JSON(http.StatusOK, map[string]int{"sessions_revoked": n})
}
