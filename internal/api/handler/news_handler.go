package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type newsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	PublishedAt time.Time `json:"published_at"`
}

// NewsHandler serves the public news listing. In production the listing is
// rendered by the surrounding CMS; here it returns a static feed so the
// public surface can be exercised without credentials.
type NewsHandler struct {
	items []newsItem
}

func NewNewsHandler() *NewsHandler {
	return &NewsHandler{
		items: []newsItem{
			{
				ID:          "maintenance-window",
				Title:       "Scheduled maintenance",
				Summary:     "The portal will be unavailable Sunday 02:00-04:00 UTC.",
				PublishedAt: time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
			},
			{
				ID:          "two-factor-rollout",
				Title:       "Two-factor authentication available",
				Summary:     "Staff accounts can now enable TOTP two-factor login.",
				PublishedAt: time.Date(2026, 8, 12, 9, 0, 0, 0, time.UTC),
			},
		},
	}
}

// List returns the published news items, newest first.
//
// @Summary      Public news listing
// @Tags         news
// @Produce      json
// @Success      200  {array}  newsItem
// @Router       /news [get]
func (h *NewsHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.items)
}
