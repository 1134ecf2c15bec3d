package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ministry-digital/portal-api/internal/core/ports"
)

type SecurityHandler struct {
	limiter ports.RateLimiter
}

func NewSecurityHandler(limiter ports.RateLimiter) *SecurityHandler {
	return &SecurityHandler{limiter: limiter}
}

type rateLimitResetRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Endpoint   string `json:"endpoint"`
}

// ResetRateLimit clears rate-limit buckets for an identifier, optionally
// scoped to one endpoint. Administrative override for legitimate clients
// locked out by the limiter.
//
// @Summary      Reset rate-limit buckets
// @Tags         security
// @Accept       json
// @Produce      json
// @Param        body  body      rateLimitResetRequest  true  "Identifier and optional endpoint"
// @Success      200   {object}  map[string]int
// @Router       /admin/ratelimit/reset [post]
func (h *SecurityHandler) ResetRateLimit(c echo.Context) error {
	var req rateLimitResetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	n, err := h.limiter.Reset(c.Request().Context(), req.Identifier, req.Endpoint)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"buckets_cleared": n})
}
