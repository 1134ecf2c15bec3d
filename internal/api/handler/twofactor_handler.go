package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ministry-digital/portal-api/internal/core/ports"
)

type TwoFactorHandler struct {
	twoFactor ports.TwoFactorService
}

func NewTwoFactorHandler(twoFactor ports.TwoFactorService) *TwoFactorHandler {
	return &TwoFactorHandler{twoFactor: twoFactor}
}

type enableTwoFactorRequest struct {
	Secret string `json:"secret" validate:"required"`
	Code   string `json:"code" validate:"required"`
}

type disableTwoFactorRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	Code            string `json:"code" validate:"required"`
}

type backupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

// Setup generates a fresh secret and provisioning URI. Nothing is persisted
// until Enable proves the user holds the secret.
//
// @Summary      Begin two-factor enrolment
// @Tags         two-factor
// @Produce      json
// @Success      200  {object}  ports.TwoFactorSetup
// @Router       /auth/2fa/setup [post]
func (h *TwoFactorHandler) Setup(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	setup, err := h.twoFactor.GenerateSecret(id.Username)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, setup)
}

// Enable verifies the first code and activates two-factor. The plaintext
// backup codes in the response are shown exactly once.
//
// @Summary      Enable two-factor
// @Tags         two-factor
// @Accept       json
// @Produce      json
// @Param        body  body      enableTwoFactorRequest  true  "Pending secret and first code"
// @Success      200   {object}  backupCodesResponse
// @Failure      401   {object}  map[string]string
// @Router       /auth/2fa/enable [post]
func (h *TwoFactorHandler) Enable(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req enableTwoFactorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	codes, err := h.twoFactor.Enable(c.Request().Context(), id.UserID, req.Secret, req.Code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, backupCodesResponse{BackupCodes: codes})
}

// Disable turns two-factor off after password and code re-proof.
//
// @Summary      Disable two-factor
// @Tags         two-factor
// @Accept       json
// @Produce      json
// @Param        body  body      disableTwoFactorRequest  true  "Current password and live code"
// @Success      200   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/2fa/disable [post]
func (h *TwoFactorHandler) Disable(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req disableTwoFactorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.twoFactor.Disable(c.Request().Context(), id.UserID, req.CurrentPassword, req.Code); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "two-factor disabled"})
}

// RegenerateBackupCodes invalidates all old backup codes and returns a
// fresh set, shown exactly once.
//
// @Summary      Regenerate backup codes
// @Tags         two-factor
// @Accept       json
// @Produce      json
// @Param        body  body      disableTwoFactorRequest  true  "Current password and live code"
// @Success      200   {object}  backupCodesResponse
// @Failure      401   {object}  map[string]string
// @Router       /auth/2fa/backup-codes [post]
func (h *TwoFactorHandler) RegenerateBackupCodes(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req disableTwoFactorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	codes, err := h.twoFactor.RegenerateBackupCodes(c.Request().Context(), id.UserID, req.CurrentPassword, req.Code)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, backupCodesResponse{BackupCodes: codes})
}
