package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ministry-digital/portal-api/internal/api/metrics"
	"github.com/ministry-digital/portal-api/internal/api/middleware"
	"github.com/ministry-digital/portal-api/internal/core/domain"
	"github.com/ministry-digital/portal-api/internal/core/ports"
)

type AuthHandler struct {
	authService  ports.AuthService
	tokenService ports.TokenService
	cookies      middleware.CookieWriter
}

func NewAuthHandler(authService ports.AuthService, tokenService ports.TokenService, cookies middleware.CookieWriter) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		tokenService: tokenService,
		cookies:      cookies,
	}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginTwoFactorRequest struct {
	Username      string `json:"username" validate:"required"`
	Password      string `json:"password" validate:"required"`
	Code          string `json:"code" validate:"required"`
	UseBackupCode bool   `json:"use_backup_code"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=10"`
}

type loginResponse struct {
	User              *domain.User `json:"user,omitempty"`
	TwoFactorRequired bool         `json:"two_factor_required,omitempty"`
}

// Login authenticates a user and sets the token cookies.
//
// @Summary      Login with username and password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.authService.Login(c.Request().Context(), req.Username, req.Password, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return err
	}

	if result.TwoFactorRequired {
		metrics.LoginAttemptsTotal.WithLabelValues("two_factor_required").Inc()
		return c.JSON(http.StatusOK, loginResponse{TwoFactorRequired: true})
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	h.setTokenCookies(c, result.Tokens)
	return c.JSON(http.StatusOK, loginResponse{User: result.User})
}

// LoginTwoFactor completes a two-factor login with a TOTP or backup code.
//
// @Summary      Complete a two-factor login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginTwoFactorRequest  true  "Credentials plus verification code"
// @Success      200   {object}  loginResponse
// @Failure      401   {object}  map[string]string
// @Router       /auth/login/2fa [post]
func (h *AuthHandler) LoginTwoFactor(c echo.Context) error {
	var req loginTwoFactorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	method := "totp"
	if req.UseBackupCode {
		method = "backup_code"
	}

	result, err := h.authService.LoginTwoFactor(c.Request().Context(), req.Username, req.Password, req.Code, req.UseBackupCode, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		metrics.TwoFactorVerificationsTotal.WithLabelValues(method, "failure").Inc()
		return err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	metrics.TwoFactorVerificationsTotal.WithLabelValues(method, "success").Inc()
	h.setTokenCookies(c, result.Tokens)
	return c.JSON(http.StatusOK, loginResponse{User: result.User})
}

// Logout invalidates the caller's session and clears the token cookies.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	if err := h.authService.Logout(c.Request().Context(), id.SessionID); err != nil {
		return err
	}

	h.cookies.ClearTokens(c)
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}

// Refresh exchanges a valid refresh-token cookie for a new access token.
//
// @Summary      Refresh the access token
// @Tags         auth
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	refreshCookie, err := c.Cookie(middleware.CookieRefreshToken)
	if err != nil || refreshCookie.Value == "" {
		return domain.ErrInvalidRefreshToken
	}

	newAccess, exp, err := h.tokenService.Refresh(c.Request().Context(), refreshCookie.Value)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		h.cookies.ClearTokens(c)
		return err
	}

	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
	h.cookies.Set(c, middleware.CookieAccessToken, newAccess, exp)
	return c.JSON(http.StatusOK, map[string]string{"message": "token refreshed"})
}

// Me returns the authenticated caller's identity.
//
// @Summary      Current identity
// @Tags         auth
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"id":       id.UserID,
		"username": id.Username,
		"role":     string(id.Role),
	})
}

// ChangePassword updates the caller's password after re-proof with the
// current one.
//
// @Summary      Change own password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /auth/password [post]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.authService.ChangePassword(c.Request().Context(), id.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "password changed"})
}

func (h *AuthHandler) setTokenCookies(c echo.Context, pair *domain.TokenPair) {
	h.cookies.Set(c, middleware.CookieAccessToken, pair.AccessToken, pair.AccessExpiresAt)
	h.cookies.Set(c, middleware.CookieRefreshToken, pair.RefreshToken, pair.RefreshExpiresAt)
}
