package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ministry-digital/portal-api/internal/core/domain"
	"github.com/ministry-digital/portal-api/internal/core/ports"
)

type UserHandler struct {
	userService ports.UserService
}

func NewUserHandler(userService ports.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

type createUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=10"`
	Role     string `json:"role" validate:"required,oneof=admin editor contributor viewer"`
}

type updateUserRequest struct {
	Role   string `json:"role,omitempty" validate:"omitempty,oneof=admin editor contributor viewer"`
	Status string `json:"status,omitempty" validate:"omitempty,oneof=active suspended"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=10"`
}

// Create provisions a new account with a temporary password.
//
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      createUserRequest  true  "New account details"
// @Success      201   {object}  domain.User
// @Failure      409   {object}  map[string]string
// @Router       /admin/users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.userService.Create(c.Request().Context(), req.Username, req.Email, req.Password, domain.Role(req.Role))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// List returns all accounts.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Success      200  {array}  domain.User
// @Router       /admin/users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.userService.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// Get returns one account by id.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  domain.User
// @Failure      404  {object}  map[string]string
// @Router       /admin/users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.userService.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Update changes an account's role and/or status. Suspension revokes the
// user's live sessions.
//
// @Summary      Update a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "User id"
// @Param        body  body      updateUserRequest  true  "Fields to change"
// @Success      200   {object}  map[string]int
// @Failure      404   {object}  map[string]string
// @Router       /admin/users/{id} [patch]
func (h *UserHandler) Update(c echo.Context) error {
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Role == "" && req.Status == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "nothing to update")
	}

	id := c.Param("id")
	revoked := 0

	if req.Role != "" {
		if err := h.userService.UpdateRole(c.Request().Context(), id, domain.Role(req.Role)); err != nil {
			return err
		}
	}
	if req.Status != "" {
		n, err := h.userService.UpdateStatus(c.Request().Context(), id, domain.UserStatus(req.Status))
		if err != nil {
			return err
		}
		revoked = n
	}

	return c.JSON(http.StatusOK, map[string]int{"sessions_revoked": revoked})
}

// ResetPassword sets a temporary password and re-arms the first-login flag.
//
// @Summary      Reset a user's password
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      string                true  "User id"
// @Param        body  body      resetPasswordRequest  true  "Temporary password"
// @Success      200   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /admin/users/{id}/reset-password [post]
func (h *UserHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.userService.ResetPassword(c.Request().Context(), c.Param("id"), req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "password reset"})
}
