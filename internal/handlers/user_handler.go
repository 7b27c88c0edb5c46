package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/api/middleware"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/authz"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/models"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/services"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/utils/logger"
)

type UserHandler struct {
	accounts   AccountManager
	authorizer authz.Authorizer
	log        *logger.Logger
}

func NewUserHandler(accounts AccountManager, authorizer authz.Authorizer) *UserHandler {
	return &UserHandler{accounts: accounts, authorizer: authorizer, log: logger.New("UserHandler")}
}

// List returns every user with roles and direct permissions.
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.User
// @Failure 401 {object} ErrorResponse
// @Router /users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.accounts.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// Get returns one user.
// @Summary Get a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.accounts.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Create registers a user holding the default role.
// @Summary Create a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateUserRequest true "User"
// @Success 201 {object} models.User
// @Failure 403 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	if err := middleware.Authorize(c, h.authorizer, authz.Permission(models.PermissionCreateUser)); err != nil {
		return err
	}

	var req CreateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	user, err := h.accounts.Create(c.Request().Context(), services.CreateAccount{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// Update changes the given fields of a user.
// @Summary Update a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body UpdateUserRequest true "Fields to change"
// @Success 200 {object} models.User
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	if err := middleware.Authorize(c, h.authorizer, authz.Permission(models.PermissionEditUser)); err != nil {
		return err
	}

	var req UpdateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	user, err := h.accounts.Update(c.Request().Context(), c.Param("id"), services.UpdateAccount{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Delete removes a user with its links and sessions.
// @Summary Delete a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	if err := middleware.Authorize(c, h.authorizer, authz.Permission(models.PermissionDeleteUser)); err != nil {
		return err
	}
	if err := h.accounts.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, message("User deleted"))
}

// AssignRole gives roles to a user.
// @Summary Assign roles to a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body AssignRolesRequest true "Role names"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /users/{id}/assign-role [post]
func (h *UserHandler) AssignRole(c echo.Context) error {
	if err := middleware.Authorize(c, h.authorizer, authz.Role(models.RoleAdmin)); err != nil {
		return err
	}

	var req AssignRolesRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	if err := h.authorizer.AssignRole(c.Request().Context(), c.Param("id"), req.Roles); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, message("Roles assigned successfully"))
}

// GivePermission grants permissions to a user directly.
// @Summary Grant permissions to a user
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body GrantPermissionsRequest true "Permission names"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /users/{id}/give-permission [post]
func (h *UserHandler) GivePermission(c echo.Context) error {
	if err := middleware.Authorize(c, h.authorizer, authz.Role(models.RoleAdmin)); err != nil {
		return err
	}

	var req GrantPermissionsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	if err := h.authorizer.GrantPermission(c.Request().Context(), c.Param("id"), req.Permissions); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, message("Permissions granted successfully"))
}

// RemoveRole takes a role away from a user.
// @Summary Remove a role from a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param role path string true "Role name"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse "User does not have the role"
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/{id}/remove-role/{role} [delete]
func (h *UserHandler) RemoveRole(c echo.Context) error {
	if err := middleware.Authorize(c, h.authorizer, authz.Role(models.RoleAdmin)); err != nil {
		return err
	}
	if err := h.authorizer.RemoveRole(c.Request().Context(), c.Param("id"), pathParam(c, "role")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, message("Deleted"))
}

// RevokePermission withdraws a direct permission grant.
// @Summary Revoke a direct permission from a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param permission path string true "Permission name"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse "User has no direct grant"
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /users/{id}/revoke-permission-to/{permission} [delete]
func (h *UserHandler) RevokePermission(c echo.Context) error {
	if err := middleware.Authorize(c, h.authorizer, authz.Role(models.RoleAdmin)); err != nil {
		return err
	}
	if err := h.authorizer.RevokePermission(c.Request().Context(), c.Param("id"), pathParam(c, "permission")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, message("Deleted"))
}
