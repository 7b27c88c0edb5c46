package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/api/middleware"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/authz"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/models"
)

// CatalogHandler manages roles and permissions. Every endpoint requires the
// admin role.
type CatalogHandler struct {
	catalog    authz.CatalogManager
	authorizer authz.Authorizer
}

func NewCatalogHandler(catalog authz.CatalogManager, authorizer authz.Authorizer) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, authorizer: authorizer}
}

func (h *CatalogHandler) requireAdmin(c echo.Context) error {
	return middleware.Authorize(c, h.authorizer, authz.Role(models.RoleAdmin))
}

// ListRoles
// @Summary List roles
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Role
// @Failure 403 {object} ErrorResponse
// @Router /roles [get]
func (h *CatalogHandler) ListRoles(c echo.Context) error {
	if err := h.requireAdmin(c); err != nil {
		return err
	}
	roles, err := h.catalog.ListRoles(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, roles)
}

// CreateRole
// @Summary Create a role
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateRoleRequest true "Role"
// @Success 201 {object} models.Role
// @Failure 403 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /roles [post]
func (h *CatalogHandler) CreateRole(c echo.Context) error {
	if err := h.requireAdmin(c); err != nil {
		return err
	}

	var req CreateRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	role, err := h.catalog.CreateRole(c.Request().Context(), req.Name, req.Permissions)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, role)
}

// DeleteRole
// @Summary Delete a role
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param role path string true "Role name"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /roles/{role} [delete]
func (h *CatalogHandler) DeleteRole(c echo.Context) error {
	if err := h.requireAdmin(c); err != nil {
		return err
	}
	if err := h.catalog.DeleteRole(c.Request().Context(), pathParam(c, "role")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, message("Deleted"))
}

// GivePermissionToRole
// @Summary Link permissions to a role
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param role path string true "Role name"
// @Param request body GrantPermissionsRequest true "Permission names"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /roles/{role}/give-permission [post]
func (h *CatalogHandler) GivePermissionToRole(c echo.Context) error {
	if err := h.requireAdmin(c); err != nil {
		return err
	}

	var req GrantPermissionsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	if err := h.catalog.GivePermissionToRole(c.Request().Context(), pathParam(c, "role"), req.Permissions); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, message("Permissions granted successfully"))
}

// RevokePermissionFromRole
// @Summary Unlink a permission from a role
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param role path string true "Role name"
// @Param permission path string true "Permission name"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /roles/{role}/revoke-permission-to/{permission} [delete]
func (h *CatalogHandler) RevokePermissionFromRole(c echo.Context) error {
	if err := h.requireAdmin(c); err != nil {
		return err
	}
	if err := h.catalog.RevokePermissionFromRole(c.Request().Context(), pathParam(c, "role"), pathParam(c, "permission")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, message("Deleted"))
}

// ListPermissions
// @Summary List permissions
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Permission
// @Failure 403 {object} ErrorResponse
// @Router /permissions [get]
func (h *CatalogHandler) ListPermissions(c echo.Context) error {
	if err := h.requireAdmin(c); err != nil {
		return err
	}
	permissions, err := h.catalog.ListPermissions(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, permissions)
}

// CreatePermission
// @Summary Create a permission
// @Tags catalog
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreatePermissionRequest true "Permission"
// @Success 201 {object} models.Permission
// @Failure 403 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /permissions [post]
func (h *CatalogHandler) CreatePermission(c echo.Context) error {
	if err := h.requireAdmin(c); err != nil {
		return err
	}

	var req CreatePermissionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	permission, err := h.catalog.CreatePermission(c.Request().Context(), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, permission)
}

// DeletePermission
// @Summary Delete a permission
// @Tags catalog
// @Produce json
// @Security BearerAuth
// @Param permission path string true "Permission name"
// @Success 200 {object} MessageResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /permissions/{permission} [delete]
func (h *CatalogHandler) DeletePermission(c echo.Context) error {
	if err := h.requireAdmin(c); err != nil {
		return err
	}
	if err := h.catalog.DeletePermission(c.Request().Context(), pathParam(c, "permission")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, message("Deleted"))
}
