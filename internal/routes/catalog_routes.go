package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/handlers"
)

// SetupCatalogRoutes mounts role and permission management.
func SetupCatalogRoutes(e *echo.Echo, catalogHandler *handlers.CatalogHandler, authMiddleware echo.MiddlewareFunc) {
	roles := e.Group("/roles", authMiddleware)
	roles.GET("", catalogHandler.ListRoles)
	roles.POST("", catalogHandler.CreateRole)
	roles.DELETE("/:role", catalogHandler.DeleteRole)
	roles.POST("/:role/give-permission", catalogHandler.GivePermissionToRole)
	roles.DELETE("/:role/revoke-permission-to/:permission", catalogHandler.RevokePermissionFromRole)

	permissions := e.Group("/permissions", authMiddleware)
	permissions.GET("", catalogHandler.ListPermissions)
	permissions.POST("", catalogHandler.CreatePermission)
	permissions.DELETE("/:permission", catalogHandler.DeletePermission)
}
