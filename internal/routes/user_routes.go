package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/handlers"
)

// SetupUserRoutes mounts user management. Role and permission gates are
// applied inside the handlers.
func SetupUserRoutes(e *echo.Echo, userHandler *handlers.UserHandler, authMiddleware echo.MiddlewareFunc) {
	users := e.Group("/users", authMiddleware)

	users.GET("", userHandler.List)
	users.POST("", userHandler.Create)
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	users.POST("/:id/assign-role", userHandler.AssignRole)
	users.POST("/:id/give-permission", userHandler.GivePermission)
	users.DELETE("/:id/remove-role/:role", userHandler.RemoveRole)
	users.DELETE("/:id/revoke-permission-to/:permission", userHandler.RevokePermission)
}
