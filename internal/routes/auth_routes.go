package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/handlers"
)

// SetupAuthRoutes mounts login, logout and the current-user endpoint.
func SetupAuthRoutes(e *echo.Echo, authHandler *handlers.AuthHandler, authMiddleware echo.MiddlewareFunc) {
	// Public routes (no auth required)
	e.POST("/login", authHandler.Login)

	// Protected auth routes (require authentication)
	e.POST("/logout", authHandler.Logout, authMiddleware)
	e.GET("/user", authHandler.Me, authMiddleware)
}
