package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/ShahbozQurbonov/roles-permissions-tz/docs/swagger"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/handlers"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/metrics"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/routes"
)

func (s *Server) registerRoutes() {
	s.echo.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Roles & Permissions API")
	})
	// Health check
	// @Summary Health check
	// @Description Check if the server and database are up
	// @Produce json
	// @Success 200 {object} map[string]string "OK"
	// @Router /health [get]
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)
	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	auth := s.authMiddleware()

	routes.SetupAuthRoutes(s.echo, handlers.NewAuthHandler(s.accounts, s.sessions, s.engine, s.limiter), auth)
	routes.SetupUserRoutes(s.echo, handlers.NewUserHandler(s.accounts, s.engine), auth)
	routes.SetupCatalogRoutes(s.echo, handlers.NewCatalogHandler(s.engine, s.engine), auth)
}
