package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	authmw "github.com/ShahbozQurbonov/roles-permissions-tz/internal/api/middleware"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/api/validator"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/apperr"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/authz"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/config"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/handlers"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/models"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/services"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/utils"
	console "github.com/ShahbozQurbonov/roles-permissions-tz/internal/utils/logger"
)

type Server struct {
	echo     *echo.Echo
	config   *config.Config
	db       *gorm.DB
	engine   *authz.Engine
	accounts *services.AccountService
	sessions *services.SessionService
	limiter  handlers.LoginLimiter
}

var log = console.New("API-Server")

// NewServer @title Roles & Permissions API
// @version 1.0
// @description User accounts with role-based access control.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func NewServer(cfg *config.Config, db *gorm.DB, limiter handlers.LoginLimiter) *Server {
	e := echo.New()
	e.HideBanner = true

	// Create custom validator
	e.Validator = validator.NewValidator()

	// Configure middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentLength},
	}))
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	if cfg.Server.RequestTimeout > 0 {
		e.Use(middleware.ContextTimeoutWithConfig(middleware.ContextTimeoutConfig{
			Timeout: cfg.Server.RequestTimeout,
		}))
	}
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
	}))
	e.Use(middleware.BodyLimit("1M"))
	if cfg.Server.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.Server.RateLimit))))
	}

	// Custom error handler
	e.HTTPErrorHandler = customHTTPErrorHandler

	s := &Server{
		echo:   e,
		config: cfg,
		db:     db,
		engine: authz.NewEngine(db),
		accounts: services.NewAccountService(db, services.AccountConfig{
			DefaultRole: cfg.Accounts.DefaultRole,
			BcryptCost:  cfg.Accounts.BcryptCost,
		}),
		sessions: services.NewSessionService(db, utils.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL, cfg.JWT.Issuer)),
		limiter:  limiter,
	}

	if cfg.Accounts.SeedOnStart {
		if err := models.Seed(context.Background(), db, cfg.Accounts.BcryptCost); err != nil {
			log.Warn("Warning: Failed to seed roles and accounts: %v", err)
		} else {
			log.Success("Successfully seeded roles and accounts")
		}
	}

	s.registerRoutes()
	return s
}

// Sessions exposes the session service for background jobs.
func (s *Server) Sessions() *services.SessionService {
	return s.sessions
}

func (s *Server) authMiddleware() echo.MiddlewareFunc {
	return authmw.NewAuthMiddleware(s.sessions).Middleware()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func (s *Server) Start() error {
	err := s.echo.Start(fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port))
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Health check endpoint
func (s *Server) healthCheck(c echo.Context) error {
	status, code := "healthy", http.StatusOK
	if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(c.Request().Context()) != nil {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]interface{}{
		"status":  status,
		"version": "1.0.0",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// Custom HTTP error handler
func customHTTPErrorHandler(err error, c echo.Context) {
	code, body := errorResponse(err)
	switch {
	case code >= http.StatusInternalServerError:
		log.Error("%s %s failed", err, c.Request().Method, c.Path())
	case errors.Is(err, apperr.ErrDomain):
		log.Debug("%s %s rejected: %v", c.Request().Method, c.Path(), err)
	}

	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			c.Echo().Logger.Error(err)
		}
	}
}

// errorResponse maps err onto a status code and body. Infrastructure
// failures never leak their cause.
func errorResponse(err error) (int, handlers.ErrorResponse) {
	var (
		appErr *apperr.Error
		verrs  validator.ValidationErrors
		he     *echo.HTTPError
	)

	switch {
	case errors.As(err, &verrs):
		return http.StatusUnprocessableEntity, handlers.ErrorResponse{
			Message: verrs.Message(),
			Errors:  verrs.Fields(),
		}
	case errors.As(err, &appErr):
		code := appErr.Kind.HTTPStatus()
		if errors.Is(err, apperr.ErrInfrastructure) {
			return code, handlers.ErrorResponse{Message: "Server Error"}
		}
		return code, handlers.ErrorResponse{Message: appErr.Message, Errors: appErr.Fields}
	case errors.As(err, &he):
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		}
		return he.Code, handlers.ErrorResponse{Message: msg}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, handlers.ErrorResponse{Message: "Request timed out"}
	default:
		return http.StatusInternalServerError, handlers.ErrorResponse{Message: "Server Error"}
	}
}
