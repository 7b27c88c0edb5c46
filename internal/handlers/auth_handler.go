package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/api/middleware"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/apperr"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/authz"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/metrics"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/utils/logger"
)

type AuthHandler struct {
	accounts   AccountManager
	sessions   SessionManager
	authorizer authz.Authorizer
	limiter    LoginLimiter
	log        *logger.Logger
}

func NewAuthHandler(accounts AccountManager, sessions SessionManager, authorizer authz.Authorizer, limiter LoginLimiter) *AuthHandler {
	return &AuthHandler{
		accounts:   accounts,
		sessions:   sessions,
		authorizer: authorizer,
		limiter:    limiter,
		log:        logger.New("AuthHandler"),
	}
}

// Login handles user login by validating credentials and opening a session.
// @Summary Login user
// @Description Authenticate user and return a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} ErrorResponse "Invalid credentials"
// @Failure 422 {object} ErrorResponse "Validation error"
// @Failure 429 {object} ErrorResponse "Too many attempts"
// @Router /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	throttleKey := fmt.Sprintf("%s|%s", strings.ToLower(req.Email), c.RealIP())
	if h.limiter != nil {
		allowed, err := h.limiter.Allow(ctx, throttleKey)
		if err != nil {
			h.log.Warn("Login limiter unavailable: %v", err)
		} else if !allowed {
			metrics.ObserveLogin(metrics.LoginThrottled)
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many login attempts. Please try again later.")
		}
	}

	user, err := h.accounts.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		metrics.ObserveLogin(metrics.LoginFailure)
		return err
	}

	issued, err := h.sessions.Issue(ctx, user, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return err
	}

	if h.limiter != nil {
		if err := h.limiter.Reset(ctx, throttleKey); err != nil {
			h.log.Warn("Failed to reset login attempts: %v", err)
		}
	}
	metrics.ObserveLogin(metrics.LoginSuccess)
	h.log.Info("User %s logged in", user.Email)

	return c.JSON(http.StatusOK, LoginResponse{
		Token:     issued.Token,
		TokenType: "Bearer",
		ExpiresAt: issued.ExpiresAt,
	})
}

// Logout revokes the session behind the presented token.
// @Summary Logout user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MessageResponse
// @Failure 401 {object} ErrorResponse
// @Router /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	session := middleware.GetSession(c)
	if session == nil {
		return apperr.Unauthenticated("Unauthenticated.")
	}
	if err := h.sessions.Revoke(c.Request().Context(), session.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, message("Logged out"))
}

// Me returns the authenticated user with roles, direct permissions and the
// effective permission set.
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} PrincipalResponse
// @Failure 401 {object} ErrorResponse
// @Router /user [get]
func (h *AuthHandler) Me(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := h.accounts.Get(ctx, middleware.GetUserID(c))
	if err != nil {
		return err
	}
	effective, err := h.authorizer.EffectivePermissions(ctx, user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, PrincipalResponse{User: user, EffectivePermissions: effective})
}
