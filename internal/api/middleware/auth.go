package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/apperr"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/models"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/utils/logger"
)

var log = logger.New("AUTH_MIDDLEWARE")

const (
	contextKeyUser    = "user"
	contextKeySession = "session"
)

// SessionResolver turns a bearer token into its principal and session.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, *models.Session, error)
}

type AuthMiddleware struct {
	sessions SessionResolver
}

func NewAuthMiddleware(sessions SessionResolver) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// Middleware requires a bearer token backed by a live session.
func (m *AuthMiddleware) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return apperr.Unauthenticated("Unauthenticated.")
			}

			tokenParts := strings.SplitN(authHeader, " ", 2)
			if len(tokenParts) != 2 || !strings.EqualFold(tokenParts[0], "Bearer") || tokenParts[1] == "" {
				return apperr.Unauthenticated("Unauthenticated.")
			}

			user, session, err := m.sessions.Resolve(c.Request().Context(), strings.TrimSpace(tokenParts[1]))
			if err != nil {
				if !apperr.IsKind(err, apperr.KindAuthentication) {
					log.Error("Failed to resolve session", err)
				}
				return err
			}

			c.Set(contextKeyUser, user)
			c.Set(contextKeySession, session)
			return next(c)
		}
	}
}

// GetUser returns the authenticated principal, or nil on public routes.
func GetUser(c echo.Context) *models.User {
	if user, ok := c.Get(contextKeyUser).(*models.User); ok {
		return user
	}
	return nil
}

func GetUserID(c echo.Context) string {
	if user := GetUser(c); user != nil {
		return user.ID
	}
	return ""
}

func GetSession(c echo.Context) *models.Session {
	if session, ok := c.Get(contextKeySession).(*models.Session); ok {
		return session
	}
	return nil
}
