package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/apperr"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/authz"
)

// Authorize gates a handler on req. It must run before the handler reads
// the body or touches the store. Denials are uniform and never name the
// missing role or permission.
func Authorize(c echo.Context, authorizer authz.Authorizer, req authz.Requirement) error {
	userID := GetUserID(c)
	if userID == "" {
		return apperr.Unauthenticated("Unauthenticated.")
	}

	decision, err := authorizer.Authorize(c.Request().Context(), userID, req)
	if err != nil {
		return err
	}
	if decision != authz.Allow {
		log.Debug("Denied %s %s to user %s", c.Request().Method, c.Path(), userID)
		return apperr.Forbidden()
	}
	return nil
}
