package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/apperr"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/models"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"admin@gmail.com"`
	Password string `json:"password" validate:"required" example:"password123"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type" example:"Bearer"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=255" example:"User"`
	Email    string `json:"email" validate:"required,email,max=255" example:"user@gmail.com"`
	Password string `json:"password" validate:"required,min=6" example:"password123"`
}

// UpdateUserRequest is partial; omitted fields are left unchanged and
// present fields must not be empty.
type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Password *string `json:"password" validate:"omitempty,min=6"`
}

type AssignRolesRequest struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,required" example:"admin,editor"`
}

type GrantPermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required,min=1,dive,required" example:"edit user"`
}

type CreateRoleRequest struct {
	Name        string   `json:"name" validate:"required,max=255" example:"auditor"`
	Permissions []string `json:"permissions" validate:"omitempty,dive,required"`
}

type CreatePermissionRequest struct {
	Name string `json:"name" validate:"required,max=255" example:"export users"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// PrincipalResponse is the authenticated user with its effective permissions.
type PrincipalResponse struct {
	*models.User
	EffectivePermissions []string `json:"effective_permissions"`
}

func message(msg string) MessageResponse {
	return MessageResponse{Message: msg}
}

// bind decodes the request body. A body that is not valid JSON for req is
// reported as a validation failure.
func bind(c echo.Context, req any) error {
	err := c.Bind(req)
	if err == nil {
		return nil
	}
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		return err
	}

	invalid := apperr.Validation("The given data was invalid.")
	var typeErr *json.UnmarshalTypeError
	if errors.As(he.Internal, &typeErr) && typeErr.Field != "" {
		invalid = invalid.WithField(typeErr.Field, fmt.Sprintf("The %s field has an invalid type.", typeErr.Field))
	}
	return invalid
}

// pathParam returns a decoded path parameter. Catalog names contain spaces,
// so clients send them percent-encoded. echo only leaves params escaped when
// the request carries a RawPath.
func pathParam(c echo.Context, name string) string {
	raw := c.Param(name)
	if c.Request().URL.RawPath == "" {
		return raw
	}
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
