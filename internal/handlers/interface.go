package handlers

import (
	"context"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/models"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/services"
)

// AccountManager is the account lifecycle used by the user endpoints.
type AccountManager interface {
	Create(ctx context.Context, in services.CreateAccount) (*models.User, error)
	Update(ctx context.Context, id string, in services.UpdateAccount) (*models.User, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

// SessionManager issues and revokes bearer tokens.
type SessionManager interface {
	Issue(ctx context.Context, user *models.User, ipAddress, userAgent string) (*services.IssuedToken, error)
	Revoke(ctx context.Context, sessionID string) error
}

// LoginLimiter throttles login attempts. A nil LoginLimiter disables
// throttling.
type LoginLimiter interface {
	Allow(ctx context.Context, identifier string) (bool, error)
	Reset(ctx context.Context, identifier string) error
}

var (
	_ AccountManager = (*services.AccountService)(nil)
	_ SessionManager = (*services.SessionService)(nil)
)
