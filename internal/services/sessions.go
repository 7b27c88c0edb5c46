package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/apperr"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/models"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/utils"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/utils/logger"
)

// IssuedToken is the result of a successful login.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
	Session   *models.Session
}

// SessionService issues bearer tokens and keeps the session rows that make
// them valid.
type SessionService struct {
	db     *gorm.DB
	tokens *utils.TokenIssuer
	now    func() time.Time
	log    *logger.Logger
}

func NewSessionService(db *gorm.DB, tokens *utils.TokenIssuer) *SessionService {
	return &SessionService{
		db:     db,
		tokens: tokens,
		now:    func() time.Time { return time.Now().UTC() },
		log:    logger.New("SESSIONS"),
	}
}

// Issue opens a session for user and signs a token bound to it.
func (s *SessionService) Issue(ctx context.Context, user *models.User, ipAddress, userAgent string) (*IssuedToken, error) {
	now := s.now()
	session := &models.Session{
		Base:      models.Base{ID: uuid.New().String()},
		UserID:    user.ID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		ExpiresAt: now.Add(s.tokens.TTL()),
	}

	token, err := s.tokens.GenerateJWT(user.ID, user.Email, session.ID, now, session.ExpiresAt)
	if err != nil {
		return nil, apperr.Infrastructure(err, "failed to generate token")
	}
	if err := s.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, apperr.Infrastructure(err, "failed to create session")
	}

	return &IssuedToken{Token: token, ExpiresAt: session.ExpiresAt, Session: session}, nil
}

// Resolve returns the principal behind token. The token must verify and its
// session must still exist and be unexpired.
func (s *SessionService) Resolve(ctx context.Context, token string) (*models.User, *models.Session, error) {
	claims, err := s.tokens.ParseJWT(token)
	if err != nil {
		return nil, nil, apperr.Unauthenticated("Unauthenticated.")
	}

	var session models.Session
	err = s.db.WithContext(ctx).
		Preload("User").
		Where("id = ? AND user_id = ?", claims.SessionID(), claims.UserID).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperr.Unauthenticated("Unauthenticated.")
		}
		return nil, nil, apperr.Infrastructure(err, "failed to load session")
	}
	if session.Expired(s.now()) || session.User == nil {
		return nil, nil, apperr.Unauthenticated("Unauthenticated.")
	}

	return session.User, &session, nil
}

// Revoke deletes the session, invalidating its token.
func (s *SessionService) Revoke(ctx context.Context, sessionID string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", sessionID).Delete(&models.Session{}).Error; err != nil {
		return apperr.Infrastructure(err, "failed to revoke session")
	}
	return nil
}

// PurgeExpired deletes every expired session and returns how many it removed.
func (s *SessionService) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", s.now()).Delete(&models.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge sessions: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.log.Info("Purged %d expired sessions", res.RowsAffected)
	}
	return res.RowsAffected, nil
}
