package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/apperr"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/models"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/store"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/utils/logger"
)

const emailTaken = "The email has already been taken."

// AccountConfig carries the account policy knobs.
type AccountConfig struct {
	// DefaultRole is assigned to every newly created account.
	DefaultRole string
	BcryptCost  int
}

type CreateAccount struct {
	Name     string
	Email    string
	Password string
}

// UpdateAccount is a partial update; nil fields are left untouched.
type UpdateAccount struct {
	Name     *string
	Email    *string
	Password *string
}

// AccountService owns the account lifecycle.
type AccountService struct {
	db    *gorm.DB
	users store.Repository[models.User]
	cfg   AccountConfig
	log   *logger.Logger
}

func NewAccountService(db *gorm.DB, cfg AccountConfig) *AccountService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AccountService{
		db:    db,
		users: store.NewRepository[models.User](db, "user"),
		cfg:   cfg,
		log:   logger.New("ACCOUNTS"),
	}
}

// Create registers an account and gives it the default role in the same
// transaction.
func (s *AccountService) Create(ctx context.Context, in CreateAccount) (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, apperr.Infrastructure(err, "failed to hash password")
	}

	user := &models.User{Name: in.Name, Email: in.Email, Password: string(hashed)}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := emailInUse(tx, in.Email, "")
		if err != nil {
			return err
		}
		if taken {
			return apperr.Validation(emailTaken).WithField("email", emailTaken)
		}

		if err := tx.Create(user).Error; err != nil {
			if store.IsUniqueViolation(err) {
				return apperr.Validation(emailTaken).WithField("email", emailTaken)
			}
			return fmt.Errorf("create user: %w", err)
		}

		if s.cfg.DefaultRole == "" {
			return nil
		}
		role, err := models.GetRoleByName(ctx, tx, s.cfg.DefaultRole)
		if err != nil {
			return fmt.Errorf("load default role %q: %w", s.cfg.DefaultRole, err)
		}
		link := models.UserRole{UserID: user.ID, RoleID: role.ID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
			return fmt.Errorf("assign default role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Success("Created user %s", user.Email)
	return s.Get(ctx, user.ID)
}

// Update applies the non-nil fields of in. Changing the email re-checks
// uniqueness against every other account.
func (s *AccountService) Update(ctx context.Context, id string, in UpdateAccount) (*models.User, error) {
	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.cfg.BcryptCost)
		if err != nil {
			return nil, apperr.Infrastructure(err, "failed to hash password")
		}
		updates["password"] = string(hashed)
	}

	if !store.ValidID(id) {
		return nil, apperr.NotFound("user not found")
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("user not found")
			}
			return fmt.Errorf("load user: %w", err)
		}

		if in.Email != nil && *in.Email != user.Email {
			taken, err := emailInUse(tx, *in.Email, user.ID)
			if err != nil {
				return err
			}
			if taken {
				return apperr.Validation(emailTaken).WithField("email", emailTaken)
			}
			updates["email"] = *in.Email
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			if store.IsUniqueViolation(err) {
				return apperr.Validation(emailTaken).WithField("email", emailTaken)
			}
			return fmt.Errorf("update user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Updated user %s", id)
	return s.Get(ctx, id)
}

// Delete removes the account with its role links, direct grants and
// sessions.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := store.NewRepository[models.User](tx, "user").Exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return apperr.NotFound("user not found")
		}
		for _, link := range []interface{}{&models.UserRole{}, &models.UserPermission{}, &models.Session{}} {
			if err := tx.Where("user_id = ?", id).Delete(link).Error; err != nil {
				return fmt.Errorf("delete user links: %w", err)
			}
		}
		if err := tx.Where("id = ?", id).Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Warn("Deleted user %s", id)
	return nil
}

// Get returns the account with its roles and direct permissions.
func (s *AccountService) Get(ctx context.Context, id string) (*models.User, error) {
	return s.users.Get(ctx, id, "Roles", "Permissions")
}

func (s *AccountService) List(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx, "created_at", "Roles", "Permissions")
}

// Authenticate checks credentials. Unknown emails and wrong passwords fail
// the same way.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := models.GetUserByEmail(ctx, s.db, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthenticated("invalid credentials")
		}
		return nil, apperr.Infrastructure(err, "failed to load user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperr.Unauthenticated("invalid credentials")
	}
	return user, nil
}

func emailInUse(tx *gorm.DB, email, exceptID string) (bool, error) {
	query := tx.Model(&models.User{}).Where("email = ?", email)
	if exceptID != "" {
		query = query.Where("id <> ?", exceptID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return count > 0, nil
}
