// Package authz decides whether a user holds a role or permission and keeps
// the user_roles and user_permissions link tables consistent.
//
// A user's effective permission set is the union of the permissions of every
// role it holds and the permissions granted to it directly.
package authz

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/apperr"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/metrics"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/models"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/store"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/utils/logger"
)

// Authorizer is the per-user side of the engine.
type Authorizer interface {
	HasRole(ctx context.Context, userID, roleName string) (bool, error)
	HasPermission(ctx context.Context, userID, permissionName string) (bool, error)
	AssignRole(ctx context.Context, userID string, roleNames []string) error
	GrantPermission(ctx context.Context, userID string, permissionNames []string) error
	RemoveRole(ctx context.Context, userID, roleName string) error
	RevokePermission(ctx context.Context, userID, permissionName string) error
	Authorize(ctx context.Context, userID string, req Requirement) (Decision, error)
	RoleNames(ctx context.Context, userID string) ([]string, error)
	EffectivePermissions(ctx context.Context, userID string) ([]string, error)
}

// Engine implements Authorizer and CatalogManager over the relational store.
// It holds no state besides the database handle.
type Engine struct {
	db          *gorm.DB
	roles       store.Repository[models.Role]
	permissions store.Repository[models.Permission]
	log         *logger.Logger
}

var (
	_ Authorizer     = (*Engine)(nil)
	_ CatalogManager = (*Engine)(nil)
)

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{
		db:          db,
		roles:       store.NewRepository[models.Role](db, "role"),
		permissions: store.NewRepository[models.Permission](db, "permission"),
		log:         logger.New("AUTHZ"),
	}
}

// HasRole reports whether the user holds roleName. Unknown role names are
// NotFound.
func (e *Engine) HasRole(ctx context.Context, userID, roleName string) (bool, error) {
	db := e.db.WithContext(ctx)
	role, err := models.GetRoleByName(ctx, db, roleName)
	if err != nil {
		return false, lookupErr(err, "role", roleName)
	}

	var count int64
	if err := db.Model(&models.UserRole{}).
		Where("user_id = ? AND role_id = ?", userID, role.ID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("authz: has role: %w", err)
	}
	return count > 0, nil
}

// HasPermission reports whether permissionName is in the user's effective
// permission set. Unknown permission names are NotFound.
func (e *Engine) HasPermission(ctx context.Context, userID, permissionName string) (bool, error) {
	db := e.db.WithContext(ctx)
	permission, err := models.GetPermissionByName(ctx, db, permissionName)
	if err != nil {
		return false, lookupErr(err, "permission", permissionName)
	}

	direct, err := e.hasDirectPermission(db, userID, permission.ID)
	if err != nil || direct {
		return direct, err
	}

	var count int64
	if err := db.Model(&models.RolePermission{}).
		Joins("JOIN user_roles ON user_roles.role_id = role_permissions.role_id").
		Where("user_roles.user_id = ? AND role_permissions.permission_id = ?", userID, permission.ID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("authz: has permission via role: %w", err)
	}
	return count > 0, nil
}

func (e *Engine) hasDirectPermission(db *gorm.DB, userID, permissionID string) (bool, error) {
	var count int64
	if err := db.Model(&models.UserPermission{}).
		Where("user_id = ? AND permission_id = ?", userID, permissionID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("authz: has direct permission: %w", err)
	}
	return count > 0, nil
}

// AssignRole links every named role to the user. The whole batch is resolved
// before anything is written; an unknown name rejects the batch. Roles the
// user already holds are left as they are.
func (e *Engine) AssignRole(ctx context.Context, userID string, roleNames []string) error {
	names := normalizeNames(roleNames)
	if len(names) == 0 {
		return apperr.Validation("The roles field is required.").WithField("roles", "The roles field is required.")
	}

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUser(tx, userID); err != nil {
			return err
		}
		ids, err := resolveNames(tx, &models.Role{}, "roles", "role", names)
		if err != nil {
			return err
		}
		links := make([]models.UserRole, 0, len(ids))
		for _, id := range ids {
			links = append(links, models.UserRole{UserID: userID, RoleID: id})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
			return fmt.Errorf("authz: assign roles: %w", err)
		}
		e.log.Info("Assigned roles %v to user %s", names, userID)
		return nil
	})
}

// GrantPermission links every named permission to the user directly, with
// the same batch semantics as AssignRole.
func (e *Engine) GrantPermission(ctx context.Context, userID string, permissionNames []string) error {
	names := normalizeNames(permissionNames)
	if len(names) == 0 {
		return apperr.Validation("The permissions field is required.").WithField("permissions", "The permissions field is required.")
	}

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUser(tx, userID); err != nil {
			return err
		}
		ids, err := resolveNames(tx, &models.Permission{}, "permissions", "permission", names)
		if err != nil {
			return err
		}
		links := make([]models.UserPermission, 0, len(ids))
		for _, id := range ids {
			links = append(links, models.UserPermission{UserID: userID, PermissionID: id})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
			return fmt.Errorf("authz: grant permissions: %w", err)
		}
		e.log.Info("Granted permissions %v to user %s", names, userID)
		return nil
	})
}

// RemoveRole deletes the user's link to roleName. A role the user does not
// hold, including one that does not exist, is a DomainError.
func (e *Engine) RemoveRole(ctx context.Context, userID, roleName string) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUser(tx, userID); err != nil {
			return err
		}
		role, err := models.GetRoleByName(ctx, tx, roleName)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Domain("user does not have this role")
			}
			return fmt.Errorf("authz: remove role: %w", err)
		}
		res := tx.Where("user_id = ? AND role_id = ?", userID, role.ID).Delete(&models.UserRole{})
		if res.Error != nil {
			return fmt.Errorf("authz: remove role: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Domain("user does not have this role")
		}
		e.log.Info("Removed role %s from user %s", roleName, userID)
		return nil
	})
}

// RevokePermission deletes the user's direct grant of permissionName. Only
// direct grants are considered: a permission held solely through a role is
// not revocable here and yields a DomainError, as does an unknown name.
func (e *Engine) RevokePermission(ctx context.Context, userID, permissionName string) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUser(tx, userID); err != nil {
			return err
		}
		permission, err := models.GetPermissionByName(ctx, tx, permissionName)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Domain("user does not have this permission")
			}
			return fmt.Errorf("authz: revoke permission: %w", err)
		}
		res := tx.Where("user_id = ? AND permission_id = ?", userID, permission.ID).Delete(&models.UserPermission{})
		if res.Error != nil {
			return fmt.Errorf("authz: revoke permission: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Domain("user does not have this permission")
		}
		e.log.Info("Revoked permission %s from user %s", permissionName, userID)
		return nil
	})
}

// Authorize evaluates req for the user. Unknown role or permission names are
// denied like any other missing capability, so a denial never tells the caller
// whether the name exists.
func (e *Engine) Authorize(ctx context.Context, userID string, req Requirement) (Decision, error) {
	var (
		ok  bool
		err error
	)
	switch req.Kind {
	case KindRole:
		ok, err = e.HasRole(ctx, userID, req.Name)
	case KindPermission:
		ok, err = e.HasPermission(ctx, userID, req.Name)
	default:
		return Deny, fmt.Errorf("authz: unknown requirement kind %q", req.Kind)
	}
	if err != nil {
		if !apperr.IsKind(err, apperr.KindNotFound) {
			return Deny, apperr.Infrastructure(err, "authorization check failed")
		}
		ok = false
	}

	decision := Decision(ok)
	metrics.ObserveDecision(string(req.Kind), ok)
	if !ok {
		e.log.Debug("Denied %s for user %s", req, userID)
	}
	return decision, nil
}

// RoleNames returns the names of the roles the user holds, sorted.
func (e *Engine) RoleNames(ctx context.Context, userID string) ([]string, error) {
	var names []string
	if err := e.db.WithContext(ctx).Model(&models.Role{}).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.name").
		Pluck("roles.name", &names).Error; err != nil {
		return nil, fmt.Errorf("authz: role names: %w", err)
	}
	return names, nil
}

// EffectivePermissions returns the user's effective permission names, sorted
// and deduplicated.
func (e *Engine) EffectivePermissions(ctx context.Context, userID string) ([]string, error) {
	var names []string
	err := e.db.WithContext(ctx).Raw(`
		SELECT permissions.name FROM permissions
		JOIN user_permissions ON user_permissions.permission_id = permissions.id
		WHERE user_permissions.user_id = ?
		UNION
		SELECT permissions.name FROM permissions
		JOIN role_permissions ON role_permissions.permission_id = permissions.id
		JOIN user_roles ON user_roles.role_id = role_permissions.role_id
		WHERE user_roles.user_id = ?`, userID, userID).
		Scan(&names).Error
	if err != nil {
		return nil, fmt.Errorf("authz: effective permissions: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func ensureUser(tx *gorm.DB, userID string) error {
	if !store.ValidID(userID) {
		return apperr.NotFound("user not found")
	}
	var count int64
	if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return fmt.Errorf("authz: load user: %w", err)
	}
	if count == 0 {
		return apperr.NotFound("user not found")
	}
	return nil
}

type namedRow struct {
	ID   string
	Name string
}

// resolveNames maps names to ids for model's table, preserving the order of
// names. Any unknown name fails the whole batch with a ValidationError keyed
// by field.
func resolveNames(tx *gorm.DB, model any, field, noun string, names []string) ([]string, error) {
	var rows []namedRow
	if err := tx.Model(model).Select("id", "name").Where("name IN ?", names).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("authz: resolve %s names: %w", noun, err)
	}
	byName := make(map[string]string, len(rows))
	for _, row := range rows {
		byName[row.Name] = row.ID
	}

	ids := make([]string, 0, len(names))
	var missing []string
	for _, name := range names {
		id, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		ids = append(ids, id)
	}
	if len(missing) > 0 {
		msg := fmt.Sprintf("%s does not exist: %s", noun, strings.Join(missing, ", "))
		return nil, apperr.Validation("%s", msg).WithField(field, msg)
	}
	return ids, nil
}

// normalizeNames drops blanks and duplicates. Names are case-sensitive and
// otherwise kept verbatim.
func normalizeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

func lookupErr(err error, noun, name string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("%s %q not found", noun, name)
	}
	return fmt.Errorf("authz: load %s: %w", noun, err)
}
