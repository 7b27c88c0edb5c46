package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/apperr"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/models"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/store"
)

// CatalogManager maintains the roles and permissions themselves.
type CatalogManager interface {
	CreateRole(ctx context.Context, name string, permissionNames []string) (*models.Role, error)
	CreatePermission(ctx context.Context, name string) (*models.Permission, error)
	DeleteRole(ctx context.Context, name string) error
	DeletePermission(ctx context.Context, name string) error
	GivePermissionToRole(ctx context.Context, roleName string, permissionNames []string) error
	RevokePermissionFromRole(ctx context.Context, roleName, permissionName string) error
	ListRoles(ctx context.Context) ([]models.Role, error)
	ListPermissions(ctx context.Context) ([]models.Permission, error)
}

// CreateRole creates a role and links the given permissions to it.
func (e *Engine) CreateRole(ctx context.Context, name string, permissionNames []string) (*models.Role, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validation("The name field is required.").WithField("name", "The name field is required.")
	}
	names := normalizeNames(permissionNames)

	role := &models.Role{Name: name}
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Role{}).Where("name = ?", name).Count(&count).Error; err != nil {
			return fmt.Errorf("authz: check role name: %w", err)
		}
		if count > 0 {
			return nameTaken()
		}

		var ids []string
		if len(names) > 0 {
			var err error
			if ids, err = resolveNames(tx, &models.Permission{}, "permissions", "permission", names); err != nil {
				return err
			}
		}

		if err := tx.Create(role).Error; err != nil {
			if store.IsUniqueViolation(err) {
				return nameTaken()
			}
			return fmt.Errorf("authz: create role: %w", err)
		}
		return linkRolePermissions(tx, role.ID, ids)
	})
	if err != nil {
		return nil, err
	}

	e.log.Success("Created role %s", name)
	return e.roles.Get(ctx, role.ID, "Permissions")
}

// CreatePermission adds a permission to the catalog.
func (e *Engine) CreatePermission(ctx context.Context, name string) (*models.Permission, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.Validation("The name field is required.").WithField("name", "The name field is required.")
	}

	db := e.db.WithContext(ctx)
	if _, err := models.GetPermissionByName(ctx, db, name); err == nil {
		return nil, nameTaken()
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("authz: check permission name: %w", err)
	}

	permission := &models.Permission{Name: name}
	if err := db.Create(permission).Error; err != nil {
		if store.IsUniqueViolation(err) {
			return nil, nameTaken()
		}
		return nil, fmt.Errorf("authz: create permission: %w", err)
	}
	e.log.Success("Created permission %s", name)
	return permission, nil
}

// DeleteRole removes a role together with every user and permission link
// that references it.
func (e *Engine) DeleteRole(ctx context.Context, name string) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := models.GetRoleByName(ctx, tx, name)
		if err != nil {
			return lookupErr(err, "role", name)
		}
		if err := tx.Where("role_id = ?", role.ID).Delete(&models.UserRole{}).Error; err != nil {
			return fmt.Errorf("authz: delete role links: %w", err)
		}
		if err := tx.Where("role_id = ?", role.ID).Delete(&models.RolePermission{}).Error; err != nil {
			return fmt.Errorf("authz: delete role permissions: %w", err)
		}
		if err := tx.Delete(role).Error; err != nil {
			return fmt.Errorf("authz: delete role: %w", err)
		}
		e.log.Warn("Deleted role %s", name)
		return nil
	})
}

// DeletePermission removes a permission together with every direct grant and
// role link that references it.
func (e *Engine) DeletePermission(ctx context.Context, name string) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		permission, err := models.GetPermissionByName(ctx, tx, name)
		if err != nil {
			return lookupErr(err, "permission", name)
		}
		if err := tx.Where("permission_id = ?", permission.ID).Delete(&models.UserPermission{}).Error; err != nil {
			return fmt.Errorf("authz: delete permission grants: %w", err)
		}
		if err := tx.Where("permission_id = ?", permission.ID).Delete(&models.RolePermission{}).Error; err != nil {
			return fmt.Errorf("authz: delete permission roles: %w", err)
		}
		if err := tx.Delete(permission).Error; err != nil {
			return fmt.Errorf("authz: delete permission: %w", err)
		}
		e.log.Warn("Deleted permission %s", name)
		return nil
	})
}

// GivePermissionToRole links permissions to an existing role. Links already
// present are kept.
func (e *Engine) GivePermissionToRole(ctx context.Context, roleName string, permissionNames []string) error {
	names := normalizeNames(permissionNames)
	if len(names) == 0 {
		return apperr.Validation("The permissions field is required.").WithField("permissions", "The permissions field is required.")
	}

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := models.GetRoleByName(ctx, tx, roleName)
		if err != nil {
			return lookupErr(err, "role", roleName)
		}
		ids, err := resolveNames(tx, &models.Permission{}, "permissions", "permission", names)
		if err != nil {
			return err
		}
		if err := linkRolePermissions(tx, role.ID, ids); err != nil {
			return err
		}
		e.log.Info("Gave permissions %v to role %s", names, roleName)
		return nil
	})
}

// RevokePermissionFromRole unlinks a permission from a role.
func (e *Engine) RevokePermissionFromRole(ctx context.Context, roleName, permissionName string) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		role, err := models.GetRoleByName(ctx, tx, roleName)
		if err != nil {
			return lookupErr(err, "role", roleName)
		}
		permission, err := models.GetPermissionByName(ctx, tx, permissionName)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Domain("role does not have this permission")
			}
			return fmt.Errorf("authz: revoke role permission: %w", err)
		}
		res := tx.Where("role_id = ? AND permission_id = ?", role.ID, permission.ID).Delete(&models.RolePermission{})
		if res.Error != nil {
			return fmt.Errorf("authz: revoke role permission: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Domain("role does not have this permission")
		}
		e.log.Info("Revoked permission %s from role %s", permissionName, roleName)
		return nil
	})
}

// ListRoles returns every role with its permissions, ordered by name.
func (e *Engine) ListRoles(ctx context.Context) ([]models.Role, error) {
	return e.roles.List(ctx, "name", "Permissions")
}

// ListPermissions returns the permission catalog ordered by name.
func (e *Engine) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	return e.permissions.List(ctx, "name")
}

func linkRolePermissions(tx *gorm.DB, roleID string, permissionIDs []string) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	links := make([]models.RolePermission, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		links = append(links, models.RolePermission{RoleID: roleID, PermissionID: id})
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
		return fmt.Errorf("authz: link role permissions: %w", err)
	}
	return nil
}

func nameTaken() error {
	return apperr.Validation("The name has already been taken.").WithField("name", "The name has already been taken.")
}
