package models

import (
	"context"

	"gorm.io/gorm"
)

// GetRoleByName retrieves a role from the database by its name
func GetRoleByName(ctx context.Context, db *gorm.DB, name string) (*Role, error) {
	role := &Role{}
	if err := db.WithContext(ctx).Where("name = ?", name).First(role).Error; err != nil {
		return nil, err
	}
	return role, nil
}

// GetPermissionByName retrieves a permission from the database by its name
func GetPermissionByName(ctx context.Context, db *gorm.DB, name string) (*Permission, error) {
	permission := &Permission{}
	if err := db.WithContext(ctx).Where("name = ?", name).First(permission).Error; err != nil {
		return nil, err
	}
	return permission, nil
}

func GetUserByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error) {
	user := &User{}
	if err := db.WithContext(ctx).Where("email = ?", email).First(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// JoinTables wires the link models into the many2many relations. It must run
// on every *gorm.DB before migrating or preloading.
func JoinTables(db *gorm.DB) error {
	if err := db.SetupJoinTable(&User{}, "Roles", &UserRole{}); err != nil {
		return err
	}
	if err := db.SetupJoinTable(&User{}, "Permissions", &UserPermission{}); err != nil {
		return err
	}
	return db.SetupJoinTable(&Role{}, "Permissions", &RolePermission{})
}
