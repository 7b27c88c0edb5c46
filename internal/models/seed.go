package models

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	console "github.com/ShahbozQurbonov/roles-permissions-tz/internal/utils/logger"
)

var log = console.New("SEEDER")

// AllPermissions grants a role every permission in the catalog.
const AllPermissions = "*"

// Catalog describes the roles and permissions to provision.
type Catalog struct {
	Permissions []string
	// Roles maps a role name to its permission names (or AllPermissions).
	Roles map[string][]string
}

// SeedAccount is a bootstrap user holding one role.
type SeedAccount struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// DefaultCatalog is the reference deployment's catalog.
var DefaultCatalog = Catalog{
	Permissions: []string{
		PermissionCreateUser,
		PermissionEditUser,
		PermissionDeleteUser,
		PermissionViewUser,
	},
	Roles: map[string][]string{
		RoleAdmin:  {AllPermissions},
		RoleEditor: {PermissionEditUser},
		RoleViewer: {PermissionViewUser},
	},
}

// DefaultAccounts are the reference deployment's seed users, one per role.
var DefaultAccounts = []SeedAccount{
	{Name: "admin", Email: "admin@gmail.com", Password: "password123", Role: RoleAdmin},
	{Name: "editor", Email: "editor@gmail.com", Password: "20042004", Role: RoleEditor},
	{Name: "viewer", Email: "viewer@gmail.com", Password: "20042004", Role: RoleViewer},
}

// Seed provisions DefaultCatalog and DefaultAccounts. It is idempotent.
func Seed(ctx context.Context, db *gorm.DB, bcryptCost int) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := SeedCatalog(tx, DefaultCatalog); err != nil {
			return err
		}
		return SeedAccounts(tx, DefaultAccounts, bcryptCost)
	})
}

// SeedCatalog creates missing permissions, roles and role links.
func SeedCatalog(db *gorm.DB, catalog Catalog) error {
	permissions := make(map[string]Permission, len(catalog.Permissions))
	for _, name := range catalog.Permissions {
		p := Permission{}
		if err := db.FirstOrCreate(&p, Permission{Name: name}).Error; err != nil {
			return fmt.Errorf("failed to create permission %s: %w", name, err)
		}
		permissions[name] = p
	}

	roleNames := make([]string, 0, len(catalog.Roles))
	for name := range catalog.Roles {
		roleNames = append(roleNames, name)
	}
	sort.Strings(roleNames)

	for _, name := range roleNames {
		role := Role{}
		if err := db.FirstOrCreate(&role, Role{Name: name}).Error; err != nil {
			return fmt.Errorf("failed to create role %s: %w", name, err)
		}
		log.Info("Seeding permissions for role: %s", name)

		var links []RolePermission
		for _, permName := range catalog.Roles[name] {
			if permName == AllPermissions {
				for _, p := range permissions {
					links = append(links, RolePermission{RoleID: role.ID, PermissionID: p.ID})
				}
				continue
			}
			p, ok := permissions[permName]
			if !ok {
				return fmt.Errorf("role %s references unknown permission %s", name, permName)
			}
			links = append(links, RolePermission{RoleID: role.ID, PermissionID: p.ID})
		}
		if len(links) == 0 {
			continue
		}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
			return fmt.Errorf("failed to link permissions to role %s: %w", name, err)
		}
	}
	return nil
}

// SeedAccounts creates missing accounts and links each to its role.
func SeedAccounts(db *gorm.DB, accounts []SeedAccount, bcryptCost int) error {
	for _, account := range accounts {
		var role Role
		if err := db.Where("name = ?", account.Role).First(&role).Error; err != nil {
			return fmt.Errorf("failed to find role %s for %s: %w", account.Role, account.Email, err)
		}

		var user User
		err := db.Where("email = ?", account.Email).First(&user).Error
		switch {
		case err == nil:
		case errors.Is(err, gorm.ErrRecordNotFound):
			hashed, err := bcrypt.GenerateFromPassword([]byte(account.Password), bcryptCost)
			if err != nil {
				return fmt.Errorf("failed to hash password: %w", err)
			}
			user = User{Name: account.Name, Email: account.Email, Password: string(hashed)}
			if err := db.Create(&user).Error; err != nil {
				return fmt.Errorf("failed to create user %s: %w", account.Email, err)
			}
		default:
			return fmt.Errorf("failed to look up user %s: %w", account.Email, err)
		}

		link := UserRole{UserID: user.ID, RoleID: role.ID}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
			return fmt.Errorf("failed to assign role %s to %s: %w", account.Role, account.Email, err)
		}
	}
	return nil
}
