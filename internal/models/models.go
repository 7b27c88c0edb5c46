package models

import "time"

type User struct {
	Base
	Name        string       `gorm:"not null" json:"name"`
	Email       string       `gorm:"uniqueIndex;not null" json:"email"`
	Password    string       `gorm:"not null" json:"-"`
	Roles       []Role       `gorm:"many2many:user_roles" json:"roles"`
	Permissions []Permission `gorm:"many2many:user_permissions" json:"permissions"`
}

// Role groups permissions. Names are unique and case-sensitive.
type Role struct {
	Base
	Name        string       `gorm:"uniqueIndex;size:255;not null" json:"name"`
	Permissions []Permission `gorm:"many2many:role_permissions" json:"permissions,omitempty"`
}

// Permission is a named capability such as "edit user".
type Permission struct {
	Base
	Name string `gorm:"uniqueIndex;size:255;not null" json:"name"`
}

// UserRole links a user to a role it holds.
type UserRole struct {
	UserID    string    `gorm:"type:uuid;primaryKey"`
	RoleID    string    `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time `json:"created_at"`
}

// UserPermission is a direct grant, independent of roles.
type UserPermission struct {
	UserID       string    `gorm:"type:uuid;primaryKey"`
	PermissionID string    `gorm:"type:uuid;primaryKey;index"`
	CreatedAt    time.Time `json:"created_at"`
}

// RolePermission links a role to one of its permissions.
type RolePermission struct {
	RoleID       string    `gorm:"type:uuid;primaryKey"`
	PermissionID string    `gorm:"type:uuid;primaryKey;index"`
	CreatedAt    time.Time `json:"created_at"`
}

// RoleNames returns the names of the preloaded roles.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}
