package models_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/db/dbtest"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/models"
)

func count(t *testing.T, gdb *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(model).Count(&n).Error)
	return n
}

func TestSeedIsIdempotent(t *testing.T) {
	gdb := dbtest.NewSeeded(t)
	require.NoError(t, models.Seed(context.Background(), gdb, bcrypt.MinCost))

	assert.EqualValues(t, 3, count(t, gdb, &models.Role{}))
	assert.EqualValues(t, 4, count(t, gdb, &models.Permission{}))
	assert.EqualValues(t, 3, count(t, gdb, &models.User{}))
	assert.EqualValues(t, 3, count(t, gdb, &models.UserRole{}))
	// admin: 4, editor: 1, viewer: 1
	assert.EqualValues(t, 6, count(t, gdb, &models.RolePermission{}))
}

func TestSeedAccountsHashPasswords(t *testing.T) {
	gdb := dbtest.NewSeeded(t)

	admin, err := models.GetUserByEmail(context.Background(), gdb, "admin@gmail.com")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte("password123")))
}

func TestSeedCatalogRejectsUnknownPermission(t *testing.T) {
	gdb := dbtest.New(t)

	err := models.SeedCatalog(gdb, models.Catalog{
		Permissions: []string{"read"},
		Roles:       map[string][]string{"reader": {"write"}},
	})
	assert.ErrorContains(t, err, "unknown permission write")
}

func TestSessionExpired(t *testing.T) {
	now := time.Now()
	s := models.Session{ExpiresAt: now}
	assert.True(t, s.Expired(now))
	assert.False(t, s.Expired(now.Add(-time.Second)))
}
