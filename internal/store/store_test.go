package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/apperr"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/db/dbtest"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/models"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/store"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, store.IsUniqueViolation(nil))
	assert.False(t, store.IsUniqueViolation(errors.New("connection reset")))
	assert.True(t, store.IsUniqueViolation(fmt.Errorf("create: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, store.IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, store.IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
}

func TestUniqueEmailEnforcedByStorage(t *testing.T) {
	gdb := dbtest.New(t)

	require.NoError(t, gdb.Create(&models.User{Name: "a", Email: "dup@example.com", Password: "x"}).Error)
	err := gdb.Create(&models.User{Name: "b", Email: "dup@example.com", Password: "y"}).Error

	require.Error(t, err)
	assert.True(t, store.IsUniqueViolation(err))
}

func TestRepositoryGetPreloadsAndReportsNotFound(t *testing.T) {
	gdb := dbtest.NewSeeded(t)
	repo := store.NewRepository[models.User](gdb, "user")
	ctx := context.Background()

	adminID := dbtest.UserID(t, gdb, "admin@gmail.com")
	user, err := repo.Get(ctx, adminID, "Roles", "Permissions")
	require.NoError(t, err)
	assert.Equal(t, []string{models.RoleAdmin}, user.RoleNames())
	assert.Empty(t, user.Permissions)

	_, err = repo.Get(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	ok, err := repo.Exists(ctx, adminID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRepositoryListOrders(t *testing.T) {
	gdb := dbtest.NewSeeded(t)
	repo := store.NewRepository[models.Role](gdb, "role")

	roles, err := repo.List(context.Background(), "name", "Permissions")
	require.NoError(t, err)
	require.Len(t, roles, 3)
	assert.Equal(t, []string{"admin", "editor", "viewer"}, []string{roles[0].Name, roles[1].Name, roles[2].Name})
	assert.Len(t, roles[0].Permissions, 4)
}

func TestMalformedIDIsNotFound(t *testing.T) {
	gdb := dbtest.New(t)
	repo := store.NewRepository[models.User](gdb, "user")

	assert.False(t, store.ValidID("42"))
	_, err := repo.Get(context.Background(), "42")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	ok, err := repo.Exists(context.Background(), "42")
	require.NoError(t, err)
	assert.False(t, ok)
}
