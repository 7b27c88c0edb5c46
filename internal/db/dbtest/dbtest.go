// Package dbtest opens migrated in-memory databases for tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/db"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/models"
)

// New returns an empty, migrated SQLite database private to t.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// Every connection to ":memory:" is a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

// NewSeeded returns a database holding the default catalog and accounts.
func NewSeeded(t testing.TB) *gorm.DB {
	t.Helper()
	gdb := New(t)
	require.NoError(t, models.Seed(context.Background(), gdb, bcrypt.MinCost))
	return gdb
}

// UserID returns the id of the account registered under email.
func UserID(t testing.TB, gdb *gorm.DB, email string) string {
	t.Helper()
	user, err := models.GetUserByEmail(context.Background(), gdb, email)
	require.NoError(t, err)
	return user.ID
}
