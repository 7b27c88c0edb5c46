package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/apperr"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/db/dbtest"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/models"
)

func newAccounts(t *testing.T) (*AccountService, *gorm.DB) {
	t.Helper()
	gdb := dbtest.NewSeeded(t)
	return NewAccountService(gdb, AccountConfig{DefaultRole: models.RoleViewer, BcryptCost: bcrypt.MinCost}), gdb
}

func strPtr(s string) *string { return &s }

func TestCreateAssignsDefaultRole(t *testing.T) {
	svc, _ := newAccounts(t)

	user, err := svc.Create(context.Background(), CreateAccount{Name: "Ali", Email: "ali@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, []string{models.RoleViewer}, user.RoleNames())
	assert.NotEqual(t, "secret123", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("secret123")))
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newAccounts(t)

	_, err := svc.Create(context.Background(), CreateAccount{Name: "Admin 2", Email: "admin@gmail.com", Password: "secret123"})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "The email has already been taken.", appErr.Fields["email"])
}

func TestCreateConcurrentDuplicateEmail(t *testing.T) {
	svc, gdb := newAccounts(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), CreateAccount{Name: "Dup", Email: "dup@example.com", Password: "secret123"})
		}(i)
	}
	wg.Wait()

	var succeeded, rejected int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperr.IsKind(err, apperr.KindValidation):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, rejected)

	var count int64
	require.NoError(t, gdb.Model(&models.User{}).Where("email = ?", "dup@example.com").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestCreateTranslatesUniqueViolation(t *testing.T) {
	svc, gdb := newAccounts(t)

	// A rival row with the same email lands after the pre-check and before
	// the insert, inside the same transaction.
	var raced bool
	require.NoError(t, gdb.Callback().Create().Before("gorm:create").Register("test:insert_rival", func(tx *gorm.DB) {
		user, ok := tx.Statement.Dest.(*models.User)
		if !ok || raced || user.Email != "race@example.com" {
			return
		}
		raced = true
		rival := &models.User{Name: "Rival", Email: user.Email, Password: "x"}
		if err := tx.Session(&gorm.Session{NewDB: true}).Create(rival).Error; err != nil {
			_ = tx.AddError(err)
		}
	}))

	_, err := svc.Create(context.Background(), CreateAccount{Name: "Race", Email: "race@example.com", Password: "secret123"})
	require.True(t, raced)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "The email has already been taken.", appErr.Fields["email"])
}

func TestUpdatePartial(t *testing.T) {
	svc, gdb := newAccounts(t)
	ctx := context.Background()
	id := dbtest.UserID(t, gdb, "viewer@gmail.com")

	user, err := svc.Update(ctx, id, UpdateAccount{Name: strPtr("Renamed")})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", user.Name)
	assert.Equal(t, "viewer@gmail.com", user.Email)

	_, err = svc.Update(ctx, id, UpdateAccount{Email: strPtr("viewer@gmail.com")})
	assert.NoError(t, err, "keeping the own email is not a conflict")

	_, err = svc.Update(ctx, id, UpdateAccount{Email: strPtr("admin@gmail.com")})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.Update(ctx, id, UpdateAccount{Password: strPtr("newsecret1")})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "viewer@gmail.com", "newsecret1")
	assert.NoError(t, err)

	_, err = svc.Update(ctx, "00000000-0000-0000-0000-000000000000", UpdateAccount{Name: strPtr("x")})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDeleteCascades(t *testing.T) {
	svc, gdb := newAccounts(t)
	ctx := context.Background()
	id := dbtest.UserID(t, gdb, "editor@gmail.com")

	require.NoError(t, gdb.Create(&models.UserPermission{UserID: id, PermissionID: permissionID(t, gdb, models.PermissionViewUser)}).Error)
	require.NoError(t, gdb.Create(&models.Session{UserID: id}).Error)

	require.NoError(t, svc.Delete(ctx, id))

	for _, model := range []interface{}{&models.UserRole{}, &models.UserPermission{}, &models.Session{}} {
		var count int64
		require.NoError(t, gdb.Model(model).Where("user_id = ?", id).Count(&count).Error)
		assert.Zero(t, count)
	}

	_, err := svc.Get(ctx, id)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, id), apperr.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "not-a-uuid"), apperr.ErrNotFound)
}

func TestListPreloadsRolesAndPermissions(t *testing.T) {
	svc, _ := newAccounts(t)

	users, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 3)
	for _, u := range users {
		assert.Len(t, u.Roles, 1)
		assert.NotNil(t, u.Permissions)
	}
}

func TestAuthenticate(t *testing.T) {
	svc, _ := newAccounts(t)
	ctx := context.Background()

	user, err := svc.Authenticate(ctx, "admin@gmail.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "admin@gmail.com", user.Email)

	_, wrongPassword := svc.Authenticate(ctx, "admin@gmail.com", "nope")
	_, unknownEmail := svc.Authenticate(ctx, "ghost@gmail.com", "password123")
	assert.ErrorIs(t, wrongPassword, apperr.ErrUnauthenticated)
	assert.ErrorIs(t, unknownEmail, apperr.ErrUnauthenticated)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func permissionID(t *testing.T, gdb *gorm.DB, name string) string {
	t.Helper()
	p, err := models.GetPermissionByName(context.Background(), gdb, name)
	require.NoError(t, err)
	return p.ID
}
