package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/db/dbtest"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/models"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/services"
	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/utils"
)

type stubPurger struct {
	calls int
	err   error
}

func (s *stubPurger) PurgeExpired(context.Context) (int64, error) {
	s.calls++
	return 0, s.err
}

func TestHandleSessionPurge(t *testing.T) {
	gdb := dbtest.NewSeeded(t)
	viewer := dbtest.UserID(t, gdb, "viewer@gmail.com")
	require.NoError(t, gdb.Create(&models.Session{UserID: viewer, ExpiresAt: time.Now().UTC().Add(-time.Hour)}).Error)
	require.NoError(t, gdb.Create(&models.Session{UserID: viewer, ExpiresAt: time.Now().UTC().Add(time.Hour)}).Error)

	sessions := services.NewSessionService(gdb, utils.NewTokenIssuer("secret", time.Hour, "test"))
	handler := NewTaskHandler(sessions)

	require.NoError(t, handler.HandleSessionPurge(context.Background(), NewSessionPurgeTask()))

	var count int64
	require.NoError(t, gdb.Model(&models.Session{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestHandleSessionPurgeReportsFailure(t *testing.T) {
	purger := &stubPurger{err: errors.New("db down")}
	handler := NewTaskHandler(purger)

	err := handler.HandleSessionPurge(context.Background(), NewSessionPurgeTask())
	assert.ErrorContains(t, err, "db down")
	assert.Equal(t, 1, purger.calls)
}

func TestSessionPurgeTaskOptions(t *testing.T) {
	task := NewSessionPurgeTask()
	assert.Equal(t, TaskTypeSessionPurge, task.Type())
	assert.Empty(t, task.Payload())
}
