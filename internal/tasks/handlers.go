package tasks

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/utils/logger"
)

// SessionPurger removes expired sessions.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// TaskHandler processes background tasks
type TaskHandler struct {
	sessions SessionPurger
	logger   *logger.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(sessions SessionPurger) *TaskHandler {
	return &TaskHandler{
		sessions: sessions,
		logger:   logger.New("TASK_HANDLER"),
	}
}

// HandleSessionPurge handles TaskTypeSessionPurge.
func (h *TaskHandler) HandleSessionPurge(ctx context.Context, t *asynq.Task) error {
	n, err := h.sessions.PurgeExpired(ctx)
	if err != nil {
		return h.logger.Error("session purge failed", err)
	}
	h.logger.Debug("%s removed %d sessions", t.Type(), n)
	return nil
}

// Register wires every handler into mux.
func (h *TaskHandler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypeSessionPurge, h.HandleSessionPurge)
}
