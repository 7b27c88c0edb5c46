package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/utils/logger"
)

// TaskClient enqueues tasks
type TaskClient struct {
	client *asynq.Client
	logger *logger.Logger
}

// NewTaskClient creates a new TaskClient with the given Redis configuration
func NewTaskClient(redisAddr, username, password string, db int) *TaskClient {
	return &TaskClient{
		client: asynq.NewClient(asynq.RedisClientOpt{
			Addr:     redisAddr,
			Username: username,
			Password: password,
			DB:       db,
		}),
		logger: logger.New("TASKS"),
	}
}

// EnqueueSessionPurge queues an immediate purge of expired sessions. A purge
// that is already queued is not an error.
func (c *TaskClient) EnqueueSessionPurge(ctx context.Context) error {
	info, err := c.client.EnqueueContext(ctx, NewSessionPurgeTask())
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("failed to enqueue session purge: %w", err)
	}
	c.logger.Info("enqueued %s as %s", info.Type, info.ID)
	return nil
}

// Close closes the underlying asynq client
func (c *TaskClient) Close() error {
	return c.client.Close()
}
