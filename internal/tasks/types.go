package tasks

import (
	"time"

	"github.com/hibiken/asynq"
)

// Task Types
const (
	// TaskTypeSessionPurge deletes expired login sessions.
	TaskTypeSessionPurge = "session:purge"
)

// Task Queues
const (
	QueueDefault = "default" // For regular tasks
	QueueLow     = "low"     // For background tasks like cleanup
)

// Task Timeouts
const (
	TimeoutShort  = 1 * time.Minute
	TimeoutMedium = 5 * time.Minute
)

// Task Retry Settings
const (
	RetryMin = 1
)

// NewSessionPurgeTask builds the periodic session cleanup task. It is unique
// for its timeout so overlapping schedules never queue it twice.
func NewSessionPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSessionPurge, nil,
		asynq.Queue(QueueLow),
		asynq.MaxRetry(RetryMin),
		asynq.Timeout(TimeoutShort),
		asynq.Unique(TimeoutMedium),
	)
}
