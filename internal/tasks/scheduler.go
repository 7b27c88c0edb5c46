package tasks

import (
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/ShahbozQurbonov/roles-permissions-tz/internal/utils/logger"
)

// Scheduler handles periodic task scheduling
type Scheduler struct {
	scheduler *asynq.Scheduler
	purgeCron string
	logger    *logger.Logger
}

// NewScheduler creates a new task scheduler. purgeCron is the schedule of
// the expired-session purge.
func NewScheduler(redisAddr, username, password string, db int, purgeCron string, logger *logger.Logger) *Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     redisAddr,
			Username: username,
			Password: password,
			DB:       db,
		},
		&asynq.SchedulerOpts{},
	)

	return &Scheduler{
		scheduler: scheduler,
		purgeCron: purgeCron,
		logger:    logger,
	}
}

// Start registers the periodic tasks and starts the scheduler in the
// background.
func (s *Scheduler) Start() error {
	if err := s.registerTasks(); err != nil {
		return fmt.Errorf("failed to register tasks: %w", err)
	}

	s.logger.Info("starting task scheduler")
	return s.scheduler.Start()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Shutdown()
	s.logger.Info("task scheduler stopped")
}

// registerTasks registers all periodic tasks
func (s *Scheduler) registerTasks() error {
	entryID, err := s.scheduler.Register(s.purgeCron, NewSessionPurgeTask())
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", TaskTypeSessionPurge, err)
	}

	s.logger.Info("registered periodic task %s %s %s", TaskTypeSessionPurge, s.purgeCron, entryID)
	return nil
}
