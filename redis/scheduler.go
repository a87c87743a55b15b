package redis

import (
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/mastermindankur/warrantywallet/redis/config"
)

// Scheduler wraps the asynq scheduler that periodically enqueues the
// recurring tasks, such as the daily reminder run.
type Scheduler struct {
	scheduler *asynq.Scheduler
	logger    *zap.Logger
	mu        sync.Mutex
}

// NewScheduler creates a scheduler. Cron specs are evaluated in UTC.
func NewScheduler(cfg *config.RedisConfig, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	scheduler := asynq.NewScheduler(
		clientOpt(cfg),
		&asynq.SchedulerOpts{
			Location: time.UTC,
			PostEnqueueFunc: func(info *asynq.TaskInfo, err error) {
				if err != nil {
					logger.Error("failed to enqueue scheduled task", zap.Error(err))

					return
				}

				logger.Info("scheduled task enqueued",
					zap.String("type", info.Type), zap.String("queue", info.Queue))
			},
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		logger:    logger,
	}
}

// Register schedules a task to be enqueued on the given cron spec.
func (s *Scheduler) Register(cronspec, taskType string, payload []byte, opts ...asynq.Option) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := asynq.NewTask(taskType, payload)

	entryID, err := s.scheduler.Register(cronspec, task, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to register %s with spec %q: %w", taskType, cronspec, err)
	}

	return entryID, nil
}

// Start begins the scheduling loop. It does not block.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	return nil
}

// Shutdown stops the scheduling loop.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scheduler.Shutdown()
}
