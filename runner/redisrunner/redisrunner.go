// Package redisrunner runs the reminder service as a Redis-backed worker.
// An asynq scheduler enqueues the daily reminder task and the worker server
// processes it, so multiple instances share one schedule.
package redisrunner

import (
	"context"
	"fmt"
	"sync"

	"github.com/hibiken/asynq"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/mastermindankur/warrantywallet/redis"
	"github.com/mastermindankur/warrantywallet/redis/config"
	"github.com/mastermindankur/warrantywallet/redis/tasks"
	"github.com/mastermindankur/warrantywallet/runner"
)

var _ runner.Runner = (*redisRunner)(nil)

type redisRunner struct {
	cfg       *config.RedisConfig
	client    *redis.Client
	server    *redis.Server
	scheduler *redis.Scheduler
	mux       *asynq.ServeMux
	logger    *zap.Logger
	closer    func() error
	closeOnce sync.Once
}

func New(cfg *runner.Config) (runner.Runner, error) {
	if cfg.RunMode != runner.RunModeRedis {
		return nil, fmt.Errorf("%w: %d", runner.ErrInvalidRunMode, cfg.RunMode)
	}

	redisCfg, err := config.NewRedisConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load Redis configuration: %w", err)
	}

	logger := runner.NewLogger(cfg.Debug)

	service, closer, err := runner.NewReminderService(cfg, logger)
	if err != nil {
		return nil, err
	}

	handler := tasks.NewHandler(service, tasks.WithLogger(logger))

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeReminderDaily, handler.ProcessTask)
	mux.HandleFunc(tasks.TypeHealthCheck, handler.ProcessTask)
	mux.HandleFunc(tasks.TypeConnectionTest, handler.ProcessTask)

	scheduler := redis.NewScheduler(redisCfg, logger)

	if _, err := scheduler.Register(cfg.CronSpec, tasks.TypeReminderDaily, nil,
		asynq.Queue(tasks.PriorityDefault),
		asynq.Unique(redisCfg.RetryInterval),
		asynq.Retention(redisCfg.RetentionPeriod),
	); err != nil {
		return nil, fmt.Errorf("failed to schedule daily reminder: %w", err)
	}

	return &redisRunner{
		cfg:       redisCfg,
		server:    redis.NewServer(redisCfg, logger),
		scheduler: scheduler,
		mux:       mux,
		logger:    logger,
		closer:    closer,
	}, nil
}

// Run starts the worker server and the scheduler, then blocks until the
// context is cancelled. A connection test task is enqueued on startup so a
// broken producer path surfaces immediately instead of at the first scheduled
// run.
func (r *redisRunner) Run(ctx context.Context) error {
	client, err := redis.NewClient(ctx, r.cfg)
	if err != nil {
		return err
	}

	r.client = client

	r.logger.Info("starting Redis worker",
		zap.String("addr", r.cfg.GetRedisAddr()),
		zap.Int("workers", r.cfg.Workers))

	if err := client.EnqueueTask(ctx, tasks.TypeConnectionTest, nil,
		asynq.Queue(tasks.PriorityDefault),
		asynq.MaxRetry(0),
	); err != nil {
		return err
	}

	if err := r.server.Start(r.mux); err != nil {
		return err
	}

	if err := r.scheduler.Start(); err != nil {
		r.server.Shutdown(ctx)

		return err
	}

	<-ctx.Done()

	return nil
}

func (r *redisRunner) Close(ctx context.Context) error {
	var err error

	r.closeOnce.Do(func() {
		if r.scheduler != nil {
			r.scheduler.Shutdown()
		}

		if r.server != nil {
			err = r.server.Shutdown(ctx)
		}

		if r.client != nil {
			err = multierr.Append(err, r.client.Close())
		}

		err = multierr.Append(err, r.closer())

		r.logger.Info("Redis worker shutdown complete")
		_ = r.logger.Sync()
	})

	return err
}
