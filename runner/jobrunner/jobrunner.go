// Package jobrunner executes a single reminder pass and exits. It is the
// default run mode and what a cron entry or CI schedule invokes.
package jobrunner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mastermindankur/warrantywallet/reminder"
	"github.com/mastermindankur/warrantywallet/runner"
)

var _ runner.Runner = (*jobRunner)(nil)

type jobRunner struct {
	service *reminder.Service
	logger  *zap.Logger
	closer  func() error
}

func New(cfg *runner.Config) (runner.Runner, error) {
	if cfg.RunMode != runner.RunModeOnce {
		return nil, fmt.Errorf("%w: %d", runner.ErrInvalidRunMode, cfg.RunMode)
	}

	logger := runner.NewLogger(cfg.Debug)

	service, closer, err := runner.NewReminderService(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &jobRunner{
		service: service,
		logger:  logger,
		closer:  closer,
	}, nil
}

// Run executes one reminder pass. Per-owner failures are logged but do not
// fail the process; only fatal conditions (bad configuration, unreachable
// store) produce a non-zero exit.
func (j *jobRunner) Run(ctx context.Context) error {
	report, err := j.service.Run(ctx, time.Now().UTC())
	if err != nil {
		return err
	}

	if rerr := report.Err(); rerr != nil {
		j.logger.Warn("reminder run finished with owner failures", zap.Error(rerr))
	}

	j.logger.Info("reminder run finished",
		zap.Int("owners", report.Owners),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
		zap.Int("skipped_records", report.SkippedRecords))

	return nil
}

func (j *jobRunner) Close(context.Context) error {
	defer func() {
		_ = j.logger.Sync()
	}()

	return j.closer()
}
