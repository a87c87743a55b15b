// Package lambdaaws runs the reminder service as an AWS Lambda function,
// typically behind an EventBridge daily schedule.
package lambdaaws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/mastermindankur/warrantywallet/runner"
)

var _ runner.Runner = (*lambdaAwsRunner)(nil)

type lambdaAwsRunner struct {
	cfg    *runner.Config
	logger *zap.Logger
}

func New(cfg *runner.Config) (runner.Runner, error) {
	if cfg.RunMode != runner.RunModeAwsLambda {
		return nil, fmt.Errorf("%w: %d", runner.ErrInvalidRunMode, cfg.RunMode)
	}

	return &lambdaAwsRunner{
		cfg:    cfg,
		logger: runner.NewLogger(cfg.Debug),
	}, nil
}

func (l *lambdaAwsRunner) Run(context.Context) error {
	lambda.Start(l.handler)

	return nil
}

func (l *lambdaAwsRunner) Close(context.Context) error {
	_ = l.logger.Sync()

	return nil
}

func (l *lambdaAwsRunner) handler(ctx context.Context, input lInput) (lOutput, error) {
	service, closer, err := runner.NewReminderService(l.cfg, l.logger)
	if err != nil {
		return lOutput{}, err
	}

	defer func() {
		if cerr := closer(); cerr != nil {
			l.logger.Warn("failed to close storage", zap.Error(cerr))
		}
	}()

	now := input.RunAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	report, err := service.Run(ctx, now)
	if err != nil {
		return lOutput{}, err
	}

	if rerr := report.Err(); rerr != nil {
		l.logger.Warn("reminder run finished with owner failures", zap.Error(rerr))
	}

	return lOutput{
		Owners:         report.Owners,
		Sent:           report.Sent,
		Failed:         report.Failed,
		SkippedRecords: report.SkippedRecords,
	}, nil
}
