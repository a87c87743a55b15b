package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/mastermindankur/warrantywallet/mailer"
)

// processReminderTask executes one reminder run. Configuration problems are
// permanent and skip the retry machinery; transient failures (an unreachable
// store) are returned so asynq retries the task.
func (h *Handler) processReminderTask(ctx context.Context, task *asynq.Task) error {
	var payload ReminderPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("invalid reminder payload: %v: %w", err, asynq.SkipRetry)
		}
	}

	now := payload.RunAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	report, err := h.service.Run(ctx, now)
	if err != nil {
		if errors.Is(err, mailer.ErrNotConfigured) {
			return fmt.Errorf("reminder run aborted: %v: %w", err, asynq.SkipRetry)
		}

		return fmt.Errorf("reminder run failed: %w", err)
	}

	h.logger.Info("reminder task completed",
		zap.Int("owners", report.Owners),
		zap.Int("sent", report.Sent),
		zap.Int("failed", report.Failed),
		zap.Int("skipped_records", report.SkippedRecords))

	return nil
}
