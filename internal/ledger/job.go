package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/balcao-erp/balcao/jobs"
)

// Handle fulfils the asynq.HandlerFunc contract for overdue rescan tasks.
func (j *RescanJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload jobs.OverdueRescanPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	count, err := j.Run(ctx, time.Now())
	if err != nil {
		if j.logger != nil {
			j.logger.Error("overdue rescan task", slog.String("reason", payload.Reason), slog.Any("error", err))
		}
		return err
	}
	if j.logger != nil {
		j.logger.Info("overdue rescan task finished",
			slog.String("reason", payload.Reason),
			slog.Int("transitioned", count))
	}
	return nil
}
