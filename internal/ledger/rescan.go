package ledger

import (
	"context"
	"log/slog"
	"time"

	jobmetrics "github.com/balcao-erp/balcao/internal/jobs"
)

// RescanJob reclassifies pending sales whose due date has elapsed. It is a
// plain schedulable unit: the worker wires it to a cron trigger, tests call
// Run directly.
type RescanJob struct {
	repo    RepositoryPort
	cache   CacheInvalidator
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewRescanJob constructs the job. cache may be nil.
func NewRescanJob(repo RepositoryPort, cache CacheInvalidator, logger *slog.Logger, metrics *jobmetrics.Metrics) *RescanJob {
	return &RescanJob{repo: repo, cache: cache, logger: logger, metrics: metrics}
}

// Run sweeps pending sales due before today and marks them overdue, returning
// the number of sales transitioned. A failure on one sale is logged and does
// not abort the rest of the sweep. Paid amounts are never touched here, and
// sales already paid or overdue are not selected, so running the sweep twice
// in a row transitions nothing the second time.
func (j *RescanJob) Run(ctx context.Context, today time.Time) (int, error) {
	tracker := j.metrics.Track("overdue_rescan")

	cutoff := DateOnly(today)
	sales, err := j.repo.ListPendingDueBefore(ctx, cutoff)
	if err != nil {
		return 0, tracker.End(err)
	}

	count := 0
	for _, sale := range sales {
		// Re-derive rather than blindly flip, so a sale fully paid since the
		// select stays paid.
		if DeriveStatus(sale.TotalAmount, sale.PaidAmount, sale.DueDate, today) != StatusOverdue {
			continue
		}
		changed, err := j.repo.MarkOverdue(ctx, sale.ID)
		if err != nil {
			if j.logger != nil {
				j.logger.Error("mark sale overdue", slog.Int64("sale_id", sale.ID), slog.Any("error", err))
			}
			continue
		}
		if changed {
			count++
		}
	}

	if count > 0 {
		if j.logger != nil {
			j.logger.Info("overdue rescan finished", slog.Int("transitioned", count))
		}
		if j.cache != nil {
			if err := j.cache.Bump(ctx); err != nil && j.logger != nil {
				j.logger.Warn("dashboard cache bump", slog.Any("error", err))
			}
		}
	}
	return count, tracker.End(nil)
}
