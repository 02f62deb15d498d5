package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/praxishq/praxis/internal/invoice/domain"
	obsmetrics "github.com/praxishq/praxis/internal/observability/metrics"
	pipelinedomain "github.com/praxishq/praxis/internal/pipeline/domain"
	"gorm.io/gorm"
)

// workRow is the claim projection for the ensure_periods sweep.
type workRow struct {
	ID    snowflake.ID
	OrgID snowflake.ID
}

// pendingPeriodRow joins a complete, uninvoiced period to its work's billing
// flags for the invoice_pending sweep.
type pendingPeriodRow struct {
	ID        snowflake.ID
	OrgID     snowflake.ID
	WorkID    snowflake.ID
	Recurring bool
	AutoBill  bool
	Billed    bool
}

// EnsurePeriodsJob walks every active recurring work in batches and extends
// its periods through today. Per-work failures are recorded and skipped so
// one broken work cannot starve the rest of the tenant base.
func (s *Scheduler) EnsurePeriodsJob(ctx context.Context, batchSize int) (int, error) {
	var processed int
	var jobErr error
	var lastID snowflake.ID

	for {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}

		works, err := s.claimWorks(ctx, lastID, batchSize)
		if err != nil {
			return processed, errors.Join(jobErr, err)
		}
		if len(works) == 0 {
			break
		}
		lastID = works[len(works)-1].ID

		for _, work := range works {
			if err := s.periodSvc.EnsureUpToDate(ctx, work.ID); err != nil {
				jobErr = errors.Join(jobErr, err)
				s.failures.Record(ctx, work.OrgID, pipelinedomain.StageGeneration, "work", work.ID, err)
				continue
			}
			processed++
		}
	}
	return processed, jobErr
}

// claimWorks fetches the next batch of active recurring works. The claim
// runs in its own short transaction with SKIP LOCKED so concurrent sweepers
// partition the work set instead of colliding.
func (s *Scheduler) claimWorks(ctx context.Context, afterID snowflake.ID, limit int) ([]workRow, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var works []workRow
	err := s.db.WithContext(claimCtx).Transaction(func(tx *gorm.DB) error {
		return tx.Raw(
			`SELECT id, org_id
			 FROM works
			 WHERE status = 'active' AND recurring AND id > ?
			 ORDER BY id
			 LIMIT ?
			 FOR UPDATE SKIP LOCKED`,
			afterID, limit,
		).Scan(&works).Error
	})
	if err != nil {
		return nil, err
	}
	return works, nil
}

// InvoicePendingJob retries invoice generation for completed periods and
// works that missed the event-driven path, typically after a configuration
// failure (missing price or account mapping) has been fixed.
func (s *Scheduler) InvoicePendingJob(ctx context.Context, batchSize int) (int, error) {
	var processed int
	var jobErr error
	var lastID snowflake.ID

	for {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}

		rows, err := s.claimPendingPeriods(ctx, lastID, batchSize)
		if err != nil {
			return processed, errors.Join(jobErr, err)
		}
		if len(rows) == 0 {
			break
		}
		lastID = rows[len(rows)-1].ID

		for _, row := range rows {
			if !row.AutoBill {
				continue
			}

			var err error
			if row.Recurring {
				_, err = s.invoiceSvc.GenerateForPeriod(ctx, row.ID)
			} else if !row.Billed {
				_, err = s.invoiceSvc.GenerateForWork(ctx, row.WorkID)
			} else {
				continue
			}

			if err != nil {
				if errors.Is(err, invoicedomain.ErrAlreadyInvoiced) || errors.Is(err, invoicedomain.ErrAutoBillDisabled) {
					continue
				}
				jobErr = errors.Join(jobErr, err)
				s.failures.Record(ctx, row.OrgID, pipelinedomain.StageInvoice, "period", row.ID, err)
				continue
			}
			processed++
		}
	}
	return processed, jobErr
}

func (s *Scheduler) claimPendingPeriods(ctx context.Context, afterID snowflake.ID, limit int) ([]pendingPeriodRow, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var rows []pendingPeriodRow
	err := s.db.WithContext(claimCtx).Transaction(func(tx *gorm.DB) error {
		return tx.Raw(
			`SELECT p.id, p.org_id, p.work_id, w.recurring, w.auto_bill, w.billed
			 FROM periods p
			 JOIN works w ON w.id = p.work_id
			 WHERE p.all_tasks_completed AND p.invoice_id = 0 AND p.id > ?
			 ORDER BY p.id
			 LIMIT ?`,
			afterID, limit,
		).Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FailureMetricsJob refreshes the unresolved pipeline failure gauges.
func (s *Scheduler) FailureMetricsJob(ctx context.Context) (int, error) {
	type stageCount struct {
		Stage pipelinedomain.Stage
		N     int64
	}
	var counts []stageCount
	err := s.db.WithContext(ctx).Raw(
		`SELECT stage, COUNT(*) AS n
		 FROM pipeline_failures
		 WHERE resolved_at IS NULL
		 GROUP BY stage`,
	).Scan(&counts).Error
	if err != nil {
		return 0, err
	}

	schedMetrics := obsmetrics.Scheduler()
	for _, stage := range []pipelinedomain.Stage{
		pipelinedomain.StageGeneration,
		pipelinedomain.StageInvoice,
		pipelinedomain.StageLedger,
	} {
		var n int64
		for _, c := range counts {
			if c.Stage == stage {
				n = c.N
				break
			}
		}
		schedMetrics.SetUnresolvedFailures(string(stage), n)
	}
	return 0, nil
}
