// Package scheduler runs the periodic sweep that keeps periods, tasks and
// invoices current without any user action: works backdated or left idle
// catch up on the next tick.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/praxishq/praxis/internal/clock"
	"github.com/praxishq/praxis/internal/config"
	invoicedomain "github.com/praxishq/praxis/internal/invoice/domain"
	obsmetrics "github.com/praxishq/praxis/internal/observability/metrics"
	perioddomain "github.com/praxishq/praxis/internal/period/domain"
	pipelinedomain "github.com/praxishq/praxis/internal/pipeline/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Holder     *config.SchedulerConfigHolder
	Clock      clock.Clock
	PeriodSvc  perioddomain.Service
	InvoiceSvc invoicedomain.Service
	Failures   pipelinedomain.Service
}

type Scheduler struct {
	db         *gorm.DB
	log        *zap.Logger
	holder     *config.SchedulerConfigHolder
	clock      clock.Clock
	periodSvc  perioddomain.Service
	invoiceSvc invoicedomain.Service
	failures   pipelinedomain.Service
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Holder == nil || p.Clock == nil || p.PeriodSvc == nil || p.InvoiceSvc == nil || p.Failures == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:         p.DB,
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		holder:     p.Holder,
		clock:      p.Clock,
		periodSvc:  p.PeriodSvc,
		invoiceSvc: p.InvoiceSvc,
		failures:   p.Failures,
	}, nil
}

// runJob wraps one job with a timeout, metrics and soft-timeout handling: a
// deadline hit is a warning, not a sweep failure, because the next tick
// picks up where this one stopped.
func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) (int, error)) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	processed, err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	schedMetrics.AddBatchProcessed(name, processed)

	log := s.log.With(zap.String("job", name), zap.Int("processed", processed))
	if err == nil {
		log.Debug("job finished")
		return nil
	}

	schedMetrics.IncJobError(name, err)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		schedMetrics.IncJobTimeout(name)
		log.Warn("job timed out", zap.Duration("timeout", timeout), zap.Error(err))
		return nil
	}
	log.Error("job failed", zap.Error(err))
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce executes every enabled job once. Jobs run in pipeline order so a
// single sweep moves a work from missing periods all the way to a posted
// invoice. Errors aggregate; one failing job never blocks the others.
func (s *Scheduler) RunOnce(parent context.Context) error {
	cfg := s.holder.Get()
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) (int, error)
	}{
		{"ensure_periods", func(ctx context.Context) (int, error) {
			return s.EnsurePeriodsJob(ctx, cfg.MaxGenerateBatchSize)
		}},
		{"invoice_pending", func(ctx context.Context) (int, error) {
			return s.InvoicePendingJob(ctx, cfg.MaxInvoiceBatchSize)
		}},
		{"failure_metrics", func(ctx context.Context) (int, error) {
			return s.FailureMetricsJob(ctx)
		}},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(cfg, job.Name) {
			continue
		}
		err = errors.Join(err, s.runJob(parent, job.Name, cfg.JobTimeout, job.Run))
	}
	return err
}

// RunForever ticks RunOnce at the configured interval until ctx is done.
func (s *Scheduler) RunForever(ctx context.Context) {
	cfg := s.holder.Get()
	ticker := time.NewTicker(cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		if lag := time.Since(nextRun); lag > 0 {
			schedMetrics.ObserveRunLoopLag(lag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(cfg config.SchedulerConfig, jobName string) bool {
	// Empty EnabledJobs means all jobs run (monolith mode).
	if len(cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}
