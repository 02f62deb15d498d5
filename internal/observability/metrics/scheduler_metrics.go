// Package metrics exposes the prometheus instruments for the scheduler and
// the HTTP surface. Instruments register against the default registerer and
// are served by the /metrics endpoint.
package metrics

import (
	"context"
	"errors"
	"sync"
	"time"

	invoicedomain "github.com/praxishq/praxis/internal/invoice/domain"
	ledgerdomain "github.com/praxishq/praxis/internal/ledger/domain"
	perioddomain "github.com/praxishq/praxis/internal/period/domain"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	SchedulerErrorTypeDeadlineExceeded = "deadline_exceeded"
	SchedulerErrorTypeDB               = "db"
	SchedulerErrorTypeBusinessRule     = "business_rule"
	SchedulerErrorTypeUnknown          = "unknown"
)

// SchedulerMetrics captures sweep health signals.
type SchedulerMetrics struct {
	jobRuns            *prometheus.CounterVec
	jobDuration        *prometheus.HistogramVec
	jobTimeouts        *prometheus.CounterVec
	jobErrors          *prometheus.CounterVec
	batchProcessed     *prometheus.CounterVec
	runLoopLag         prometheus.Observer
	unresolvedFailures *prometheus.GaugeVec
}

var (
	schedulerMetricsOnce sync.Once
	schedulerMetrics     *SchedulerMetrics
)

// Scheduler returns the singleton scheduler metrics registry.
func Scheduler() *SchedulerMetrics {
	schedulerMetricsOnce.Do(func() {
		schedulerMetrics = newSchedulerMetrics(prometheus.DefaultRegisterer)
	})
	return schedulerMetrics
}

// ResetSchedulerMetricsForTest resets the singleton for tests.
func ResetSchedulerMetricsForTest() {
	schedulerMetricsOnce = sync.Once{}
	schedulerMetrics = nil
}

func newSchedulerMetrics(registerer prometheus.Registerer) *SchedulerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "praxis_scheduler_job_runs_total",
		Help: "Scheduler job runs by name.",
	}, []string{"job"})
	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "praxis_scheduler_job_duration_seconds",
		Help:    "Scheduler job latency.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"job"})
	jobTimeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "praxis_scheduler_job_timeouts_total",
		Help: "Scheduler jobs cut short by their per-job timeout.",
	}, []string{"job"})
	jobErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "praxis_scheduler_job_errors_total",
		Help: "Scheduler job errors by job and error type.",
	}, []string{"job", "type"})
	batchProcessed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "praxis_scheduler_batch_processed_total",
		Help: "Entities processed per scheduler job.",
	}, []string{"job"})
	runLoopLag := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "praxis_scheduler_run_loop_lag_seconds",
		Help:    "How far behind schedule each sweep started.",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	})
	unresolvedFailures := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "praxis_pipeline_unresolved_failures",
		Help: "Unresolved pipeline failure rows by stage.",
	}, []string{"stage"})

	for _, c := range []prometheus.Collector{
		jobRuns, jobDuration, jobTimeouts, jobErrors, batchProcessed, runLoopLag, unresolvedFailures,
	} {
		if err := registerer.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				panic(err)
			}
		}
	}

	return &SchedulerMetrics{
		jobRuns:            jobRuns,
		jobDuration:        jobDuration,
		jobTimeouts:        jobTimeouts,
		jobErrors:          jobErrors,
		batchProcessed:     batchProcessed,
		runLoopLag:         runLoopLag,
		unresolvedFailures: unresolvedFailures,
	}
}

func (m *SchedulerMetrics) IncJobRun(job string) {
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) ObserveJobDuration(job string, d time.Duration) {
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *SchedulerMetrics) IncJobTimeout(job string) {
	m.jobTimeouts.WithLabelValues(job).Inc()
}

func (m *SchedulerMetrics) IncJobError(job string, err error) {
	m.jobErrors.WithLabelValues(job, classifyError(err)).Inc()
}

func (m *SchedulerMetrics) AddBatchProcessed(job string, n int) {
	if n > 0 {
		m.batchProcessed.WithLabelValues(job).Add(float64(n))
	}
}

func (m *SchedulerMetrics) ObserveRunLoopLag(lag time.Duration) {
	m.runLoopLag.Observe(lag.Seconds())
}

func (m *SchedulerMetrics) SetUnresolvedFailures(stage string, count int64) {
	m.unresolvedFailures.WithLabelValues(stage).Set(float64(count))
}

// classifyError buckets a job error for the error counter. Rule violations
// (missing price, unmapped account) are tenant configuration problems and
// alert differently from infrastructure failures.
func classifyError(err error) string {
	switch {
	case err == nil:
		return SchedulerErrorTypeUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return SchedulerErrorTypeDeadlineExceeded
	case isBusinessRuleError(err):
		return SchedulerErrorTypeBusinessRule
	case isDBError(err):
		return SchedulerErrorTypeDB
	default:
		return SchedulerErrorTypeUnknown
	}
}

func isBusinessRuleError(err error) bool {
	return errors.Is(err, perioddomain.ErrNoTaskTemplates) ||
		errors.Is(err, perioddomain.ErrInvalidCadence) ||
		errors.Is(err, invoicedomain.ErrNoPriceConfigured) ||
		errors.Is(err, invoicedomain.ErrNoIncomeAccount) ||
		errors.Is(err, invoicedomain.ErrPeriodIncomplete) ||
		errors.Is(err, ledgerdomain.ErrAccountNotMapped) ||
		errors.Is(err, ledgerdomain.ErrNoCashAccount)
}

func isDBError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound) ||
		errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrInvalidDB)
}
