package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	catalogdomain "github.com/praxishq/praxis/internal/catalog/domain"
	"github.com/praxishq/praxis/internal/clock"
	"github.com/praxishq/praxis/internal/events"
	perioddomain "github.com/praxishq/praxis/internal/period/domain"
	workdomain "github.com/praxishq/praxis/internal/work/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db    *gorm.DB
	svc   *Service
	node  *snowflake.Node
	clock *clock.FakeClock
	bus   *events.Bus
}

func newTestEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&catalogdomain.Service{},
		&catalogdomain.TaskTemplate{},
		&catalogdomain.WorkTaskConfig{},
		&workdomain.Work{},
		&workdomain.WorkDocument{},
		&perioddomain.Period{},
		&perioddomain.PeriodTask{},
		&perioddomain.PeriodDocument{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(now)
	bus := events.NewBus(zap.NewNop())

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Bus:   bus,
	}).(*Service)

	return &testEnv{db: db, svc: svc, node: node, clock: fakeClock, bus: bus}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (e *testEnv) seedService(t *testing.T, orgID snowflake.ID, templates ...catalogdomain.TaskTemplate) snowflake.ID {
	t.Helper()
	svc := catalogdomain.Service{ID: e.node.Generate(), OrgID: orgID, Name: "Filing"}
	require.NoError(t, e.db.Create(&svc).Error)
	for i := range templates {
		templates[i].ID = e.node.Generate()
		templates[i].OrgID = orgID
		templates[i].ServiceID = svc.ID
		templates[i].SortOrder = i
		if templates[i].Priority == "" {
			templates[i].Priority = "medium"
		}
		require.NoError(t, e.db.Create(&templates[i]).Error)
	}
	return svc.ID
}

func (e *testEnv) seedWork(t *testing.T, orgID, serviceID snowflake.ID, cadence perioddomain.Cadence, start time.Time) workdomain.Work {
	t.Helper()
	work := workdomain.Work{
		ID:                   e.node.Generate(),
		OrgID:                orgID,
		CustomerID:           e.node.Generate(),
		ServiceID:            serviceID,
		Title:                "Filing engagement",
		Recurring:            true,
		Cadence:              cadence,
		FiscalYearStartMonth: 4,
		WeekStartDay:         int(time.Monday),
		PeriodCalcType:       workdomain.PeriodCalcCurrent,
		StartDate:            start,
		Status:               workdomain.WorkStatusActive,
	}
	require.NoError(t, e.db.Create(&work).Error)
	return work
}

func (e *testEnv) periods(t *testing.T, workID snowflake.ID) []perioddomain.Period {
	t.Helper()
	var periods []perioddomain.Period
	require.NoError(t, e.db.Where("work_id = ?", workID).Order("period_start").Find(&periods).Error)
	return periods
}

func (e *testEnv) tasks(t *testing.T, periodID snowflake.ID) []perioddomain.PeriodTask {
	t.Helper()
	var tasks []perioddomain.PeriodTask
	require.NoError(t, e.db.Where("period_id = ?", periodID).Order("due_date, id").Find(&tasks).Error)
	return tasks
}

func TestBackfill_QuarterlyWorkWithNestedMonthlyTemplate(t *testing.T) {
	env := newTestEnv(t, date(2025, time.October, 5))
	orgID := env.node.Generate()

	serviceID := env.seedService(t, orgID,
		catalogdomain.TaskTemplate{
			Title:      "File monthly return",
			Cadence:    perioddomain.CadenceMonthly,
			OffsetKind: perioddomain.OffsetDays, OffsetValue: 10,
		},
		catalogdomain.TaskTemplate{
			Title:      "Quarterly reconciliation",
			Cadence:    perioddomain.CadenceQuarterly,
			OffsetKind: perioddomain.OffsetDays, OffsetValue: 15,
		},
	)
	work := env.seedWork(t, orgID, serviceID, perioddomain.CadenceQuarterly, date(2025, time.April, 1))

	require.NoError(t, env.svc.BackfillWork(context.Background(), work.ID))

	periods := env.periods(t, work.ID)
	require.Len(t, periods, 2, "Q3 is still open and must not materialize")
	assert.Equal(t, "Q1 2025", periods[0].Name)
	assert.Equal(t, "Q2 2025", periods[1].Name)

	// Q1 closed long ago: all three monthly instances plus the quarterly one.
	q1Tasks := env.tasks(t, periods[0].ID)
	require.Len(t, q1Tasks, 4)
	titles := make([]string, 0, len(q1Tasks))
	for _, task := range q1Tasks {
		titles = append(titles, task.Title)
	}
	assert.Contains(t, titles, "File monthly return (April 2025)")
	assert.Contains(t, titles, "File monthly return (May 2025)")
	assert.Contains(t, titles, "File monthly return (June 2025)")
	assert.Contains(t, titles, "Quarterly reconciliation")

	dues := map[time.Time]bool{}
	for _, task := range q1Tasks {
		dues[task.DueDate] = true
	}
	assert.Len(t, dues, 4, "each nested instance carries a distinct due date")

	// Q2 closed on 2025-09-30: July (due 08-10) and August (due 09-10) have
	// elapsed; September (due 10-10) and the quarterly task (due 10-15) are
	// still ahead of the clock and must wait for a later run.
	q2Tasks := env.tasks(t, periods[1].ID)
	require.Len(t, q2Tasks, 2)
	assert.Equal(t, date(2025, time.August, 10), q2Tasks[0].DueDate)
	assert.Equal(t, date(2025, time.September, 10), q2Tasks[1].DueDate)
}

func TestBackfill_Idempotent(t *testing.T) {
	env := newTestEnv(t, date(2025, time.October, 5))
	orgID := env.node.Generate()

	serviceID := env.seedService(t, orgID,
		catalogdomain.TaskTemplate{
			Title:      "File monthly return",
			Cadence:    perioddomain.CadenceMonthly,
			OffsetKind: perioddomain.OffsetDays, OffsetValue: 10,
		},
	)
	work := env.seedWork(t, orgID, serviceID, perioddomain.CadenceMonthly, date(2025, time.April, 1))

	require.NoError(t, env.svc.BackfillWork(context.Background(), work.ID))

	var periodCount, taskCount int64
	require.NoError(t, env.db.Model(&perioddomain.Period{}).Where("work_id = ?", work.ID).Count(&periodCount).Error)
	require.NoError(t, env.db.Model(&perioddomain.PeriodTask{}).Where("work_id = ?", work.ID).Count(&taskCount).Error)
	require.Greater(t, periodCount, int64(0))

	require.NoError(t, env.svc.BackfillWork(context.Background(), work.ID))
	require.NoError(t, env.svc.EnsureUpToDate(context.Background(), work.ID))

	var periodCount2, taskCount2 int64
	require.NoError(t, env.db.Model(&perioddomain.Period{}).Where("work_id = ?", work.ID).Count(&periodCount2).Error)
	require.NoError(t, env.db.Model(&perioddomain.PeriodTask{}).Where("work_id = ?", work.ID).Count(&taskCount2).Error)
	assert.Equal(t, periodCount, periodCount2)
	assert.Equal(t, taskCount, taskCount2)
}

func TestBackfill_EligibilityGateHoldsFutureDueDates(t *testing.T) {
	env := newTestEnv(t, date(2025, time.September, 5))
	orgID := env.node.Generate()

	// Due 40 days after each month ends: August's only task is due 2025-10-10.
	serviceID := env.seedService(t, orgID,
		catalogdomain.TaskTemplate{
			Title:      "Late filing",
			Cadence:    perioddomain.CadenceMonthly,
			OffsetKind: perioddomain.OffsetDays, OffsetValue: 40,
		},
	)
	work := env.seedWork(t, orgID, serviceID, perioddomain.CadenceMonthly, date(2025, time.August, 1))

	require.NoError(t, env.svc.BackfillWork(context.Background(), work.ID))
	assert.Empty(t, env.periods(t, work.ID),
		"August closed, but its task is not due yet; the period must wait")

	// Once the due date elapses, the same run materializes period and task.
	env.clock.Set(date(2025, time.October, 11))
	require.NoError(t, env.svc.EnsureUpToDate(context.Background(), work.ID))

	periods := env.periods(t, work.ID)
	require.Len(t, periods, 1)
	assert.Equal(t, "August 2025", periods[0].Name)

	tasks := env.tasks(t, periods[0].ID)
	require.Len(t, tasks, 1)
	assert.Equal(t, date(2025, time.October, 10), tasks[0].DueDate)
}

func TestEnsureUpToDate_AddsTasksIncrementally(t *testing.T) {
	env := newTestEnv(t, date(2025, time.October, 5))
	orgID := env.node.Generate()

	serviceID := env.seedService(t, orgID,
		catalogdomain.TaskTemplate{
			Title:      "File monthly return",
			Cadence:    perioddomain.CadenceMonthly,
			OffsetKind: perioddomain.OffsetDays, OffsetValue: 10,
		},
		catalogdomain.TaskTemplate{
			Title:      "Quarterly reconciliation",
			Cadence:    perioddomain.CadenceQuarterly,
			OffsetKind: perioddomain.OffsetDays, OffsetValue: 15,
		},
	)
	work := env.seedWork(t, orgID, serviceID, perioddomain.CadenceQuarterly, date(2025, time.July, 1))

	require.NoError(t, env.svc.BackfillWork(context.Background(), work.ID))
	periods := env.periods(t, work.ID)
	require.Len(t, periods, 1)
	require.Len(t, env.tasks(t, periods[0].ID), 2)

	// September's monthly instance becomes due on the 10th.
	env.clock.Set(date(2025, time.October, 10))
	require.NoError(t, env.svc.EnsureUpToDate(context.Background(), work.ID))
	require.Len(t, env.tasks(t, periods[0].ID), 3)

	// The quarterly task follows on the 15th.
	env.clock.Set(date(2025, time.October, 15))
	require.NoError(t, env.svc.EnsureUpToDate(context.Background(), work.ID))
	require.Len(t, env.tasks(t, periods[0].ID), 4)
}

func TestBackfill_CopiesDocumentChecklistPerPeriod(t *testing.T) {
	env := newTestEnv(t, date(2025, time.July, 20))
	orgID := env.node.Generate()

	serviceID := env.seedService(t, orgID,
		catalogdomain.TaskTemplate{
			Title:      "File monthly return",
			Cadence:    perioddomain.CadenceMonthly,
			OffsetKind: perioddomain.OffsetDays, OffsetValue: 10,
		},
	)
	work := env.seedWork(t, orgID, serviceID, perioddomain.CadenceMonthly, date(2025, time.May, 1))
	for _, name := range []string{"Sales register", "Purchase register"} {
		require.NoError(t, env.db.Create(&workdomain.WorkDocument{
			ID: env.node.Generate(), OrgID: orgID, WorkID: work.ID, Name: name,
		}).Error)
	}

	require.NoError(t, env.svc.BackfillWork(context.Background(), work.ID))

	periods := env.periods(t, work.ID)
	require.Len(t, periods, 2) // May and June; July is open

	for _, period := range periods {
		var docs []perioddomain.PeriodDocument
		require.NoError(t, env.db.Where("period_id = ?", period.ID).Find(&docs).Error)
		assert.Len(t, docs, 2, "period %s", period.Name)
		for _, doc := range docs {
			assert.False(t, doc.Collected)
		}
	}
}

func TestBackfill_NonRecurringWorkGetsImmediateTasks(t *testing.T) {
	env := newTestEnv(t, date(2025, time.June, 1))
	orgID := env.node.Generate()

	exact := date(2025, time.September, 30)
	serviceID := env.seedService(t, orgID,
		catalogdomain.TaskTemplate{Title: "Prepare audit report", ExactDueDate: &exact},
		catalogdomain.TaskTemplate{Title: "Collect statements", OffsetKind: perioddomain.OffsetDays, OffsetValue: 7},
	)

	work := workdomain.Work{
		ID:         env.node.Generate(),
		OrgID:      orgID,
		CustomerID: env.node.Generate(),
		ServiceID:  serviceID,
		Title:      "One-time audit",
		Recurring:  false,
		StartDate:  date(2025, time.June, 1),
		Status:     workdomain.WorkStatusActive,
	}
	require.NoError(t, env.db.Create(&work).Error)

	require.NoError(t, env.svc.BackfillWork(context.Background(), work.ID))

	periods := env.periods(t, work.ID)
	require.Len(t, periods, 1)
	assert.Equal(t, periods[0].PeriodStart, periods[0].PeriodEnd)

	tasks := env.tasks(t, periods[0].ID)
	require.Len(t, tasks, 2)
	assert.Equal(t, date(2025, time.June, 8), tasks[0].DueDate)
	assert.Equal(t, exact, tasks[1].DueDate)
}

func TestUpdateTaskStatus_CompletionCascadeAndReversal(t *testing.T) {
	env := newTestEnv(t, date(2025, time.October, 20))
	orgID := env.node.Generate()

	var completedEvents []events.PeriodCompleted
	env.bus.Subscribe(events.TopicPeriodCompleted, func(_ context.Context, ev events.Event) error {
		completedEvents = append(completedEvents, ev.(events.PeriodCompleted))
		return nil
	})

	serviceID := env.seedService(t, orgID,
		catalogdomain.TaskTemplate{
			Title:      "File monthly return",
			Cadence:    perioddomain.CadenceMonthly,
			OffsetKind: perioddomain.OffsetDays, OffsetValue: 10,
		},
		catalogdomain.TaskTemplate{
			Title:      "Reconcile books",
			Cadence:    perioddomain.CadenceMonthly,
			OffsetKind: perioddomain.OffsetDays, OffsetValue: 12,
		},
	)
	work := env.seedWork(t, orgID, serviceID, perioddomain.CadenceMonthly, date(2025, time.September, 1))
	require.NoError(t, env.svc.BackfillWork(context.Background(), work.ID))

	periods := env.periods(t, work.ID)
	require.Len(t, periods, 1)
	tasks := env.tasks(t, periods[0].ID)
	require.Len(t, tasks, 2)

	require.NoError(t, env.svc.UpdateTaskStatus(context.Background(), tasks[0].ID, perioddomain.TaskStatusCompleted))

	var period perioddomain.Period
	require.NoError(t, env.db.First(&period, "id = ?", periods[0].ID).Error)
	assert.Equal(t, perioddomain.PeriodStatusActive, period.Status)
	assert.Equal(t, 2, period.TotalTasks)
	assert.Equal(t, 1, period.CompletedTasks)
	assert.False(t, period.AllTasksCompleted)
	assert.Empty(t, completedEvents)

	require.NoError(t, env.svc.UpdateTaskStatus(context.Background(), tasks[1].ID, perioddomain.TaskStatusCompleted))

	require.NoError(t, env.db.First(&period, "id = ?", periods[0].ID).Error)
	assert.Equal(t, perioddomain.PeriodStatusCompleted, period.Status)
	assert.True(t, period.AllTasksCompleted)
	require.Len(t, completedEvents, 1)
	assert.Equal(t, period.ID, completedEvents[0].PeriodID)

	// Re-completing an already completed task must not fire a second event.
	require.NoError(t, env.svc.UpdateTaskStatus(context.Background(), tasks[1].ID, perioddomain.TaskStatusCompleted))
	assert.Len(t, completedEvents, 1)

	// Reopening flips the period back; the recount is from scratch.
	require.NoError(t, env.svc.UpdateTaskStatus(context.Background(), tasks[0].ID, perioddomain.TaskStatusPending))

	require.NoError(t, env.db.First(&period, "id = ?", periods[0].ID).Error)
	assert.Equal(t, perioddomain.PeriodStatusActive, period.Status)
	assert.False(t, period.AllTasksCompleted)
	assert.Equal(t, 1, period.CompletedTasks)

	// Completing again re-fires; invoice one-shot semantics live downstream.
	require.NoError(t, env.svc.UpdateTaskStatus(context.Background(), tasks[0].ID, perioddomain.TaskStatusCompleted))
	assert.Len(t, completedEvents, 2)
}

func TestUpdateTaskStatus_RejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t, date(2025, time.October, 20))
	err := env.svc.UpdateTaskStatus(context.Background(), env.node.Generate(), perioddomain.TaskStatus("blocked"))
	assert.ErrorIs(t, err, perioddomain.ErrInvalidStatus)
}

func TestBackfill_PeriodCalcTypePositionsFirstSpan(t *testing.T) {
	env := newTestEnv(t, date(2025, time.August, 20))
	orgID := env.node.Generate()

	serviceID := env.seedService(t, orgID,
		catalogdomain.TaskTemplate{
			Title:      "File monthly return",
			Cadence:    perioddomain.CadenceMonthly,
			OffsetKind: perioddomain.OffsetDays, OffsetValue: 5,
		},
	)

	work := env.seedWork(t, orgID, serviceID, perioddomain.CadenceMonthly, date(2025, time.June, 15))
	work.PeriodCalcType = workdomain.PeriodCalcPrevious
	require.NoError(t, env.db.Save(&work).Error)

	require.NoError(t, env.svc.BackfillWork(context.Background(), work.ID))

	periods := env.periods(t, work.ID)
	require.NotEmpty(t, periods)
	// Previous-period mode bills the cycle that ended just before onboarding,
	// but only tasks due on/after the start date survive the gate: May's task
	// (due June 5) precedes the June 15 start and is filtered, so June leads.
	assert.Equal(t, "June 2025", periods[0].Name)
}
