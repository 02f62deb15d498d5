package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	catalogdomain "github.com/praxishq/praxis/internal/catalog/domain"
	"github.com/praxishq/praxis/internal/clock"
	customerdomain "github.com/praxishq/praxis/internal/customer/domain"
	"github.com/praxishq/praxis/internal/events"
	invoicedomain "github.com/praxishq/praxis/internal/invoice/domain"
	orgdomain "github.com/praxishq/praxis/internal/org/domain"
	perioddomain "github.com/praxishq/praxis/internal/period/domain"
	workdomain "github.com/praxishq/praxis/internal/work/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type billingFixture struct {
	db    *gorm.DB
	svc   *Service
	node  *snowflake.Node
	clock *clock.FakeClock
	bus   *events.Bus

	orgID           snowflake.ID
	incomeAccountID snowflake.ID
	customer        customerdomain.Customer
	service         catalogdomain.Service
	work            workdomain.Work
	period          perioddomain.Period
}

func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&orgdomain.Settings{},
		&catalogdomain.Service{},
		&customerdomain.Customer{},
		&customerdomain.ServicePrice{},
		&workdomain.Work{},
		&perioddomain.Period{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceItem{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2025, time.October, 20, 9, 0, 0, 0, time.UTC))
	bus := events.NewBus(zap.NewNop())

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
		Bus:   bus,
	}).(*Service)

	f := &billingFixture{db: db, svc: svc, node: node, clock: fakeClock, bus: bus}
	f.orgID = node.Generate()
	f.incomeAccountID = node.Generate()

	require.NoError(t, db.Create(&orgdomain.Settings{
		ID:                     node.Generate(),
		OrgID:                  f.orgID,
		DefaultIncomeAccountID: f.incomeAccountID,
		InvoicePrefix:          "INV",
		InvoiceNumberWidth:     5,
		InvoiceZeroPad:         true,
		InvoiceStartNumber:     1,
	}).Error)

	defaultPrice := int64(50000)
	f.service = catalogdomain.Service{
		ID:              node.Generate(),
		OrgID:           f.orgID,
		Name:            "GST Filing",
		DefaultPrice:    &defaultPrice,
		TaxRatePercent:  decimal.NewFromInt(18),
		PaymentTermDays: 15,
	}
	require.NoError(t, db.Create(&f.service).Error)

	f.customer = customerdomain.Customer{
		ID:                  node.Generate(),
		OrgID:               f.orgID,
		Name:                "Acme Traders",
		ReceivableAccountID: node.Generate(),
	}
	require.NoError(t, db.Create(&f.customer).Error)

	f.work = workdomain.Work{
		ID:         node.Generate(),
		OrgID:      f.orgID,
		CustomerID: f.customer.ID,
		ServiceID:  f.service.ID,
		Title:      "GST Filing FY25",
		Recurring:  true,
		Cadence:    perioddomain.CadenceQuarterly,
		StartDate:  time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC),
		AutoBill:   true,
		Status:     workdomain.WorkStatusActive,
	}
	require.NoError(t, db.Create(&f.work).Error)

	f.period = perioddomain.Period{
		ID:                node.Generate(),
		OrgID:             f.orgID,
		WorkID:            f.work.ID,
		PeriodStart:       time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:         time.Date(2025, time.September, 30, 0, 0, 0, 0, time.UTC),
		Name:              "Q2 2025",
		Status:            perioddomain.PeriodStatusCompleted,
		TotalTasks:        2,
		CompletedTasks:    2,
		AllTasksCompleted: true,
	}
	require.NoError(t, db.Create(&f.period).Error)

	return f
}

func (f *billingFixture) updateWork(t *testing.T, mutate func(*workdomain.Work)) {
	t.Helper()
	mutate(&f.work)
	require.NoError(t, f.db.Save(&f.work).Error)
}

func TestGenerateForPeriod_UsesServiceDefaultPriceAndTax(t *testing.T) {
	f := newBillingFixture(t)

	inv, err := f.svc.GenerateForPeriod(context.Background(), f.period.ID)
	require.NoError(t, err)

	assert.Equal(t, invoicedomain.InvoiceStatusDraft, inv.Status)
	assert.Equal(t, int64(50000), inv.Subtotal)
	assert.Equal(t, int64(9000), inv.Tax)
	assert.Equal(t, int64(59000), inv.Total)
	assert.Equal(t, "INV-00001", inv.Number)
	assert.Equal(t, f.incomeAccountID, inv.IncomeAccountID)
	assert.Equal(t, f.customer.ReceivableAccountID, inv.ReceivableAccountID)

	require.NotNil(t, inv.DueDate)
	assert.Equal(t, inv.InvoiceDate.AddDate(0, 0, 15), *inv.DueDate)

	// The generating run links the period to its invoice.
	var period perioddomain.Period
	require.NoError(t, f.db.First(&period, "id = ?", f.period.ID).Error)
	assert.Equal(t, inv.ID, period.InvoiceID)

	var items []invoicedomain.InvoiceItem
	require.NoError(t, f.db.Where("invoice_id = ?", inv.ID).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, f.work.Title, items[0].Description)
	assert.Equal(t, int64(50000), items[0].Amount)
}

func TestGenerateForPeriod_PricePriorityChain(t *testing.T) {
	f := newBillingFixture(t)

	require.NoError(t, f.db.Create(&customerdomain.ServicePrice{
		ID:         f.node.Generate(),
		OrgID:      f.orgID,
		CustomerID: f.customer.ID,
		ServiceID:  f.service.ID,
		Price:      45000,
	}).Error)

	// Negotiated price beats the service default.
	inv, err := f.svc.GenerateForPeriod(context.Background(), f.period.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(45000), inv.Subtotal)

	// A work-level amount beats both.
	override := int64(40000)
	f.updateWork(t, func(w *workdomain.Work) { w.BillingAmount = &override })

	secondPeriod := perioddomain.Period{
		ID:                f.node.Generate(),
		OrgID:             f.orgID,
		WorkID:            f.work.ID,
		PeriodStart:       time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:         time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC),
		Name:              "Q3 2025",
		Status:            perioddomain.PeriodStatusCompleted,
		AllTasksCompleted: true,
	}
	require.NoError(t, f.db.Create(&secondPeriod).Error)

	inv2, err := f.svc.GenerateForPeriod(context.Background(), secondPeriod.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(40000), inv2.Subtotal)
	assert.Equal(t, "INV-00002", inv2.Number)
}

func TestGenerateForPeriod_NoPriceConfigured(t *testing.T) {
	f := newBillingFixture(t)
	require.NoError(t, f.db.Model(&f.service).Update("default_price", nil).Error)

	_, err := f.svc.GenerateForPeriod(context.Background(), f.period.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrNoPriceConfigured)
}

func TestGenerateForPeriod_IncomeAccountPriority(t *testing.T) {
	f := newBillingFixture(t)

	serviceAccount := f.node.Generate()
	require.NoError(t, f.db.Model(&f.service).Update("income_account_id", serviceAccount).Error)

	inv, err := f.svc.GenerateForPeriod(context.Background(), f.period.ID)
	require.NoError(t, err)
	assert.Equal(t, serviceAccount, inv.IncomeAccountID)
}

func TestGenerateForPeriod_NoIncomeAccountAnywhere(t *testing.T) {
	f := newBillingFixture(t)
	require.NoError(t, f.db.Model(&orgdomain.Settings{}).
		Where("org_id = ?", f.orgID).
		Update("default_income_account_id", 0).Error)

	_, err := f.svc.GenerateForPeriod(context.Background(), f.period.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrNoIncomeAccount)
}

func TestGenerateForPeriod_CustomNumberingScheme(t *testing.T) {
	f := newBillingFixture(t)
	require.NoError(t, f.db.Model(&orgdomain.Settings{}).
		Where("org_id = ?", f.orgID).
		Updates(map[string]any{
			"invoice_prefix":       "ACME",
			"invoice_number_width": 4,
			"invoice_start_number": 100,
			"invoice_suffix":       "25-26",
		}).Error)

	inv, err := f.svc.GenerateForPeriod(context.Background(), f.period.ID)
	require.NoError(t, err)
	assert.Equal(t, "ACME-0100-25-26", inv.Number)
}

func TestGenerateForPeriod_DefaultNumberingWithoutSettingsRow(t *testing.T) {
	f := newBillingFixture(t)

	// An org that never saved settings still numbers invoices with the full
	// default scheme, matching what the settings endpoint advertises. The
	// income account must come from the service once the settings row is gone.
	require.NoError(t, f.db.Where("org_id = ?", f.orgID).Delete(&orgdomain.Settings{}).Error)
	require.NoError(t, f.db.Model(&f.service).Update("income_account_id", f.node.Generate()).Error)

	inv, err := f.svc.GenerateForPeriod(context.Background(), f.period.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-00001", inv.Number)
}

func TestGenerateForPeriod_OneInvoicePerPeriod(t *testing.T) {
	f := newBillingFixture(t)

	_, err := f.svc.GenerateForPeriod(context.Background(), f.period.ID)
	require.NoError(t, err)

	_, err = f.svc.GenerateForPeriod(context.Background(), f.period.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrAlreadyInvoiced)

	var count int64
	require.NoError(t, f.db.Model(&invoicedomain.Invoice{}).Where("work_id = ?", f.work.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestGenerateForPeriod_Guards(t *testing.T) {
	f := newBillingFixture(t)

	require.NoError(t, f.db.Model(&perioddomain.Period{}).
		Where("id = ?", f.period.ID).
		Update("all_tasks_completed", false).Error)
	_, err := f.svc.GenerateForPeriod(context.Background(), f.period.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrPeriodIncomplete)

	require.NoError(t, f.db.Model(&perioddomain.Period{}).
		Where("id = ?", f.period.ID).
		Update("all_tasks_completed", true).Error)
	f.updateWork(t, func(w *workdomain.Work) { w.AutoBill = false })
	_, err = f.svc.GenerateForPeriod(context.Background(), f.period.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrAutoBillDisabled)

	_, err = f.svc.GenerateForPeriod(context.Background(), f.node.Generate())
	assert.ErrorIs(t, err, perioddomain.ErrPeriodNotFound)
}

func TestGenerateForWork_OneShotEngagement(t *testing.T) {
	f := newBillingFixture(t)
	f.updateWork(t, func(w *workdomain.Work) {
		w.Recurring = false
		w.Cadence = ""
	})

	inv, err := f.svc.GenerateForWork(context.Background(), f.work.ID)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(0), inv.PeriodID)

	var work workdomain.Work
	require.NoError(t, f.db.First(&work, "id = ?", f.work.ID).Error)
	assert.True(t, work.Billed)

	_, err = f.svc.GenerateForWork(context.Background(), f.work.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrAlreadyInvoiced)
}

func TestGenerateForWork_RejectsRecurringWork(t *testing.T) {
	f := newBillingFixture(t)
	_, err := f.svc.GenerateForWork(context.Background(), f.work.ID)
	assert.ErrorIs(t, err, invoicedomain.ErrAutoBillDisabled)
}

func TestTransitionStatus_StateMachine(t *testing.T) {
	f := newBillingFixture(t)

	var changes []events.InvoiceStatusChanged
	f.bus.Subscribe(events.TopicInvoiceStatusChanged, func(_ context.Context, ev events.Event) error {
		changes = append(changes, ev.(events.InvoiceStatusChanged))
		return nil
	})

	inv, err := f.svc.GenerateForPeriod(context.Background(), f.period.ID)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, string(invoicedomain.InvoiceStatusDraft), changes[0].To)

	// draft -> paid skips sent and must be refused.
	err = f.svc.TransitionStatus(context.Background(), inv.ID, invoicedomain.InvoiceStatusPaid)
	assert.ErrorIs(t, err, invoicedomain.ErrInvalidTransition)

	require.NoError(t, f.svc.TransitionStatus(context.Background(), inv.ID, invoicedomain.InvoiceStatusSent))
	require.NoError(t, f.svc.TransitionStatus(context.Background(), inv.ID, invoicedomain.InvoiceStatusPaid))
	require.Len(t, changes, 3)
	assert.Equal(t, string(invoicedomain.InvoiceStatusSent), changes[1].To)
	assert.Equal(t, string(invoicedomain.InvoiceStatusPaid), changes[2].To)

	var stored invoicedomain.Invoice
	require.NoError(t, f.db.First(&stored, "id = ?", inv.ID).Error)
	assert.Equal(t, invoicedomain.InvoiceStatusPaid, stored.Status)
	require.NotNil(t, stored.PaidAt)

	// Repeating the current status is a no-op and fires nothing.
	require.NoError(t, f.svc.TransitionStatus(context.Background(), inv.ID, invoicedomain.InvoiceStatusPaid))
	assert.Len(t, changes, 3)

	// Unmarking a payment clears paid_at. Scan into a fresh struct: gorm
	// leaves a reused pointer field untouched when the column is NULL.
	require.NoError(t, f.svc.TransitionStatus(context.Background(), inv.ID, invoicedomain.InvoiceStatusSent))
	stored = invoicedomain.Invoice{}
	require.NoError(t, f.db.First(&stored, "id = ?", inv.ID).Error)
	assert.Nil(t, stored.PaidAt)
}
