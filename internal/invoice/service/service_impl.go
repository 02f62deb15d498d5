package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/praxishq/praxis/internal/catalog/domain"
	"github.com/praxishq/praxis/internal/clock"
	customerdomain "github.com/praxishq/praxis/internal/customer/domain"
	"github.com/praxishq/praxis/internal/events"
	invoicedomain "github.com/praxishq/praxis/internal/invoice/domain"
	"github.com/praxishq/praxis/internal/invoice/format"
	orgdomain "github.com/praxishq/praxis/internal/org/domain"
	perioddomain "github.com/praxishq/praxis/internal/period/domain"
	workdomain "github.com/praxishq/praxis/internal/work/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Bus   *events.Bus
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	bus   *events.Bus
}

func NewService(p ServiceParam) invoicedomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,
		clock: p.Clock,
		bus:   p.Bus,
	}
}

// billingContext collects everything the generator resolves before writing
// the invoice row.
type billingContext struct {
	work     workdomain.Work
	customer customerdomain.Customer
	service  catalogdomain.Service
	settings orgdomain.Settings
}

func (s *Service) GenerateForPeriod(ctx context.Context, periodID snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice *invoicedomain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var period perioddomain.Period
		if err := tx.First(&period, "id = ?", periodID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return perioddomain.ErrPeriodNotFound
			}
			return err
		}
		if !period.AllTasksCompleted {
			return invoicedomain.ErrPeriodIncomplete
		}

		bc, err := s.resolveBillingContext(ctx, tx, period.WorkID)
		if err != nil {
			return err
		}
		if !bc.work.AutoBill {
			return invoicedomain.ErrAutoBillDisabled
		}

		inv, err := s.writeInvoice(ctx, tx, bc, period.ID)
		if err != nil {
			return err
		}

		err = tx.Model(&perioddomain.Period{}).
			Where("id = ?", period.ID).
			Update("invoice_id", inv.ID).Error
		if err != nil {
			return err
		}
		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.InvoiceStatusChanged{
		OrgID:     invoice.OrgID,
		InvoiceID: invoice.ID,
		From:      "",
		To:        string(invoicedomain.InvoiceStatusDraft),
	})
	return invoice, nil
}

func (s *Service) GenerateForWork(ctx context.Context, workID snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice *invoicedomain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bc, err := s.resolveBillingContext(ctx, tx, workID)
		if err != nil {
			return err
		}
		if bc.work.Recurring {
			// Recurring works bill per period; the work-level path is for
			// one-shot engagements only.
			return invoicedomain.ErrAutoBillDisabled
		}
		if !bc.work.AutoBill {
			return invoicedomain.ErrAutoBillDisabled
		}
		if bc.work.Billed {
			return invoicedomain.ErrAlreadyInvoiced
		}

		inv, err := s.writeInvoice(ctx, tx, bc, 0)
		if err != nil {
			return err
		}

		err = tx.Model(&workdomain.Work{}).
			Where("id = ?", bc.work.ID).
			Update("billed", true).Error
		if err != nil {
			return err
		}
		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.InvoiceStatusChanged{
		OrgID:     invoice.OrgID,
		InvoiceID: invoice.ID,
		From:      "",
		To:        string(invoicedomain.InvoiceStatusDraft),
	})
	return invoice, nil
}

func (s *Service) resolveBillingContext(ctx context.Context, tx *gorm.DB, workID snowflake.ID) (billingContext, error) {
	var bc billingContext
	if err := tx.First(&bc.work, "id = ?", workID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return bc, perioddomain.ErrWorkNotFound
		}
		return bc, err
	}
	if err := tx.First(&bc.customer, "id = ?", bc.work.CustomerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return bc, invoicedomain.ErrCustomerNotFound
		}
		return bc, err
	}
	if err := tx.First(&bc.service, "id = ?", bc.work.ServiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return bc, invoicedomain.ErrServiceNotFound
		}
		return bc, err
	}

	err := tx.First(&bc.settings, "org_id = ?", bc.work.OrgID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		bc.settings = orgdomain.DefaultSettings(bc.work.OrgID)
		err = nil
	}
	if err != nil {
		return bc, err
	}
	return bc, nil
}

// writeInvoice resolves price, tax, accounts and number, then inserts the
// draft invoice plus its single line. The unique (work_id, period_id) index
// makes concurrent generation converge on one invoice.
func (s *Service) writeInvoice(ctx context.Context, tx *gorm.DB, bc billingContext, periodID snowflake.ID) (*invoicedomain.Invoice, error) {
	subtotal, err := s.resolvePrice(ctx, tx, bc)
	if err != nil {
		return nil, err
	}

	incomeAccountID := bc.service.IncomeAccountID
	if incomeAccountID == 0 {
		incomeAccountID = bc.settings.DefaultIncomeAccountID
	}
	if incomeAccountID == 0 {
		return nil, invoicedomain.ErrNoIncomeAccount
	}

	tax := taxAmount(subtotal, bc.service.TaxRatePercent)

	number, err := s.nextNumber(ctx, tx, bc.work.OrgID, bc.settings.Numbering())
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	invoiceDate := perioddomain.DateOf(now)
	termDays := bc.service.PaymentTermDays
	if termDays <= 0 {
		termDays = 15
	}
	dueDate := invoiceDate.AddDate(0, 0, termDays)

	invoice := &invoicedomain.Invoice{
		ID:                  s.genID.Generate(),
		OrgID:               bc.work.OrgID,
		WorkID:              bc.work.ID,
		PeriodID:            periodID,
		CustomerID:          bc.customer.ID,
		Number:              number,
		Status:              invoicedomain.InvoiceStatusDraft,
		Subtotal:            subtotal,
		Tax:                 tax,
		Total:               subtotal + tax,
		IncomeAccountID:     incomeAccountID,
		ReceivableAccountID: bc.customer.ReceivableAccountID,
		InvoiceDate:         invoiceDate,
		DueDate:             &dueDate,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "work_id"}, {Name: "period_id"}},
		DoNothing: true,
	}).Create(invoice)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, invoicedomain.ErrAlreadyInvoiced
	}

	item := invoicedomain.InvoiceItem{
		ID:             s.genID.Generate(),
		OrgID:          bc.work.OrgID,
		InvoiceID:      invoice.ID,
		ServiceID:      bc.service.ID,
		Description:    bc.work.Title,
		Amount:         subtotal,
		TaxRatePercent: bc.service.TaxRatePercent,
		CreatedAt:      now,
	}
	if err := tx.Create(&item).Error; err != nil {
		return nil, err
	}

	s.log.Info("invoice generated",
		zap.String("number", invoice.Number),
		zap.Int64("work_id", int64(bc.work.ID)),
		zap.Int64("total", invoice.Total))
	return invoice, nil
}

// resolvePrice walks the override chain: work amount, then the customer's
// negotiated price, then the service default.
func (s *Service) resolvePrice(ctx context.Context, tx *gorm.DB, bc billingContext) (int64, error) {
	if bc.work.BillingAmount != nil {
		return *bc.work.BillingAmount, nil
	}

	var negotiated customerdomain.ServicePrice
	err := tx.First(&negotiated,
		"org_id = ? AND customer_id = ? AND service_id = ?",
		bc.work.OrgID, bc.customer.ID, bc.service.ID).Error
	if err == nil {
		return negotiated.Price, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	if bc.service.DefaultPrice != nil {
		return *bc.service.DefaultPrice, nil
	}
	return 0, invoicedomain.ErrNoPriceConfigured
}

// nextNumber allocates the next sequence for the org. Runs inside the
// generation transaction; the unique invoice index backstops races.
func (s *Service) nextNumber(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, scheme orgdomain.NumberingScheme) (string, error) {
	var count int64
	if err := tx.Model(&invoicedomain.Invoice{}).Where("org_id = ?", orgID).Count(&count).Error; err != nil {
		return "", err
	}
	return format.FormatNumber(scheme, scheme.StartNumber+count)
}

// taxAmount computes round-half-up tax in minor units.
func taxAmount(subtotal int64, ratePercent decimal.Decimal) int64 {
	if ratePercent.IsZero() {
		return 0
	}
	return decimal.NewFromInt(subtotal).
		Mul(ratePercent).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}
