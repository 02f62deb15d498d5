package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/praxishq/praxis/internal/clock"
	invoicedomain "github.com/praxishq/praxis/internal/invoice/domain"
	ledgerdomain "github.com/praxishq/praxis/internal/ledger/domain"
	orgdomain "github.com/praxishq/praxis/internal/org/domain"
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
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(p ServiceParam) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("ledger.service"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

// ApplyInvoiceTransition reconciles the ledger with an invoice's new status.
// Posting, receipting and reversing are each idempotent, so replaying a
// transition (event redelivery, manual retry) leaves the books unchanged.
func (s *Service) ApplyInvoiceTransition(ctx context.Context, invoice *invoicedomain.Invoice, from, to invoicedomain.InvoiceStatus) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch {
		case to.Posts() && !from.Posts():
			if err := s.postInvoice(ctx, tx, invoice); err != nil {
				return err
			}
		case !to.Posts() && from.Posts():
			if err := s.removeReceipt(ctx, tx, invoice); err != nil {
				return err
			}
			if err := s.reversePosting(ctx, tx, invoice); err != nil {
				return err
			}
		}

		if to == invoicedomain.InvoiceStatusPaid {
			return s.writeReceipt(ctx, tx, invoice)
		}
		if from == invoicedomain.InvoiceStatusPaid && to.Posts() {
			return s.removeReceipt(ctx, tx, invoice)
		}
		return nil
	})
}

// postInvoice writes the balanced pair for the invoice total: debit the
// customer's receivable account, credit the resolved income account. Dated
// on the invoice date, not the posting time.
func (s *Service) postInvoice(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice) error {
	var existing int64
	err := tx.Model(&ledgerdomain.Transaction{}).
		Where("invoice_id = ? AND voucher_id = 0", invoice.ID).
		Count(&existing).Error
	if err != nil {
		return err
	}
	if existing > 0 {
		return nil
	}

	receivable, err := s.receivableAccount(ctx, tx, invoice)
	if err != nil {
		return err
	}
	income := invoice.IncomeAccountID
	if income == 0 {
		return ledgerdomain.ErrAccountNotMapped
	}

	lines := []ledgerdomain.Line{
		{AccountID: receivable, Debit: invoice.Total},
		{AccountID: income, Credit: invoice.Total},
	}
	if err := ledgerdomain.ValidateBalanced(lines); err != nil {
		return err
	}

	narration := fmt.Sprintf("Invoice %s", invoice.Number)
	for _, line := range lines {
		row := ledgerdomain.Transaction{
			ID:        s.genID.Generate(),
			OrgID:     invoice.OrgID,
			AccountID: line.AccountID,
			InvoiceID: invoice.ID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Date:      invoice.InvoiceDate,
			Narration: narration,
			CreatedAt: s.clock.Now(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}

	s.log.Info("invoice posted to ledger",
		zap.String("number", invoice.Number),
		zap.Int64("total", invoice.Total))
	return nil
}

func (s *Service) reversePosting(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice) error {
	return tx.Where("invoice_id = ? AND voucher_id = 0", invoice.ID).
		Delete(&ledgerdomain.Transaction{}).Error
}

// writeReceipt synthesizes the receipt voucher for a paid invoice: debit the
// org's cash account, credit the receivable. The unique (invoice, type) key
// on vouchers makes repeated paid transitions converge on one receipt.
func (s *Service) writeReceipt(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice) error {
	cash, err := s.cashAccount(ctx, tx, invoice.OrgID)
	if err != nil {
		return err
	}
	receivable, err := s.receivableAccount(ctx, tx, invoice)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	voucher := ledgerdomain.Voucher{
		ID:        s.genID.Generate(),
		OrgID:     invoice.OrgID,
		InvoiceID: invoice.ID,
		Type:      ledgerdomain.VoucherTypeReceipt,
		Date:      now,
		Narration: fmt.Sprintf("Receipt against invoice %s", invoice.Number),
		CreatedAt: now,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "invoice_id"}, {Name: "type"}},
		DoNothing: true,
	}).Create(&voucher)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}

	lines := []ledgerdomain.Line{
		{AccountID: cash, Debit: invoice.Total},
		{AccountID: receivable, Credit: invoice.Total},
	}
	if err := ledgerdomain.ValidateBalanced(lines); err != nil {
		return err
	}
	for _, line := range lines {
		entry := ledgerdomain.VoucherEntry{
			ID:        s.genID.Generate(),
			VoucherID: voucher.ID,
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			CreatedAt: now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		row := ledgerdomain.Transaction{
			ID:        s.genID.Generate(),
			OrgID:     invoice.OrgID,
			AccountID: line.AccountID,
			InvoiceID: invoice.ID,
			VoucherID: voucher.ID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Date:      now,
			Narration: voucher.Narration,
			CreatedAt: now,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
	}

	s.log.Info("receipt voucher created",
		zap.String("number", invoice.Number),
		zap.Int64("amount", invoice.Total))
	return nil
}

// removeReceipt deletes the receipt voucher and everything hanging off it.
// No-op when the invoice was never marked paid.
func (s *Service) removeReceipt(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice) error {
	var vouchers []ledgerdomain.Voucher
	err := tx.Where("invoice_id = ? AND type = ?", invoice.ID, ledgerdomain.VoucherTypeReceipt).
		Find(&vouchers).Error
	if err != nil {
		return err
	}
	for _, voucher := range vouchers {
		if err := tx.Where("voucher_id = ?", voucher.ID).Delete(&ledgerdomain.Transaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("voucher_id = ?", voucher.ID).Delete(&ledgerdomain.VoucherEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&ledgerdomain.Voucher{}, "id = ?", voucher.ID).Error; err != nil {
			return err
		}
	}
	return nil
}

// receivableAccount prefers the customer's mapped account, falling back to
// the org's well-known receivable account.
func (s *Service) receivableAccount(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice) (snowflake.ID, error) {
	if invoice.ReceivableAccountID != 0 {
		return invoice.ReceivableAccountID, nil
	}
	return s.accountByCode(ctx, tx, invoice.OrgID, ledgerdomain.AccountCodeReceivable, ledgerdomain.ErrAccountNotMapped)
}

// cashAccount resolves from org settings first, then the well-known code.
func (s *Service) cashAccount(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) (snowflake.ID, error) {
	var settings orgdomain.Settings
	err := tx.First(&settings, "org_id = ?", orgID).Error
	if err == nil && settings.CashAccountID != 0 {
		return settings.CashAccountID, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	return s.accountByCode(ctx, tx, orgID, ledgerdomain.AccountCodeCash, ledgerdomain.ErrNoCashAccount)
}

func (s *Service) accountByCode(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, code ledgerdomain.AccountCode, missing error) (snowflake.ID, error) {
	var account ledgerdomain.Account
	err := tx.First(&account, "org_id = ? AND code = ?", orgID, code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, missing
		}
		return 0, err
	}
	return account.ID, nil
}

func (s *Service) List(ctx context.Context, req ledgerdomain.ListTransactionsRequest) (ledgerdomain.ListTransactionsResponse, error) {
	stmt := s.db.WithContext(ctx).Where("org_id = ?", req.OrgID)
	if req.InvoiceID != 0 {
		stmt = stmt.Where("invoice_id = ?", req.InvoiceID)
	}

	var rows []ledgerdomain.Transaction
	if err := stmt.Order("date, id").Find(&rows).Error; err != nil {
		return ledgerdomain.ListTransactionsResponse{}, err
	}
	return ledgerdomain.ListTransactionsResponse{Transactions: rows}, nil
}
