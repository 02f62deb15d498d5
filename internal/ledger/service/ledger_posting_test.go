package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/praxishq/praxis/internal/clock"
	invoicedomain "github.com/praxishq/praxis/internal/invoice/domain"
	ledgerdomain "github.com/praxishq/praxis/internal/ledger/domain"
	orgdomain "github.com/praxishq/praxis/internal/org/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ledgerFixture struct {
	db    *gorm.DB
	svc   *Service
	node  *snowflake.Node
	clock *clock.FakeClock

	orgID        snowflake.ID
	receivableID snowflake.ID
	incomeID     snowflake.ID
	cashID       snowflake.ID
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&orgdomain.Settings{},
		&ledgerdomain.Account{},
		&ledgerdomain.Transaction{},
		&ledgerdomain.Voucher{},
		&ledgerdomain.VoucherEntry{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2025, time.November, 3, 10, 0, 0, 0, time.UTC))

	svc := NewService(ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: fakeClock,
	}).(*Service)

	f := &ledgerFixture{db: db, svc: svc, node: node, clock: fakeClock}
	f.orgID = node.Generate()

	accounts := []struct {
		code ledgerdomain.AccountCode
		typ  ledgerdomain.AccountType
		dst  *snowflake.ID
	}{
		{ledgerdomain.AccountCodeReceivable, ledgerdomain.AccountTypeAsset, &f.receivableID},
		{ledgerdomain.AccountCodeIncome, ledgerdomain.AccountTypeIncome, &f.incomeID},
		{ledgerdomain.AccountCodeCash, ledgerdomain.AccountTypeAsset, &f.cashID},
	}
	for _, a := range accounts {
		account := ledgerdomain.Account{
			ID:    node.Generate(),
			OrgID: f.orgID,
			Code:  a.code,
			Name:  string(a.code),
			Type:  a.typ,
		}
		require.NoError(t, db.Create(&account).Error)
		*a.dst = account.ID
	}

	return f
}

func (f *ledgerFixture) invoice() *invoicedomain.Invoice {
	return &invoicedomain.Invoice{
		ID:                  f.node.Generate(),
		OrgID:               f.orgID,
		WorkID:              f.node.Generate(),
		CustomerID:          f.node.Generate(),
		Number:              "INV-00042",
		Status:              invoicedomain.InvoiceStatusSent,
		Subtotal:            50000,
		Tax:                 9000,
		Total:               59000,
		IncomeAccountID:     f.incomeID,
		ReceivableAccountID: f.receivableID,
		InvoiceDate:         time.Date(2025, time.October, 20, 0, 0, 0, 0, time.UTC),
	}
}

func (f *ledgerFixture) rows(t *testing.T, invoiceID snowflake.ID) []ledgerdomain.Transaction {
	t.Helper()
	var rows []ledgerdomain.Transaction
	require.NoError(t, f.db.Where("invoice_id = ?", invoiceID).Order("id").Find(&rows).Error)
	return rows
}

func TestApplyInvoiceTransition_SendPostsBalancedPair(t *testing.T) {
	f := newLedgerFixture(t)
	inv := f.invoice()

	require.NoError(t, f.svc.ApplyInvoiceTransition(context.Background(), inv,
		invoicedomain.InvoiceStatusDraft, invoicedomain.InvoiceStatusSent))

	rows := f.rows(t, inv.ID)
	require.Len(t, rows, 2)

	byAccount := map[snowflake.ID]ledgerdomain.Transaction{}
	for _, row := range rows {
		byAccount[row.AccountID] = row
		assert.Equal(t, inv.InvoiceDate, row.Date, "posting is dated on the invoice, not the wall clock")
		assert.Equal(t, snowflake.ID(0), row.VoucherID)
		assert.Equal(t, "Invoice INV-00042", row.Narration)
	}
	assert.Equal(t, int64(59000), byAccount[f.receivableID].Debit)
	assert.Equal(t, int64(0), byAccount[f.receivableID].Credit)
	assert.Equal(t, int64(59000), byAccount[f.incomeID].Credit)
	assert.Equal(t, int64(0), byAccount[f.incomeID].Debit)

	// Event redelivery must not double-post.
	require.NoError(t, f.svc.ApplyInvoiceTransition(context.Background(), inv,
		invoicedomain.InvoiceStatusDraft, invoicedomain.InvoiceStatusSent))
	assert.Len(t, f.rows(t, inv.ID), 2)
}

func TestApplyInvoiceTransition_PaidWritesReceiptVoucher(t *testing.T) {
	f := newLedgerFixture(t)
	inv := f.invoice()

	require.NoError(t, f.svc.ApplyInvoiceTransition(context.Background(), inv,
		invoicedomain.InvoiceStatusDraft, invoicedomain.InvoiceStatusSent))
	require.NoError(t, f.svc.ApplyInvoiceTransition(context.Background(), inv,
		invoicedomain.InvoiceStatusSent, invoicedomain.InvoiceStatusPaid))

	var vouchers []ledgerdomain.Voucher
	require.NoError(t, f.db.Where("invoice_id = ?", inv.ID).Find(&vouchers).Error)
	require.Len(t, vouchers, 1)
	assert.Equal(t, ledgerdomain.VoucherTypeReceipt, vouchers[0].Type)

	var entries []ledgerdomain.VoucherEntry
	require.NoError(t, f.db.Where("voucher_id = ?", vouchers[0].ID).Find(&entries).Error)
	require.Len(t, entries, 2)

	// Two posting rows plus two receipt rows.
	rows := f.rows(t, inv.ID)
	require.Len(t, rows, 4)

	var cashDebit, receivableCredit int64
	for _, row := range rows {
		if row.VoucherID != vouchers[0].ID {
			continue
		}
		if row.AccountID == f.cashID {
			cashDebit = row.Debit
		}
		if row.AccountID == f.receivableID {
			receivableCredit = row.Credit
		}
	}
	assert.Equal(t, int64(59000), cashDebit)
	assert.Equal(t, int64(59000), receivableCredit)

	// Replaying the paid transition converges on the single voucher.
	require.NoError(t, f.svc.ApplyInvoiceTransition(context.Background(), inv,
		invoicedomain.InvoiceStatusSent, invoicedomain.InvoiceStatusPaid))
	require.NoError(t, f.db.Where("invoice_id = ?", inv.ID).Find(&vouchers).Error)
	assert.Len(t, vouchers, 1)
	assert.Len(t, f.rows(t, inv.ID), 4)
}

func TestApplyInvoiceTransition_CashAccountFromSettings(t *testing.T) {
	f := newLedgerFixture(t)
	bankID := f.node.Generate()
	require.NoError(t, f.db.Create(&orgdomain.Settings{
		ID:            f.node.Generate(),
		OrgID:         f.orgID,
		CashAccountID: bankID,
	}).Error)

	inv := f.invoice()
	require.NoError(t, f.svc.ApplyInvoiceTransition(context.Background(), inv,
		invoicedomain.InvoiceStatusSent, invoicedomain.InvoiceStatusPaid))

	var receiptRows []ledgerdomain.Transaction
	require.NoError(t, f.db.Where("invoice_id = ? AND voucher_id <> 0 AND debit > 0", inv.ID).
		Find(&receiptRows).Error)
	require.Len(t, receiptRows, 1)
	assert.Equal(t, bankID, receiptRows[0].AccountID)
}

func TestApplyInvoiceTransition_UnpayRemovesOnlyReceipt(t *testing.T) {
	f := newLedgerFixture(t)
	inv := f.invoice()

	require.NoError(t, f.svc.ApplyInvoiceTransition(context.Background(), inv,
		invoicedomain.InvoiceStatusDraft, invoicedomain.InvoiceStatusSent))
	require.NoError(t, f.svc.ApplyInvoiceTransition(context.Background(), inv,
		invoicedomain.InvoiceStatusSent, invoicedomain.InvoiceStatusPaid))

	require.NoError(t, f.svc.ApplyInvoiceTransition(context.Background(), inv,
		invoicedomain.InvoiceStatusPaid, invoicedomain.InvoiceStatusSent))

	var voucherCount int64
	require.NoError(t, f.db.Model(&ledgerdomain.Voucher{}).Where("invoice_id = ?", inv.ID).Count(&voucherCount).Error)
	assert.Equal(t, int64(0), voucherCount)

	// The original invoice posting stays intact.
	rows := f.rows(t, inv.ID)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, snowflake.ID(0), row.VoucherID)
	}
}

func TestApplyInvoiceTransition_RevertToDraftReversesEverything(t *testing.T) {
	f := newLedgerFixture(t)
	inv := f.invoice()

	require.NoError(t, f.svc.ApplyInvoiceTransition(context.Background(), inv,
		invoicedomain.InvoiceStatusDraft, invoicedomain.InvoiceStatusSent))
	require.NoError(t, f.svc.ApplyInvoiceTransition(context.Background(), inv,
		invoicedomain.InvoiceStatusSent, invoicedomain.InvoiceStatusPaid))
	require.NoError(t, f.svc.ApplyInvoiceTransition(context.Background(), inv,
		invoicedomain.InvoiceStatusPaid, invoicedomain.InvoiceStatusSent))

	require.NoError(t, f.svc.ApplyInvoiceTransition(context.Background(), inv,
		invoicedomain.InvoiceStatusSent, invoicedomain.InvoiceStatusDraft))

	assert.Empty(t, f.rows(t, inv.ID))

	var voucherCount, entryCount int64
	require.NoError(t, f.db.Model(&ledgerdomain.Voucher{}).Count(&voucherCount).Error)
	require.NoError(t, f.db.Model(&ledgerdomain.VoucherEntry{}).Count(&entryCount).Error)
	assert.Zero(t, voucherCount)
	assert.Zero(t, entryCount)
}

func TestApplyInvoiceTransition_MissingAccountMapping(t *testing.T) {
	f := newLedgerFixture(t)
	inv := f.invoice()
	inv.IncomeAccountID = 0

	err := f.svc.ApplyInvoiceTransition(context.Background(), inv,
		invoicedomain.InvoiceStatusDraft, invoicedomain.InvoiceStatusSent)
	assert.ErrorIs(t, err, ledgerdomain.ErrAccountNotMapped)
	assert.Empty(t, f.rows(t, inv.ID))
}

func TestValidateBalanced(t *testing.T) {
	a, b := snowflake.ID(1), snowflake.ID(2)

	assert.NoError(t, ledgerdomain.ValidateBalanced([]ledgerdomain.Line{
		{AccountID: a, Debit: 100},
		{AccountID: b, Credit: 100},
	}))
	assert.ErrorIs(t, ledgerdomain.ValidateBalanced([]ledgerdomain.Line{
		{AccountID: a, Debit: 100},
		{AccountID: b, Credit: 90},
	}), ledgerdomain.ErrUnbalancedPosting)
	assert.ErrorIs(t, ledgerdomain.ValidateBalanced(nil), ledgerdomain.ErrUnbalancedPosting)
}
