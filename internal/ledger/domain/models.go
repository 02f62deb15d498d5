// Package domain contains the chart of accounts, immutable ledger rows and
// receipt vouchers.
package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// AccountType classifies a chart-of-accounts entry.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeIncome    AccountType = "income"
	AccountTypeLiability AccountType = "liability"
	AccountTypeExpense   AccountType = "expense"
)

// AccountCode are the well-known codes the engine resolves by.
type AccountCode string

const (
	AccountCodeReceivable AccountCode = "accounts_receivable"
	AccountCodeIncome     AccountCode = "service_income"
	AccountCodeCash       AccountCode = "cash"
	AccountCodeBank       AccountCode = "bank"
)

// Account defines a chart-of-accounts entry.
type Account struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	OrgID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_ledger_accounts_org_code,priority:1"`
	Code      AccountCode  `gorm:"type:text;not null;uniqueIndex:ux_ledger_accounts_org_code,priority:2"`
	Name      string       `gorm:"type:text;not null"`
	Type      AccountType  `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Account) TableName() string { return "ledger_accounts" }

// Transaction is an immutable debit/credit row. Rows tie either directly to
// an invoice (VoucherID 0) or to a receipt voucher.
type Transaction struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	OrgID     snowflake.ID `gorm:"not null;index"`
	AccountID snowflake.ID `gorm:"not null;index"`
	InvoiceID snowflake.ID `gorm:"not null;default:0;index"`
	VoucherID snowflake.ID `gorm:"not null;default:0;index"`
	Debit     int64        `gorm:"not null;default:0"`
	Credit    int64        `gorm:"not null;default:0"`
	Date      time.Time    `gorm:"not null"`
	Narration string       `gorm:"type:text"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Transaction) TableName() string { return "ledger_transactions" }

// VoucherType discriminates voucher kinds; only receipts are synthesized.
type VoucherType string

const VoucherTypeReceipt VoucherType = "receipt"

// Voucher groups the entries of a payment event. Receipt vouchers are keyed
// unique to the invoice to prevent duplicates.
type Voucher struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	OrgID     snowflake.ID `gorm:"not null;index"`
	InvoiceID snowflake.ID `gorm:"not null;uniqueIndex:ux_vouchers_invoice_type,priority:1"`
	Type      VoucherType  `gorm:"type:text;not null;uniqueIndex:ux_vouchers_invoice_type,priority:2"`
	Date      time.Time    `gorm:"not null"`
	Narration string       `gorm:"type:text"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Voucher) TableName() string { return "vouchers" }

// VoucherEntry is one line of a voucher, mirrored into ledger transactions.
type VoucherEntry struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	VoucherID snowflake.ID `gorm:"not null;index"`
	AccountID snowflake.ID `gorm:"not null"`
	Debit     int64        `gorm:"not null;default:0"`
	Credit    int64        `gorm:"not null;default:0"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (VoucherEntry) TableName() string { return "voucher_entries" }

// Line is one side of a posting event before persistence.
type Line struct {
	AccountID snowflake.ID
	Debit     int64
	Credit    int64
}

var ErrUnbalancedPosting = errors.New("unbalanced_posting")

// ValidateBalanced enforces sum(debit) == sum(credit) per business event.
func ValidateBalanced(lines []Line) error {
	var debit, credit int64
	for _, line := range lines {
		debit += line.Debit
		credit += line.Credit
	}
	if debit != credit || debit == 0 {
		return ErrUnbalancedPosting
	}
	return nil
}
