// Package domain contains persistence models for invoicing.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Posts reports whether the status carries financial effect in the ledger.
func (s InvoiceStatus) Posts() bool {
	return s != InvoiceStatusDraft && s != InvoiceStatusCancelled
}

// Invoice is the financial document derived from a completed work or period.
// At most one invoice exists per (work_id, period_id); non-recurring works
// use period_id 0 so the unique index still applies.
type Invoice struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	OrgID      snowflake.ID `gorm:"not null;index"`
	WorkID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_invoices_work_period,priority:1"`
	PeriodID   snowflake.ID `gorm:"not null;default:0;uniqueIndex:ux_invoices_work_period,priority:2"`
	CustomerID snowflake.ID `gorm:"not null;index"`

	Number   string        `gorm:"type:text;not null"`
	Status   InvoiceStatus `gorm:"type:text;not null;default:'draft'"`
	Subtotal int64         `gorm:"not null"` // minor units
	Tax      int64         `gorm:"not null;default:0"`
	Total    int64         `gorm:"not null"`

	IncomeAccountID     snowflake.ID `gorm:""`
	ReceivableAccountID snowflake.ID `gorm:""`

	InvoiceDate time.Time  `gorm:"not null"`
	DueDate     *time.Time `gorm:""`
	PaidAt      *time.Time `gorm:""`
	CreatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceItem is a line on an invoice carrying the resolved service, price
// and the tax rate that produced the tax amount.
type InvoiceItem struct {
	ID             snowflake.ID    `gorm:"primaryKey"`
	OrgID          snowflake.ID    `gorm:"not null;index"`
	InvoiceID      snowflake.ID    `gorm:"not null;index"`
	ServiceID      snowflake.ID    `gorm:"not null"`
	Description    string          `gorm:"type:text"`
	Amount         int64           `gorm:"not null"`
	TaxRatePercent decimal.Decimal `gorm:"type:numeric(6,3);not null;default:0"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (InvoiceItem) TableName() string { return "invoice_items" }
