// Package domain holds per-tenant configuration: numbering schemes and
// default ledger-account mappings.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Settings is the per-tenant configuration row. One row per org.
type Settings struct {
	ID                     snowflake.ID `gorm:"primaryKey"`
	OrgID                  snowflake.ID `gorm:"not null;uniqueIndex"`
	DefaultIncomeAccountID snowflake.ID `gorm:""`
	CashAccountID          snowflake.ID `gorm:""` // receipt vouchers debit this account
	InvoicePrefix          string       `gorm:"type:text;not null;default:'INV'"`
	InvoiceNumberWidth     int          `gorm:"not null;default:5"`
	InvoiceZeroPad         bool         `gorm:"not null;default:true"`
	InvoiceStartNumber     int64        `gorm:"not null;default:1"`
	InvoiceSuffix          string       `gorm:"type:text"`
	CreatedAt              time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt              time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Settings) TableName() string { return "org_settings" }

// NumberingScheme is the invoice-number configuration resolved for an org.
type NumberingScheme struct {
	Prefix      string
	Width       int
	ZeroPad     bool
	StartNumber int64
	Suffix      string
}

// DefaultNumberingScheme applies when an org has no settings row.
func DefaultNumberingScheme() NumberingScheme {
	return NumberingScheme{Prefix: "INV", Width: 5, ZeroPad: true, StartNumber: 1}
}

// DefaultSettings is the unsaved settings row substituted for an org that
// has not persisted one yet. It carries the full default numbering scheme
// so a zero-value row can never leak an unpadded invoice number.
func DefaultSettings(orgID snowflake.ID) Settings {
	scheme := DefaultNumberingScheme()
	return Settings{
		OrgID:              orgID,
		InvoicePrefix:      scheme.Prefix,
		InvoiceNumberWidth: scheme.Width,
		InvoiceZeroPad:     scheme.ZeroPad,
		InvoiceStartNumber: scheme.StartNumber,
	}
}

// Numbering returns the org's configured scheme.
func (s Settings) Numbering() NumberingScheme {
	scheme := NumberingScheme{
		Prefix:      s.InvoicePrefix,
		Width:       s.InvoiceNumberWidth,
		ZeroPad:     s.InvoiceZeroPad,
		StartNumber: s.InvoiceStartNumber,
		Suffix:      s.InvoiceSuffix,
	}
	if scheme.Prefix == "" {
		scheme.Prefix = "INV"
	}
	if scheme.StartNumber <= 0 {
		scheme.StartNumber = 1
	}
	return scheme
}
