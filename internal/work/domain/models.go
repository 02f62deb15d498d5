// Package domain holds the work (engagement) model: the root entity the
// period generator and invoice generator hang off.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	perioddomain "github.com/praxishq/praxis/internal/period/domain"
)

// PeriodCalcType positions a work's first period relative to its start date.
type PeriodCalcType string

const (
	PeriodCalcPrevious PeriodCalcType = "previous_period"
	PeriodCalcCurrent  PeriodCalcType = "current_period"
	PeriodCalcNext     PeriodCalcType = "next_period"
)

// WorkStatus is the coarse engagement lifecycle.
type WorkStatus string

const (
	WorkStatusActive    WorkStatus = "active"
	WorkStatusCompleted WorkStatus = "completed"
	WorkStatusArchived  WorkStatus = "archived"
)

// Work is a recurring or one-time client engagement tied to a service.
// Recurrence fields are immutable once periods exist; changing them would
// require regenerating history, which is an explicit unsupported operation.
type Work struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	OrgID      snowflake.ID `gorm:"not null;index"`
	CustomerID snowflake.ID `gorm:"not null;index"`
	ServiceID  snowflake.ID `gorm:"not null;index"`
	Title      string       `gorm:"type:text;not null"`

	Recurring            bool                 `gorm:"not null;default:false"`
	Cadence              perioddomain.Cadence `gorm:"type:text"`
	FiscalYearStartMonth int                  `gorm:"not null;default:4"`
	WeekStartDay         int                  `gorm:"not null;default:1"` // time.Monday
	PeriodCalcType       PeriodCalcType       `gorm:"type:text;not null;default:'current_period'"`
	StartDate            time.Time            `gorm:"not null"`

	AutoBill      bool       `gorm:"not null;default:false"`
	BillingAmount *int64     `gorm:""` // minor units; overrides every other price source
	Billed        bool       `gorm:"not null;default:false"`
	Status        WorkStatus `gorm:"type:text;not null;default:'active'"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Work) TableName() string { return "works" }

// FiscalStart returns the configured fiscal-year start month, defaulting to
// April when out of range.
func (w Work) FiscalStart() time.Month {
	if w.FiscalYearStartMonth >= 1 && w.FiscalYearStartMonth <= 12 {
		return time.Month(w.FiscalYearStartMonth)
	}
	return perioddomain.DefaultFiscalYearStartMonth
}

// WeekStart returns the configured week start day for weekly cadences.
func (w Work) WeekStart() time.Weekday {
	if w.WeekStartDay >= 0 && w.WeekStartDay <= 6 {
		return time.Weekday(w.WeekStartDay)
	}
	return time.Monday
}

// WorkDocument is a checklist row on the work, duplicated into each new
// period so collected flags stay independent per period.
type WorkDocument struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	OrgID     snowflake.ID `gorm:"not null;index"`
	WorkID    snowflake.ID `gorm:"not null;index"`
	Name      string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (WorkDocument) TableName() string { return "work_documents" }
