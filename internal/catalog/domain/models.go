// Package domain holds the service catalog: service definitions, their task
// templates and per-work template overrides. These are read-side contracts
// for the period generator and the invoice generator.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	perioddomain "github.com/praxishq/praxis/internal/period/domain"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Service is a billable service definition (e.g. "GST Filing").
type Service struct {
	ID              snowflake.ID    `gorm:"primaryKey"`
	OrgID           snowflake.ID    `gorm:"not null;index"`
	Name            string          `gorm:"type:text;not null"`
	DefaultPrice    *int64          `gorm:""` // minor units
	TaxRatePercent  decimal.Decimal `gorm:"type:numeric(6,3);not null;default:0"`
	IncomeAccountID snowflake.ID    `gorm:"index"`
	PaymentTermDays int             `gorm:"not null;default:15"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Service) TableName() string { return "services" }

// TaskTemplate defines one recurring task of a service. Its cadence may be
// finer than the owning work's cadence (a monthly task inside a quarterly
// work), in which case the generator emits one instance per sub-month.
type TaskTemplate struct {
	ID             snowflake.ID            `gorm:"primaryKey"`
	OrgID          snowflake.ID            `gorm:"not null;index"`
	ServiceID      snowflake.ID            `gorm:"not null;index"`
	Title          string                  `gorm:"type:text;not null"`
	Priority       string                  `gorm:"type:text;not null;default:'medium'"`
	EstimatedHours int                     `gorm:"not null;default:0"`
	Cadence        perioddomain.Cadence    `gorm:"type:text"` // empty: inherit the work cadence
	OffsetKind     perioddomain.OffsetKind `gorm:"type:text"`
	OffsetValue    int                     `gorm:"not null;default:0"`
	MonthsAfter    int                     `gorm:"not null;default:0"`
	ExactDueDate   *time.Time              `gorm:""`
	AnchorMonth    int                     `gorm:"not null;default:0"`
	AnchorDay      int                     `gorm:"not null;default:0"`
	Weekday        *int                    `gorm:""`
	// DueDateOverrides maps period end dates (2006-01-02) to explicit due
	// dates (2006-01-02), taking precedence over every other rule.
	DueDateOverrides datatypes.JSONMap `gorm:"type:jsonb"`
	SortOrder        int               `gorm:"not null;default:0"`
	CreatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (TaskTemplate) TableName() string { return "service_task_templates" }

// WorkTaskConfig overrides a subset of a template's fields for one work
// without mutating the template itself. Nil fields inherit the template.
type WorkTaskConfig struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	OrgID       snowflake.ID `gorm:"not null;index"`
	WorkID      snowflake.ID `gorm:"not null;index;uniqueIndex:ux_work_task_configs_key,priority:1"`
	TemplateID  snowflake.ID `gorm:"not null;uniqueIndex:ux_work_task_configs_key,priority:2"`
	Title       *string      `gorm:"type:text"`
	Priority    *string      `gorm:"type:text"`
	OffsetKind  *string      `gorm:"type:text"`
	OffsetValue *int         `gorm:""`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (WorkTaskConfig) TableName() string { return "work_task_configs" }
