// Package domain contains the period calendar, the due-date resolver and the
// persistence models for materialized periods and their tasks.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PeriodStatus tracks a period through its task lifecycle.
type PeriodStatus string

const (
	PeriodStatusPending   PeriodStatus = "pending"
	PeriodStatusActive    PeriodStatus = "active"
	PeriodStatusCompleted PeriodStatus = "completed"
)

// TaskStatus is the lifecycle of a single period task.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

// Period is one materialized occurrence of a work's recurrence.
// At most one period exists per (work_id, period_start).
type Period struct {
	ID                snowflake.ID `gorm:"primaryKey"`
	OrgID             snowflake.ID `gorm:"not null;index"`
	WorkID            snowflake.ID `gorm:"not null;index;uniqueIndex:ux_periods_work_start,priority:1"`
	PeriodStart       time.Time    `gorm:"not null;uniqueIndex:ux_periods_work_start,priority:2"`
	PeriodEnd         time.Time    `gorm:"not null"`
	Name              string       `gorm:"type:text;not null"`
	Status            PeriodStatus `gorm:"type:text;not null;default:'pending'"`
	TotalTasks        int          `gorm:"not null;default:0"`
	CompletedTasks    int          `gorm:"not null;default:0"`
	AllTasksCompleted bool         `gorm:"not null;default:false"`
	InvoiceID         snowflake.ID `gorm:"index"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Period) TableName() string { return "periods" }

// PeriodTask is one dated task instance inside a period. The uniqueness
// triple includes the due date because monthly templates produce several
// instances inside a quarterly/yearly period, one per sub-month.
type PeriodTask struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	OrgID       snowflake.ID `gorm:"not null;index"`
	WorkID      snowflake.ID `gorm:"not null;index"`
	PeriodID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_period_tasks_key,priority:1"`
	TemplateID  snowflake.ID `gorm:"not null;uniqueIndex:ux_period_tasks_key,priority:2"`
	DueDate     time.Time    `gorm:"not null;uniqueIndex:ux_period_tasks_key,priority:3"`
	Title       string       `gorm:"type:text;not null"`
	Priority    string       `gorm:"type:text;not null;default:'medium'"`
	Status      TaskStatus   `gorm:"type:text;not null;default:'pending'"`
	CompletedAt *time.Time   `gorm:""`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PeriodTask) TableName() string { return "period_tasks" }

// PeriodDocument is a per-period copy of a work's document checklist row.
// Collected flags are independent per period.
type PeriodDocument struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	OrgID          snowflake.ID `gorm:"not null;index"`
	PeriodID       snowflake.ID `gorm:"not null;index;uniqueIndex:ux_period_documents_key,priority:1"`
	WorkDocumentID snowflake.ID `gorm:"not null;uniqueIndex:ux_period_documents_key,priority:2"`
	Name           string       `gorm:"type:text;not null"`
	Collected      bool         `gorm:"not null;default:false"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (PeriodDocument) TableName() string { return "period_documents" }
