// Package domain persists pipeline failures so configuration problems
// (unmapped ledger account, missing price) are queryable and actionable
// instead of only visible in logs.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Stage names the pipeline step that failed.
type Stage string

const (
	StageGeneration Stage = "period_generation"
	StageInvoice    Stage = "invoice_generation"
	StageLedger     Stage = "ledger_posting"
)

// Failure is one recorded downstream failure. The triggering user mutation
// still commits; the failure row is the audit trail of what did not happen.
type Failure struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	OrgID      snowflake.ID `gorm:"not null;index"`
	Stage      Stage        `gorm:"type:text;not null;index"`
	EntityType string       `gorm:"type:text;not null"`
	EntityID   snowflake.ID `gorm:"not null;index"`
	Message    string       `gorm:"type:text;not null"`
	OccurredAt time.Time    `gorm:"not null"`
	ResolvedAt *time.Time   `gorm:""`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Failure) TableName() string { return "pipeline_failures" }

type ListFailuresRequest struct {
	OrgID      snowflake.ID
	Unresolved bool
}

type ListFailuresResponse struct {
	Failures []Failure `json:"failures"`
}

// Recorder is the write side used by the pipeline stages. Record must never
// fail the caller: it logs on error and returns.
type Recorder interface {
	Record(ctx context.Context, orgID snowflake.ID, stage Stage, entityType string, entityID snowflake.ID, cause error)
}

// Service adds the query/remediation surface on top of Recorder.
type Service interface {
	Recorder
	Resolve(ctx context.Context, orgID, failureID snowflake.ID) error
	List(ctx context.Context, req ListFailuresRequest) (ListFailuresResponse, error)
}
