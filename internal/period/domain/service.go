package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type ListPeriodsRequest struct {
	OrgID  snowflake.ID
	WorkID snowflake.ID
}

type ListPeriodsResponse struct {
	Periods []Period `json:"periods"`
}

type ListTasksRequest struct {
	OrgID    snowflake.ID
	PeriodID snowflake.ID
}

type ListTasksResponse struct {
	Tasks []PeriodTask `json:"tasks"`
}

// Service generates periods/tasks for works and tracks their completion.
type Service interface {
	// BackfillWork materializes every eligible period from the work's start
	// date through today. Idempotent.
	BackfillWork(ctx context.Context, workID snowflake.ID) error

	// EnsureUpToDate extends an already-backfilled work with periods that
	// became eligible since the last run. Idempotent.
	EnsureUpToDate(ctx context.Context, workID snowflake.ID) error

	// UpdateTaskStatus moves a task between pending and completed and
	// recomputes the owning period's aggregate counts from scratch.
	UpdateTaskStatus(ctx context.Context, taskID snowflake.ID, status TaskStatus) error

	List(ctx context.Context, req ListPeriodsRequest) (ListPeriodsResponse, error)
	ListTasks(ctx context.Context, req ListTasksRequest) (ListTasksResponse, error)
}

var (
	ErrWorkNotFound    = errors.New("work_not_found")
	ErrTaskNotFound    = errors.New("task_not_found")
	ErrPeriodNotFound  = errors.New("period_not_found")
	ErrInvalidStatus   = errors.New("invalid_task_status")
	ErrNoTaskTemplates = errors.New("no_task_templates")
)
