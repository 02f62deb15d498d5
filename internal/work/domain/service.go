package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	perioddomain "github.com/praxishq/praxis/internal/period/domain"
)

type CreateWorkRequest struct {
	OrgID      snowflake.ID
	CustomerID snowflake.ID
	ServiceID  snowflake.ID
	Title      string

	Recurring            bool
	Cadence              perioddomain.Cadence
	FiscalYearStartMonth int
	WeekStartDay         int
	PeriodCalcType       PeriodCalcType
	StartDate            time.Time

	AutoBill      bool
	BillingAmount *int64
	Documents     []string
}

type UpdateWorkRequest struct {
	OrgID  snowflake.ID
	WorkID snowflake.ID

	Title         *string
	AutoBill      *bool
	BillingAmount *int64
	Status        *WorkStatus

	// Recurrence mutations are rejected once periods exist.
	Cadence              *perioddomain.Cadence
	FiscalYearStartMonth *int
	PeriodCalcType       *PeriodCalcType
}

type ListWorksRequest struct {
	OrgID snowflake.ID
}

type ListWorksResponse struct {
	Works []Work `json:"works"`
}

// Service owns work creation and mutation. Creating a work triggers the
// period backfill.
type Service interface {
	Create(ctx context.Context, req CreateWorkRequest) (*Work, error)
	Update(ctx context.Context, req UpdateWorkRequest) (*Work, error)
	GetByID(ctx context.Context, orgID, workID snowflake.ID) (*Work, error)
	List(ctx context.Context, req ListWorksRequest) (ListWorksResponse, error)
}

var (
	ErrWorkNotFound     = errors.New("work_not_found")
	ErrInvalidStartDate = errors.New("invalid_start_date")
	ErrInvalidCadence   = errors.New("invalid_cadence")
	// ErrRecurrenceLocked rejects cadence/fiscal-start mutations after
	// periods exist; regenerating history is not supported.
	ErrRecurrenceLocked = errors.New("recurrence_locked")
)
