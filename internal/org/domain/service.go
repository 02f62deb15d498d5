package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type UpdateSettingsRequest struct {
	OrgID snowflake.ID

	DefaultIncomeAccountID *snowflake.ID
	CashAccountID          *snowflake.ID
	InvoicePrefix          *string
	InvoiceNumberWidth     *int
	InvoiceZeroPad         *bool
	InvoiceStartNumber     *int64
	InvoiceSuffix          *string
}

// Service reads and writes per-tenant settings. SettingsFor never fails on a
// missing row: callers get defaults so a fresh org works out of the box.
type Service interface {
	SettingsFor(ctx context.Context, orgID snowflake.ID) (Settings, error)
	Update(ctx context.Context, req UpdateSettingsRequest) (Settings, error)
}
