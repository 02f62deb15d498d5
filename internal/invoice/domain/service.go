package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type ListInvoicesRequest struct {
	OrgID snowflake.ID
}

type ListInvoicesResponse struct {
	Invoices []Invoice `json:"invoices"`
}

// Service generates invoices from completed works/periods and owns the
// invoice status state machine.
type Service interface {
	// GenerateForPeriod emits at most one draft invoice for a completed
	// period of a recurring work. Skips surface as ErrAutoBillDisabled or
	// ErrAlreadyInvoiced so callers can tell them apart from real failures.
	GenerateForPeriod(ctx context.Context, periodID snowflake.ID) (*Invoice, error)

	// GenerateForWork is the non-recurring variant, keyed on the work alone.
	GenerateForWork(ctx context.Context, workID snowflake.ID) (*Invoice, error)

	// TransitionStatus validates and applies a status change, then publishes
	// the change for ledger posting. Idempotent per (invoice, transition).
	TransitionStatus(ctx context.Context, invoiceID snowflake.ID, to InvoiceStatus) error

	GetByID(ctx context.Context, orgID, invoiceID snowflake.ID) (*Invoice, error)
	List(ctx context.Context, req ListInvoicesRequest) (ListInvoicesResponse, error)
}

var (
	ErrInvoiceNotFound   = errors.New("invoice_not_found")
	ErrInvalidTransition = errors.New("invalid_invoice_transition")
	ErrNoPriceConfigured = errors.New("no_price_configured")
	ErrNoIncomeAccount   = errors.New("no_income_account_mapped")
	ErrPeriodIncomplete  = errors.New("period_not_completed")
	ErrAlreadyInvoiced   = errors.New("already_invoiced")
	ErrAutoBillDisabled  = errors.New("auto_bill_disabled")
	ErrServiceNotFound   = errors.New("service_not_found")
	ErrCustomerNotFound  = errors.New("customer_not_found")
)
