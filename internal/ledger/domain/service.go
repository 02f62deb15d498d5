package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/praxishq/praxis/internal/invoice/domain"
)

type ListTransactionsRequest struct {
	OrgID     snowflake.ID
	InvoiceID snowflake.ID
}

type ListTransactionsResponse struct {
	Transactions []Transaction `json:"transactions"`
}

// Service applies the financial consequences of invoice status transitions.
// Every method is idempotent per (invoice, transition).
type Service interface {
	// ApplyInvoiceTransition posts, reverses or synthesizes receipts to
	// reflect the invoice's move from one status to another.
	ApplyInvoiceTransition(ctx context.Context, invoice *invoicedomain.Invoice, from, to invoicedomain.InvoiceStatus) error

	List(ctx context.Context, req ListTransactionsRequest) (ListTransactionsResponse, error)
}

var (
	ErrAccountNotMapped = errors.New("ledger_account_not_mapped")
	ErrNoCashAccount    = errors.New("no_cash_account_configured")
)
