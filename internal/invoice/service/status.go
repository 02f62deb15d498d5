package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/praxishq/praxis/internal/events"
	invoicedomain "github.com/praxishq/praxis/internal/invoice/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// allowedTransitions is the invoice state machine. Reverse edges exist so a
// mis-sent or mis-marked invoice can be corrected; the ledger poster undoes
// financial effect symmetrically.
var allowedTransitions = map[invoicedomain.InvoiceStatus][]invoicedomain.InvoiceStatus{
	invoicedomain.InvoiceStatusDraft:     {invoicedomain.InvoiceStatusSent, invoicedomain.InvoiceStatusCancelled},
	invoicedomain.InvoiceStatusSent:      {invoicedomain.InvoiceStatusPaid, invoicedomain.InvoiceStatusDraft, invoicedomain.InvoiceStatusCancelled},
	invoicedomain.InvoiceStatusPaid:      {invoicedomain.InvoiceStatusSent},
	invoicedomain.InvoiceStatusCancelled: {invoicedomain.InvoiceStatusDraft},
}

func transitionAllowed(from, to invoicedomain.InvoiceStatus) bool {
	for _, t := range allowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// TransitionStatus applies a validated status change. Repeating a transition
// that already happened is a no-op, not an error.
func (s *Service) TransitionStatus(ctx context.Context, invoiceID snowflake.ID, to invoicedomain.InvoiceStatus) error {
	var from invoicedomain.InvoiceStatus
	var orgID snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice invoicedomain.Invoice
		if err := tx.First(&invoice, "id = ?", invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invoicedomain.ErrInvoiceNotFound
			}
			return err
		}
		from = invoice.Status
		orgID = invoice.OrgID
		if from == to {
			return nil
		}
		if !transitionAllowed(from, to) {
			return invoicedomain.ErrInvalidTransition
		}

		now := s.clock.Now()
		updates := map[string]any{"status": to, "updated_at": now}
		switch {
		case to == invoicedomain.InvoiceStatusPaid:
			updates["paid_at"] = now
		case from == invoicedomain.InvoiceStatusPaid:
			updates["paid_at"] = nil
		}
		return tx.Model(&invoice).Updates(updates).Error
	})
	if err != nil {
		return err
	}
	if from == to {
		return nil
	}

	s.log.Info("invoice status changed",
		zap.Int64("invoice_id", int64(invoiceID)),
		zap.String("from", string(from)),
		zap.String("to", string(to)))

	s.bus.Publish(ctx, events.InvoiceStatusChanged{
		OrgID:     orgID,
		InvoiceID: invoiceID,
		From:      string(from),
		To:        string(to),
	})
	return nil
}

func (s *Service) GetByID(ctx context.Context, orgID, invoiceID snowflake.ID) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := s.db.WithContext(ctx).First(&invoice, "id = ? AND org_id = ?", invoiceID, orgID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invoicedomain.ErrInvoiceNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

func (s *Service) List(ctx context.Context, req invoicedomain.ListInvoicesRequest) (invoicedomain.ListInvoicesResponse, error) {
	var invoices []invoicedomain.Invoice
	err := s.db.WithContext(ctx).
		Where("org_id = ?", req.OrgID).
		Order("created_at DESC").
		Find(&invoices).Error
	if err != nil {
		return invoicedomain.ListInvoicesResponse{}, err
	}
	return invoicedomain.ListInvoicesResponse{Invoices: invoices}, nil
}
