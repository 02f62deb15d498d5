package service

import (
	"context"

	"github.com/praxishq/praxis/internal/events"
	invoicedomain "github.com/praxishq/praxis/internal/invoice/domain"
	ledgerdomain "github.com/praxishq/praxis/internal/ledger/domain"
	pipelinedomain "github.com/praxishq/praxis/internal/pipeline/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type HandlerParam struct {
	fx.In

	DB       *gorm.DB
	Bus      *events.Bus
	Ledger   ledgerdomain.Service
	Failures pipelinedomain.Recorder
}

// RegisterHandlers subscribes ledger posting to invoice status changes. A
// posting failure (unmapped account) never rolls back the status change; it
// lands in the pipeline failure table for later remediation.
func RegisterHandlers(p HandlerParam) {
	p.Bus.Subscribe(events.TopicInvoiceStatusChanged, func(ctx context.Context, ev events.Event) error {
		e, ok := ev.(events.InvoiceStatusChanged)
		if !ok {
			return nil
		}

		var invoice invoicedomain.Invoice
		if err := p.DB.WithContext(ctx).First(&invoice, "id = ?", e.InvoiceID).Error; err != nil {
			p.Failures.Record(ctx, e.OrgID, pipelinedomain.StageLedger, "invoice", e.InvoiceID, err)
			return err
		}

		err := p.Ledger.ApplyInvoiceTransition(ctx, &invoice,
			invoicedomain.InvoiceStatus(e.From), invoicedomain.InvoiceStatus(e.To))
		if err != nil {
			p.Failures.Record(ctx, e.OrgID, pipelinedomain.StageLedger, "invoice", e.InvoiceID, err)
		}
		return err
	})
}
