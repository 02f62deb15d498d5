package service

import (
	"context"
	"errors"

	"github.com/praxishq/praxis/internal/events"
	invoicedomain "github.com/praxishq/praxis/internal/invoice/domain"
	pipelinedomain "github.com/praxishq/praxis/internal/pipeline/domain"
	"go.uber.org/fx"
)

type HandlerParam struct {
	fx.In

	Bus      *events.Bus
	Invoices invoicedomain.Service
	Failures pipelinedomain.Recorder
}

// RegisterHandlers subscribes invoice generation to task-completion events.
// Skips (auto-bill off, already invoiced) are silent; configuration failures
// land in the pipeline failure table so the completing user's save still
// succeeds.
func RegisterHandlers(p HandlerParam) {
	p.Bus.Subscribe(events.TopicPeriodCompleted, func(ctx context.Context, ev events.Event) error {
		e, ok := ev.(events.PeriodCompleted)
		if !ok {
			return nil
		}
		_, err := p.Invoices.GenerateForPeriod(ctx, e.PeriodID)
		if benign(err) {
			return nil
		}
		if err != nil {
			p.Failures.Record(ctx, e.OrgID, pipelinedomain.StageInvoice, "period", e.PeriodID, err)
		}
		return err
	})

	p.Bus.Subscribe(events.TopicWorkCompleted, func(ctx context.Context, ev events.Event) error {
		e, ok := ev.(events.WorkCompleted)
		if !ok {
			return nil
		}
		_, err := p.Invoices.GenerateForWork(ctx, e.WorkID)
		if benign(err) {
			return nil
		}
		if err != nil {
			p.Failures.Record(ctx, e.OrgID, pipelinedomain.StageInvoice, "work", e.WorkID, err)
		}
		return err
	})
}

func benign(err error) bool {
	return err == nil ||
		errors.Is(err, invoicedomain.ErrAutoBillDisabled) ||
		errors.Is(err, invoicedomain.ErrAlreadyInvoiced)
}
