// Package events is a small synchronous in-process dispatcher. It makes the
// pipeline ordering explicit: task completion raises PeriodCompleted /
// WorkCompleted consumed by the invoice generator, and invoice status
// changes raise InvoiceStatusChanged consumed by the ledger poster.
//
// Handlers run after the triggering transaction commits and must not fail
// the caller: the bus recovers panics and logs handler errors.
package events

import (
	"context"
	"sync"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the shared bus.
var Module = fx.Module("events",
	fx.Provide(NewBus),
)

// Event is a domain event routed by topic name.
type Event interface {
	Topic() string
}

// Handler consumes one event. Errors are logged, never propagated.
type Handler func(ctx context.Context, event Event) error

type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	log      *zap.Logger
}

func NewBus(log *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		log:      log.Named("events"),
	}
}

// Subscribe registers a handler for a topic. Registration happens during fx
// startup; Publish is safe for concurrent use afterwards.
func (b *Bus) Subscribe(topic string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
}

// Publish dispatches the event synchronously to every subscriber. The
// triggering mutation has already committed, so a failing handler only
// logs; downstream stages persist their own failure records.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.Topic()]
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(ctx, event, h)
	}
}

func (b *Bus) dispatch(ctx context.Context, event Event, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event handler panicked",
				zap.String("topic", event.Topic()),
				zap.Any("panic", r),
			)
		}
	}()
	if err := h(ctx, event); err != nil {
		b.log.Warn("event handler failed",
			zap.String("topic", event.Topic()),
			zap.Error(err),
		)
	}
}
