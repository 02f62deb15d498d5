package ledger

import (
	"github.com/praxishq/praxis/internal/ledger/service"
	"go.uber.org/fx"
)

// Module provides the double-entry poster and subscribes it to invoice
// status changes.
var Module = fx.Module("ledger.service",
	fx.Provide(service.NewService),
	fx.Invoke(service.RegisterHandlers),
)
