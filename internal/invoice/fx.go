package invoice

import (
	"github.com/praxishq/praxis/internal/invoice/service"
	"go.uber.org/fx"
)

// Module provides invoice generation, numbering and the status state machine,
// and subscribes generation to period/work completion events.
var Module = fx.Module("invoice.service",
	fx.Provide(service.NewService),
	fx.Invoke(service.RegisterHandlers),
)
