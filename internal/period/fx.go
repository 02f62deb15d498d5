package period

import (
	"github.com/praxishq/praxis/internal/period/service"
	"go.uber.org/fx"
)

// Module provides the period generation and task tracking service.
var Module = fx.Module("period.service",
	fx.Provide(service.NewService),
)
