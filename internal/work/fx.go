package work

import (
	"github.com/praxishq/praxis/internal/work/service"
	"go.uber.org/fx"
)

// Module provides the work (engagement) service.
var Module = fx.Module("work.service",
	fx.Provide(service.NewService),
)
