package catalog

import (
	"github.com/praxishq/praxis/internal/catalog/service"
	"go.uber.org/fx"
)

// Module provides the service catalog.
var Module = fx.Module("catalog.service",
	fx.Provide(service.NewService),
)
