package customer

import (
	"github.com/praxishq/praxis/internal/customer/service"
	"go.uber.org/fx"
)

// Module provides the customer service.
var Module = fx.Module("customer.service",
	fx.Provide(service.NewService),
)
