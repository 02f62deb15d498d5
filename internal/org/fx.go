package org

import (
	"github.com/praxishq/praxis/internal/org/service"
	"go.uber.org/fx"
)

// Module provides per-tenant settings access.
var Module = fx.Module("org.service",
	fx.Provide(service.NewService),
)
