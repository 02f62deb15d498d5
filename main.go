package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/praxishq/praxis/internal/catalog"
	"github.com/praxishq/praxis/internal/clock"
	"github.com/praxishq/praxis/internal/config"
	"github.com/praxishq/praxis/internal/customer"
	"github.com/praxishq/praxis/internal/events"
	"github.com/praxishq/praxis/internal/invoice"
	"github.com/praxishq/praxis/internal/ledger"
	"github.com/praxishq/praxis/internal/org"
	"github.com/praxishq/praxis/internal/period"
	"github.com/praxishq/praxis/internal/pipeline"
	"github.com/praxishq/praxis/internal/scheduler"
	"github.com/praxishq/praxis/internal/seed"
	"github.com/praxishq/praxis/internal/server"
	"github.com/praxishq/praxis/internal/work"
	"github.com/praxishq/praxis/pkg/db"
	"github.com/praxishq/praxis/pkg/log"
	"github.com/praxishq/praxis/pkg/telemetry"
	"go.uber.org/fx"
)

// The monolith: HTTP API plus the scheduler sweep in one process. The
// sweep-only deployment lives in apps/scheduler.
func main() {
	app := fx.New(
		config.Module,
		config.SchedulerConfigModule,
		log.Module,
		telemetry.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		events.Module,

		org.Module,
		catalog.Module,
		customer.Module,
		pipeline.Module,
		period.Module,
		work.Module,
		invoice.Module,
		ledger.Module,

		scheduler.Module,
		server.Module,
		seed.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
