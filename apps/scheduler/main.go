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
	"github.com/praxishq/praxis/internal/work"
	"github.com/praxishq/praxis/pkg/db"
	"github.com/praxishq/praxis/pkg/log"
	"github.com/praxishq/praxis/pkg/telemetry"
	"go.uber.org/fx"
)

// Sweep-only process: no HTTP server beyond what the modules provide, just
// the periodic catch-up over recurring works.
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

		// Domain services the jobs call into.
		org.Module,
		catalog.Module,
		customer.Module,
		pipeline.Module,
		period.Module,
		work.Module,
		invoice.Module,
		ledger.Module,

		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
