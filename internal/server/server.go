// Package server exposes the HTTP API: works, periods, tasks, invoices,
// ledger queries and the pipeline failure surface.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	catalogdomain "github.com/praxishq/praxis/internal/catalog/domain"
	"github.com/praxishq/praxis/internal/config"
	customerdomain "github.com/praxishq/praxis/internal/customer/domain"
	invoicedomain "github.com/praxishq/praxis/internal/invoice/domain"
	ledgerdomain "github.com/praxishq/praxis/internal/ledger/domain"
	obsmetrics "github.com/praxishq/praxis/internal/observability/metrics"
	orgdomain "github.com/praxishq/praxis/internal/org/domain"
	perioddomain "github.com/praxishq/praxis/internal/period/domain"
	pipelinedomain "github.com/praxishq/praxis/internal/pipeline/domain"
	workdomain "github.com/praxishq/praxis/internal/work/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the gin engine, the server and the HTTP listener.
var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)

// NewEngine builds the gin engine with the shared middleware stack and the
// operational endpoints every process exposes.
func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(log))
	r.Use(MetricsMiddleware(obsmetrics.HTTP()))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

type ServerParam struct {
	fx.In

	Engine      *gin.Engine
	Config      config.Config
	Log         *zap.Logger
	WorkSvc     workdomain.Service
	PeriodSvc   perioddomain.Service
	InvoiceSvc  invoicedomain.Service
	LedgerSvc   ledgerdomain.Service
	CatalogSvc  catalogdomain.CatalogService
	CustomerSvc customerdomain.Service
	OrgSvc      orgdomain.Service
	Failures    pipelinedomain.Service
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	workSvc     workdomain.Service
	periodSvc   perioddomain.Service
	invoiceSvc  invoicedomain.Service
	ledgerSvc   ledgerdomain.Service
	catalogSvc  catalogdomain.CatalogService
	customerSvc customerdomain.Service
	orgSvc      orgdomain.Service
	failures    pipelinedomain.Service
}

func NewServer(p ServerParam) *Server {
	return &Server{
		engine:      p.Engine,
		cfg:         p.Config,
		log:         p.Log.Named("server"),
		workSvc:     p.WorkSvc,
		periodSvc:   p.PeriodSvc,
		invoiceSvc:  p.InvoiceSvc,
		ledgerSvc:   p.LedgerSvc,
		catalogSvc:  p.CatalogSvc,
		customerSvc: p.CustomerSvc,
		orgSvc:      p.OrgSvc,
		failures:    p.Failures,
	}
}

// RegisterRoutes mounts the tenant-scoped API under /v1.
func (s *Server) RegisterRoutes() {
	v1 := s.engine.Group("/v1", OrgMiddleware(s.cfg.DefaultOrgID))

	v1.POST("/works", s.CreateWork)
	v1.GET("/works", s.ListWorks)
	v1.GET("/works/:id", s.GetWork)
	v1.PATCH("/works/:id", s.UpdateWork)
	v1.GET("/works/:id/periods", s.ListWorkPeriods)
	v1.POST("/works/:id/generate", s.GenerateWorkPeriods)

	v1.GET("/periods/:id/tasks", s.ListPeriodTasks)
	v1.PATCH("/tasks/:id/status", s.UpdateTaskStatus)

	v1.GET("/invoices", s.ListInvoices)
	v1.GET("/invoices/:id", s.GetInvoice)
	v1.POST("/invoices/:id/status", s.TransitionInvoiceStatus)

	v1.GET("/ledger/transactions", s.ListLedgerTransactions)

	v1.POST("/services", s.CreateService)
	v1.GET("/services", s.ListServices)
	v1.GET("/services/:id/templates", s.ListServiceTemplates)

	v1.POST("/customers", s.CreateCustomer)
	v1.GET("/customers", s.ListCustomers)
	v1.PUT("/customers/:id/prices/:serviceID", s.SetCustomerServicePrice)

	v1.GET("/settings", s.GetSettings)
	v1.PATCH("/settings", s.UpdateSettings)

	v1.GET("/pipeline/failures", s.ListPipelineFailures)
	v1.POST("/pipeline/failures/:id/resolve", s.ResolvePipelineFailure)
}

// RunHTTP starts the listener on application start and drains it on stop.
func RunHTTP(lc fx.Lifecycle, engine *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
