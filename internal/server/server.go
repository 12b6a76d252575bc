package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/clubworks/clubledger/internal/audit"
	"github.com/clubworks/clubledger/internal/authorization"
	"github.com/clubworks/clubledger/internal/billingsettings"
	billingsettingsdomain "github.com/clubworks/clubledger/internal/billingsettings/domain"
	"github.com/clubworks/clubledger/internal/charge"
	chargedomain "github.com/clubworks/clubledger/internal/charge/domain"
	"github.com/clubworks/clubledger/internal/config"
	"github.com/clubworks/clubledger/internal/financedashboard"
	financedomain "github.com/clubworks/clubledger/internal/financedashboard/domain"
	"github.com/clubworks/clubledger/internal/ledger"
	ledgerdomain "github.com/clubworks/clubledger/internal/ledger/domain"
	"github.com/clubworks/clubledger/internal/observability/metrics"
	"github.com/clubworks/clubledger/internal/population"
	"github.com/clubworks/clubledger/internal/scheduler"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	authorization.Module,
	audit.Module,
	billingsettings.Module,
	population.Module,
	charge.Module,
	ledger.Module,
	financedashboard.Module,
	metrics.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))

	return r
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	log         *zap.Logger
	settingsSvc billingsettingsdomain.Service
	chargeSvc   chargedomain.Service
	ledgerSvc   ledgerdomain.Service
	financeSvc  financedomain.Service
	scheduler   *scheduler.Scheduler
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	SettingsSvc billingsettingsdomain.Service
	ChargeSvc   chargedomain.Service
	LedgerSvc   ledgerdomain.Service
	FinanceSvc  financedomain.Service
	Scheduler   *scheduler.Scheduler `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		settingsSvc: p.SettingsSvc,
		chargeSvc:   p.ChargeSvc,
		ledgerSvc:   p.LedgerSvc,
		financeSvc:  p.FinanceSvc,
		scheduler:   p.Scheduler,
	}
	s.registerRoutes()
	return s
}

// Engine exposes the underlying router, mainly for tests.
func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api/orgs/:orgId", s.ActorRequired(), s.OrgContext())

	api.GET("/billing/settings", s.getBillingSettings)
	api.PUT("/billing/settings", s.updateBillingSettings)
	api.GET("/billing/cycle", s.getCurrentCycle)

	api.POST("/billing/charges/generate", s.generateCharges)
	api.GET("/billing/charges", s.listCharges)
	api.POST("/billing/charges/:chargeId/pay", s.payCharge)
	api.POST("/billing/charges/:chargeId/void", s.voidCharge)

	api.GET("/ledger", s.listLedgerEntries)
	api.POST("/ledger", s.appendLedgerEntry)
	api.GET("/ledger/summary", s.ledgerSummary)

	api.GET("/finance/dashboard", s.financeDashboard)

	internal := s.engine.Group("/internal", s.InternalAuth())
	internal.POST("/billing/run", s.runBillingSweep)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
