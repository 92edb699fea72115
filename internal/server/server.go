package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/clinicore/ledger/internal/audit"
	auditdomain "github.com/clinicore/ledger/internal/audit/domain"
	"github.com/clinicore/ledger/internal/catalog"
	catalogdomain "github.com/clinicore/ledger/internal/catalog/domain"
	"github.com/clinicore/ledger/internal/claim"
	claimdomain "github.com/clinicore/ledger/internal/claim/domain"
	"github.com/clinicore/ledger/internal/clock"
	"github.com/clinicore/ledger/internal/config"
	"github.com/clinicore/ledger/internal/invoice"
	invoicedomain "github.com/clinicore/ledger/internal/invoice/domain"
	"github.com/clinicore/ledger/internal/migration"
	"github.com/clinicore/ledger/internal/observability"
	obslogger "github.com/clinicore/ledger/internal/observability/logger"
	obsmetrics "github.com/clinicore/ledger/internal/observability/metrics"
	"github.com/clinicore/ledger/internal/order"
	orderdomain "github.com/clinicore/ledger/internal/order/domain"
	"github.com/clinicore/ledger/internal/payment"
	paymentdomain "github.com/clinicore/ledger/internal/payment/domain"
	"github.com/clinicore/ledger/internal/pdfgen"
	"github.com/clinicore/ledger/internal/seed"
	"github.com/clinicore/ledger/internal/sequence"
	"github.com/clinicore/ledger/pkg/db"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module assembles the whole HTTP surface: every feature module plus the gin
// engine and its lifecycle.
var Module = fx.Module("http.server",
	config.Module,
	observability.Module,
	clock.Module,
	db.Module,
	migration.Module,
	seed.Module,
	sequence.Module,
	catalog.Module,
	audit.Module,
	invoice.Module,
	payment.Module,
	claim.Module,
	order.Module,
	pdfgen.Module,
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log, obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(log, obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
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

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	genID      *snowflake.Node
	invoiceSvc invoicedomain.Service
	paymentSvc paymentdomain.Service
	claimSvc   claimdomain.Service
	catalogSvc catalogdomain.Service
	orderSvc   orderdomain.Service
	auditSvc   auditdomain.Service
	pdfSvc     pdfgen.Generator
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	GenID      *snowflake.Node
	InvoiceSvc invoicedomain.Service
	PaymentSvc paymentdomain.Service
	ClaimSvc   claimdomain.Service
	CatalogSvc catalogdomain.Service
	OrderSvc   orderdomain.Service
	AuditSvc   auditdomain.Service
	PDFSvc     pdfgen.Generator
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("server"),
		genID:      p.GenID,
		invoiceSvc: p.InvoiceSvc,
		paymentSvc: p.PaymentSvc,
		claimSvc:   p.ClaimSvc,
		catalogSvc: p.CatalogSvc,
		orderSvc:   p.OrderSvc,
		auditSvc:   p.AuditSvc,
		pdfSvc:     p.PDFSvc,
	}

	svc.registerAPIRoutes()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1", s.AuthRequired())

	v1.POST("/invoices", s.CreateInvoice)
	v1.GET("/invoices", s.ListInvoices)
	v1.GET("/invoices/:id", s.GetInvoiceByID)
	v1.PATCH("/invoices/:id", s.UpdateInvoice)
	v1.GET("/invoices/:id/pdf", s.InvoicePDF)
	v1.POST("/invoices/:id/payments", s.RecordPayment)

	v1.GET("/payments", s.ListPayments)
	v1.GET("/payments/:id", s.GetPaymentByID)

	v1.POST("/claims", s.SubmitClaim)
	v1.GET("/claims", s.ListClaims)
	v1.GET("/claims/:id", s.GetClaimByID)
	v1.POST("/claims/:id/adjudicate", s.AdjudicateClaim)

	v1.GET("/catalog/procedure-codes", s.SearchProcedureCodes)
	v1.GET("/catalog/diagnosis-codes", s.SearchDiagnosisCodes)

	v1.POST("/lab-orders", s.CreateLabOrder)
	v1.GET("/lab-orders", s.ListLabOrders)
	v1.PATCH("/lab-orders/:id/status", s.UpdateLabOrderStatus)
	v1.POST("/imaging-orders", s.CreateImagingOrder)
	v1.GET("/imaging-orders", s.ListImagingOrders)
	v1.PATCH("/imaging-orders/:id/status", s.UpdateImagingOrderStatus)

	v1.GET("/reports/ar-aging", s.ARAgingSummary)
	v1.GET("/audit-logs", s.ListAuditLogs)
}
