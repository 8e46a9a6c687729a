package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/mamadbah2/cycleshop/internal/auth"
	"github.com/mamadbah2/cycleshop/internal/server/handlers"
	"github.com/mamadbah2/cycleshop/internal/server/middleware"
)

const serviceName = "cycleshop"

// Handlers groups every HTTP handler. Webhook is nil when WhatsApp is disabled.
type Handlers struct {
	Invoices  *handlers.InvoiceHandler
	Ledger    *handlers.LedgerHandler
	Inventory *handlers.InventoryHandler
	Parties   *handlers.PartyHandler
	Reports   *handlers.ReportHandler
	Webhook   *handlers.WebhookHandler
}

// Options configures cross-cutting middleware.
type Options struct {
	Verifier         middleware.TokenVerifier
	CORSAllowOrigins []string
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, opts Options, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middleware.Logger(logger))
	r.Use(cors.New(corsConfig(opts.CORSAllowOrigins)))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if h.Webhook != nil {
		r.GET("/webhook", h.Webhook.Verify)
		r.POST("/webhook", h.Webhook.Receive)
	}

	managers := middleware.Authorize(auth.RoleManager, auth.RoleAdmin)
	admins := middleware.Authorize(auth.RoleAdmin)

	api := r.Group("/api", middleware.Authenticate(opts.Verifier))
	{
		api.GET("/parties", h.Parties.List)
		api.GET("/parties/:id", h.Parties.Get)
		api.POST("/parties", managers, h.Parties.Create)

		api.GET("/inventory", h.Inventory.List)
		api.GET("/inventory/:id", h.Inventory.Get)
		api.GET("/inventory/:id/history", h.Inventory.History)
		api.POST("/inventory", managers, h.Inventory.Create)
		api.POST("/inventory/adjust", managers, h.Inventory.Adjust)

		api.GET("/invoices", h.Invoices.List)
		api.GET("/invoices/:id", h.Invoices.Get)
		api.POST("/invoices", h.Invoices.Create)
		api.PUT("/invoices/:id", managers, h.Invoices.Update)
		api.DELETE("/invoices/:id", managers, h.Invoices.Delete)

		api.GET("/ledger", h.Ledger.List)
		api.GET("/ledger/summary", h.Ledger.Summary)
		api.GET("/ledger/summary/export", h.Ledger.ExportSummary)
		api.GET("/ledger/:id", h.Ledger.Get)
		api.POST("/ledger", managers, h.Ledger.Create)
		api.POST("/ledger/:id/settlement", managers, h.Ledger.Settle)

		api.POST("/reports/daily", admins, h.Reports.Daily)
		api.GET("/audit", admins, h.Reports.Audit)

		if h.Webhook != nil {
			api.POST("/send-message", admins, h.Webhook.SendMessage)
		}
	}

	logger.Info("router initialized")
	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "Content-Disposition"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: true,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
