package app

import (
	"net/http"

	"github.com/ramtunguturi36/hair/internal/auth"
	"github.com/ramtunguturi36/hair/internal/config"
	"github.com/ramtunguturi36/hair/internal/handlers"
	"github.com/ramtunguturi36/hair/internal/metrics"
	"github.com/ramtunguturi36/hair/internal/middleware"
	"github.com/ramtunguturi36/hair/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/swaggo/swag"
)

type routeDeps struct {
	log      logrus.FieldLogger
	verifier *auth.Verifier
	metrics  *metrics.Metrics
	limiter  *middleware.RateLimiter
	ledgers  *service.LedgerRegistry
	history  *service.HistoryService
	analyses *service.AnalysisService
	payments *service.PaymentService
}

// Setup registers all routes on the given engine.
func Setup(r *gin.Engine, cfg config.Config, deps routeDeps) {
	r.GET("/", rootHandler(cfg))
	r.GET("/health", healthHandler(cfg))
	r.GET("/version", versionHandler(cfg))
	r.GET("/metrics", gin.WrapH(deps.metrics.Handler()))
	r.GET("/swagger-doc.json", swaggerDocHandler())
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(http.StatusFound, "/swagger/index.html") })
	r.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("/swagger-doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
		ginSwagger.PersistAuthorization(true),
	))

	api := r.Group("/api/v1")

	paymentHandler := handlers.NewPaymentHandler(deps.payments, deps.ledgers)
	api.GET("/plans", paymentHandler.Plans)
	api.POST("/webhooks/stripe", paymentHandler.Webhook)

	protected := api.Group("", auth.RequireSession(deps.verifier, deps.log))

	creditsHandler := handlers.NewCreditsHandler(deps.ledgers, deps.analyses.Cost())
	registerCreditRoutes(protected, creditsHandler)
	registerPaymentRoutes(protected, paymentHandler)

	analysisHandler := handlers.NewAnalysisHandler(deps.analyses, deps.history, deps.ledgers, cfg.Upload.MaxImageBytes)
	limit := deps.limiter.Handler(auth.AccountIDFromContext)
	registerAnalysisRoutes(protected, analysisHandler, limit)
}

func rootHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "Hair Analysis API",
			"version": cfg.App.Version,
			"env":     cfg.App.Env,
			"docs":    "/swagger/index.html",
			"spec":    "/swagger-doc.json",
			"health":  "/health",
			"metrics": "/metrics",
			"api":     "/api/v1",
		})
	}
}

func healthHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "env": cfg.App.Env})
	}
}

func versionHandler(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": cfg.App.Version})
	}
}

func swaggerDocHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := swag.ReadDoc("swagger")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(doc))
	}
}

func registerCreditRoutes(api *gin.RouterGroup, h *handlers.CreditsHandler) {
	api.GET("/credits", h.Get)
	api.DELETE("/session", h.EndSession)
}

func registerPaymentRoutes(api *gin.RouterGroup, h *handlers.PaymentHandler) {
	api.POST("/payments/checkout", h.Checkout)
	api.POST("/payments/confirm", h.Confirm)
	api.GET("/payments", h.List)
}

func registerAnalysisRoutes(api *gin.RouterGroup, h *handlers.AnalysisHandler, limit gin.HandlerFunc) {
	api.POST("/analyses", limit, h.Analyze)
	api.GET("/history", h.History)
	api.POST("/history", h.RecordHistory)
	api.GET("/routine", h.Routine)
}
