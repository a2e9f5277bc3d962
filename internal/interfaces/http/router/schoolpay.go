package router

import (
	"github.com/gin-gonic/gin"
	"github.com/schoolerp/backend/internal/interfaces/http/handler"
	"github.com/schoolerp/backend/internal/interfaces/http/middleware"
)

// DefaultWebhookPath is where SchoolPay posts payment notifications
const DefaultWebhookPath = "/api/v1/schoolpay/webhook"

// SchoolPayHandlers are the handlers behind the SchoolPay HTTP surface
type SchoolPayHandlers struct {
	Webhook      *handler.SchoolPayWebhookHandler
	Sync         *handler.SchoolPaySyncHandler
	Transactions *handler.SchoolPayTransactionHandler
	Settings     *handler.SchoolPaySettingsHandler
	Health       *handler.HealthHandler
}

// MountConfig controls the routes mounted outside the authenticated API group
type MountConfig struct {
	APIVersion string
	// WebhookPath defaults to DefaultWebhookPath
	WebhookPath    string
	WebhookLimiter *middleware.RateLimiter
	// Auth guards every /schoolpay route except the webhook
	Auth    gin.HandlerFunc
	Swagger middleware.SwaggerConfig
	// SwaggerHandler serves the docs UI; nil leaves /swagger unmounted
	SwaggerHandler gin.HandlerFunc
}

// SchoolPayRoutes declares the authenticated SchoolPay API
func SchoolPayRoutes(h SchoolPayHandlers, auth ...gin.HandlerFunc) *DomainGroup {
	group := NewDomainGroup("schoolpay", "/schoolpay").Use(auth...)
	group.Use(middleware.TracingAttributeInjector())

	group.POST("/sync", h.Sync.Sync)
	group.GET("/sync/history", h.Sync.History)
	group.GET("/settings", h.Settings.Get)
	group.PUT("/settings", h.Settings.Update)

	transactions := group.Group("transactions", "/transactions")
	transactions.GET("", h.Transactions.List)
	transactions.GET("/:id", h.Transactions.Get)
	transactions.POST("/:id/reconcile", h.Transactions.Reconcile)

	return group
}

// Mount registers the whole SchoolPay HTTP surface on engine. The webhook is
// mounted directly on the engine so group auth never applies to it.
func Mount(engine *gin.Engine, cfg MountConfig, h SchoolPayHandlers) *Router {
	webhookPath := cfg.WebhookPath
	if webhookPath == "" {
		webhookPath = DefaultWebhookPath
	}

	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
		engine.GET("/api/v1/health", h.Health.Health)
	}
	engine.POST(webhookPath, middleware.RateLimit(cfg.WebhookLimiter), h.Webhook.Receive)

	if cfg.SwaggerHandler != nil {
		engine.GET("/swagger/*any", middleware.SwaggerProtection(cfg.Swagger, cfg.Auth), cfg.SwaggerHandler)
	}

	var opts []RouterOption
	if cfg.APIVersion != "" {
		opts = append(opts, WithAPIVersion(cfg.APIVersion))
	}
	var auth []gin.HandlerFunc
	if cfg.Auth != nil {
		auth = append(auth, cfg.Auth)
	}

	r := NewRouter(engine, opts...)
	r.Register(SchoolPayRoutes(h, auth...))
	r.Setup()
	return r
}
