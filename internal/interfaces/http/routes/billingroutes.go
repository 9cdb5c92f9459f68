package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/ratelimit"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/interfaces/http/handlers"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/interfaces/http/middleware"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

// BillingRouteConfig holds dependencies for subscription routes.
type BillingRouteConfig struct {
	BillingHandler *handlers.BillingHandler
	AuthMiddleware *middleware.AuthMiddleware
	Limiter        ratelimit.Limiter
	Logger         logger.Interface
}

// SetupBillingRoutes configures subscription status and webhook routes.
func SetupBillingRoutes(engine *gin.Engine, cfg *BillingRouteConfig) {
	subscription := engine.Group("/api/subscription")
	subscription.Use(cfg.AuthMiddleware.RequireAuth())
	{
		subscription.GET("/status",
			middleware.RateLimit(cfg.Limiter, cfg.Logger, "subscription_status", time.Minute, 20),
			cfg.BillingHandler.GetStatus,
		)
	}

	// Webhook authenticity comes from the signature, not user auth.
	engine.POST("/api/webhooks/billing", cfg.BillingHandler.Webhook)
}
