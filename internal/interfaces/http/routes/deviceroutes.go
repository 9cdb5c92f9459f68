package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/ratelimit"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/interfaces/http/handlers"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/interfaces/http/middleware"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

// DeviceRouteConfig holds dependencies for device routes.
type DeviceRouteConfig struct {
	DeviceHandler  *handlers.DeviceHandler
	AuthMiddleware *middleware.AuthMiddleware
	FactoryToken   string
	Limiter        ratelimit.Limiter
	Logger         logger.Interface
}

// SetupDeviceRoutes configures provisioning and lifecycle routes.
func SetupDeviceRoutes(engine *gin.Engine, cfg *DeviceRouteConfig) {
	devices := engine.Group("/api/devices")
	{
		// Factory provisioning is gated by the shared factory secret,
		// not user auth, and rate limited per source IP.
		devices.POST("/provision",
			middleware.FactoryToken(cfg.FactoryToken, cfg.Logger),
			middleware.RateLimit(cfg.Limiter, cfg.Logger, "provision", time.Minute, 60),
			cfg.DeviceHandler.Provision,
		)

		authed := devices.Group("")
		authed.Use(cfg.AuthMiddleware.RequireAuth())
		{
			authed.POST("/claim",
				middleware.RateLimit(cfg.Limiter, cfg.Logger, "claim", time.Minute, 10),
				cfg.DeviceHandler.Claim,
			)
			authed.POST("/:hw_id/unclaim", cfg.DeviceHandler.Unclaim)
			authed.GET("/:hw_id", cfg.DeviceHandler.Get)
		}
	}

	admin := engine.Group("/api/admin/devices")
	admin.Use(cfg.AuthMiddleware.RequireAdmin())
	{
		admin.POST("/:hw_id/revoke", cfg.DeviceHandler.Revoke)
		admin.POST("/:hw_id/reactivate", cfg.DeviceHandler.Reactivate)
	}
}
