package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/ratelimit"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/interfaces/http/handlers"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/interfaces/http/middleware"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

// AccountRouteConfig holds dependencies for profile routes.
type AccountRouteConfig struct {
	ProfileHandler *handlers.ProfileHandler
	AuthMiddleware *middleware.AuthMiddleware
	Limiter        ratelimit.Limiter
	Logger         logger.Interface
}

// SetupAccountRoutes configures the caller's profile routes.
func SetupAccountRoutes(engine *gin.Engine, cfg *AccountRouteConfig) {
	profile := engine.Group("/api/profile")
	profile.Use(cfg.AuthMiddleware.RequireAuth())
	{
		profile.GET("", cfg.ProfileHandler.Get)
		profile.PATCH("",
			middleware.RateLimit(cfg.Limiter, cfg.Logger, "profile_write", time.Minute, 30),
			cfg.ProfileHandler.Patch,
		)
		profile.DELETE("", cfg.ProfileHandler.Delete)
	}

	usage := engine.Group("/api/usage")
	usage.Use(cfg.AuthMiddleware.RequireAuth())
	{
		usage.POST("/:feature",
			middleware.RateLimit(cfg.Limiter, cfg.Logger, "usage", time.Minute, 120),
			cfg.ProfileHandler.RecordUsage,
		)
	}
}
