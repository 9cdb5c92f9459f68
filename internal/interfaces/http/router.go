// Package http assembles the gin engine: middleware, handlers, routes.
package http

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	accountusecases "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/application/account/usecases"
	billingusecases "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/application/billing/usecases"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/application/device/serialalloc"
	deviceusecases "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/application/device/usecases"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/auth"
	billinginfra "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/billing"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/config"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/docstore"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/ratelimit"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/repository"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/interfaces/http/handlers"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/interfaces/http/middleware"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/interfaces/http/routes"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

// Router wires the full request path from configuration and shared
// infrastructure handles.
type Router struct {
	engine *gin.Engine
	cfg    *config.Config
}

// NewRouter builds the engine and all its dependencies.
func NewRouter(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, log logger.Interface) (*Router, error) {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger(log))
	engine.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	engine.Use(middleware.SecurityHeaders())
	engine.Use(middleware.ErrorHandler())

	store := docstore.NewGormStore(db, log)

	limiter, err := buildLimiter(cfg, store, redisClient, log)
	if err != nil {
		return nil, err
	}

	accountRepo := repository.NewAccountRepository(store, log)
	deviceRepo := repository.NewDeviceRepository(store, log)
	allocator := serialalloc.NewDocstoreAllocator(store, log)

	mergeUC := accountusecases.NewMergeProfileUseCase(accountRepo, log)
	getProfileUC := accountusecases.NewGetProfileUseCase(accountRepo, log)
	usageUC := accountusecases.NewRecordUsageUseCase(mergeUC, log)
	deleteProfileUC := accountusecases.NewDeleteProfileUseCase(accountRepo, log)

	provisionUC := deviceusecases.NewProvisionDeviceUseCase(deviceRepo, allocator, log)
	claimUC := deviceusecases.NewClaimDeviceUseCase(deviceRepo, mergeUC, log)
	unclaimUC := deviceusecases.NewUnclaimDeviceUseCase(deviceRepo, log)
	revokeUC := deviceusecases.NewRevokeDeviceUseCase(deviceRepo, log)
	reactivateUC := deviceusecases.NewReactivateDeviceUseCase(deviceRepo, log)
	getDeviceUC := deviceusecases.NewGetDeviceUseCase(deviceRepo, log)

	providerTimeout := time.Duration(cfg.Billing.RequestTimeout) * time.Second
	provider := billinginfra.NewClient(cfg.Billing.APIKey, providerTimeout, log)
	verifier := billinginfra.NewHMACWebhookVerifier(cfg.Billing.WebhookSecret)
	statusUC := billingusecases.NewGetSubscriptionStatusUseCase(accountRepo, mergeUC, provider, providerTimeout, log)
	webhookUC := billingusecases.NewHandleWebhookEventUseCase(accountRepo, mergeUC, provider, providerTimeout, log)

	authMiddleware := middleware.NewAuthMiddleware(
		auth.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTAudience),
		log,
	)

	deviceHandler := handlers.NewDeviceHandler(provisionUC, claimUC, unclaimUC, revokeUC, reactivateUC, getDeviceUC, log)
	profileHandler := handlers.NewProfileHandler(getProfileUC, mergeUC, usageUC, deleteProfileUC, log)
	billingHandler := handlers.NewBillingHandler(statusUC, webhookUC, verifier, log)
	healthHandler := handlers.NewHealthHandler(db)

	engine.GET("/health", healthHandler.Check)

	routes.SetupDeviceRoutes(engine, &routes.DeviceRouteConfig{
		DeviceHandler:  deviceHandler,
		AuthMiddleware: authMiddleware,
		FactoryToken:   cfg.Provisioning.FactoryToken,
		Limiter:        limiter,
		Logger:         log,
	})
	routes.SetupAccountRoutes(engine, &routes.AccountRouteConfig{
		ProfileHandler: profileHandler,
		AuthMiddleware: authMiddleware,
		Limiter:        limiter,
		Logger:         log,
	})
	routes.SetupBillingRoutes(engine, &routes.BillingRouteConfig{
		BillingHandler: billingHandler,
		AuthMiddleware: authMiddleware,
		Limiter:        limiter,
		Logger:         log,
	})

	return &Router{engine: engine, cfg: cfg}, nil
}

func buildLimiter(cfg *config.Config, store docstore.Store, redisClient *redis.Client, log logger.Interface) (ratelimit.Limiter, error) {
	switch cfg.RateLimit.Backend {
	case "", "docstore":
		return ratelimit.NewDocstoreLimiter(store, cfg.RateLimit.Salt, log), nil
	case "redis":
		if redisClient == nil {
			return nil, fmt.Errorf("ratelimit backend is redis but no redis client is configured")
		}
		return ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit.Salt, log), nil
	default:
		return nil, fmt.Errorf("unknown ratelimit backend %q", cfg.RateLimit.Backend)
	}
}

// Engine exposes the underlying gin engine for serving and tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Run starts the HTTP server on the configured address.
func (r *Router) Run() error {
	addr := fmt.Sprintf("%s:%d", r.cfg.Server.Host, r.cfg.Server.Port)
	return r.engine.Run(addr)
}
