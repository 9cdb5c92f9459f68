package handlers_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	accountusecases "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/application/account/usecases"
	billingusecases "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/application/billing/usecases"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/application/device/serialalloc"
	deviceusecases "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/application/device/usecases"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/billing"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/auth"
	billinginfra "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/billing"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/docstore"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/ratelimit"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/repository"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/interfaces/http/handlers"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/interfaces/http/middleware"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/interfaces/http/routes"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

const (
	testFactoryToken  = "factory-secret"
	testJWTSecret     = "jwt-secret"
	testWebhookSecret = "whsec_test"
)

// stubProvider serves the handler tests that reach the billing
// provider. Lookups miss unless a subscription was seeded.
type stubProvider struct {
	subscriptions map[string]*billing.Subscription
}

func (p *stubProvider) GetCustomer(ctx context.Context, customerID string) (*billing.Customer, error) {
	return &billing.Customer{ID: customerID}, nil
}

func (p *stubProvider) ListCustomersByEmail(ctx context.Context, email string) ([]billing.Customer, error) {
	return nil, nil
}

func (p *stubProvider) UpdateCustomerMetadata(ctx context.Context, customerID string, metadata map[string]string) error {
	return nil
}

func (p *stubProvider) GetSubscription(ctx context.Context, subscriptionID string) (*billing.Subscription, error) {
	if sub, ok := p.subscriptions[subscriptionID]; ok {
		copied := *sub
		return &copied, nil
	}
	return nil, errors.New("provider returned status 404")
}

func (p *stubProvider) ListSubscriptionsByCustomer(ctx context.Context, customerID string) ([]billing.Subscription, error) {
	return nil, nil
}

type testServer struct {
	engine   *gin.Engine
	verifier *auth.JWTVerifier
	webhook  *billinginfra.HMACWebhookVerifier
	provider *stubProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
	store := docstore.NewMemStore()
	limiter := ratelimit.NewDocstoreLimiter(store, "test-salt", log)

	deviceRepo := repository.NewDeviceRepository(store, log)
	accountRepo := repository.NewAccountRepository(store, log)
	alloc := serialalloc.NewDocstoreAllocator(store, log)
	merge := accountusecases.NewMergeProfileUseCase(accountRepo, log)
	provider := &stubProvider{subscriptions: map[string]*billing.Subscription{}}

	deviceHandler := handlers.NewDeviceHandler(
		deviceusecases.NewProvisionDeviceUseCase(deviceRepo, alloc, log),
		deviceusecases.NewClaimDeviceUseCase(deviceRepo, merge, log),
		deviceusecases.NewUnclaimDeviceUseCase(deviceRepo, log),
		deviceusecases.NewRevokeDeviceUseCase(deviceRepo, log),
		deviceusecases.NewReactivateDeviceUseCase(deviceRepo, log),
		deviceusecases.NewGetDeviceUseCase(deviceRepo, log),
		log,
	)
	profileHandler := handlers.NewProfileHandler(
		accountusecases.NewGetProfileUseCase(accountRepo, log),
		merge,
		accountusecases.NewRecordUsageUseCase(merge, log),
		accountusecases.NewDeleteProfileUseCase(accountRepo, log),
		log,
	)
	webhookVerifier := billinginfra.NewHMACWebhookVerifier(testWebhookSecret)
	billingHandler := handlers.NewBillingHandler(
		billingusecases.NewGetSubscriptionStatusUseCase(accountRepo, merge, provider, time.Second, log),
		billingusecases.NewHandleWebhookEventUseCase(accountRepo, merge, provider, time.Second, log),
		webhookVerifier,
		log,
	)

	verifier := auth.NewJWTVerifier(testJWTSecret, "", "")
	authMiddleware := middleware.NewAuthMiddleware(verifier, log)

	engine := gin.New()
	routes.SetupDeviceRoutes(engine, &routes.DeviceRouteConfig{
		DeviceHandler:  deviceHandler,
		AuthMiddleware: authMiddleware,
		FactoryToken:   testFactoryToken,
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

	return &testServer{
		engine:   engine,
		verifier: verifier,
		webhook:  webhookVerifier,
		provider: provider,
	}
}

func (s *testServer) token(t *testing.T, identity auth.Identity) string {
	t.Helper()
	token, err := s.verifier.SignForTest(identity, time.Hour)
	require.NoError(t, err)
	return token
}

type requestOption func(*http.Request)

func withBearer(token string) requestOption {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func withHeader(key, value string) requestOption {
	return func(r *http.Request) {
		r.Header.Set(key, value)
	}
}

func (s *testServer) do(t *testing.T, method, path, body string, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}
