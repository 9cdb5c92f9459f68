package usecases

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountusecases "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/application/account/usecases"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/account"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/billing"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/docstore"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/repository"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

func quietLogger() logger.Interface {
	return logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeProvider is an in-memory billing.Provider with per-call error
// injection and a record of metadata relabels.
type fakeProvider struct {
	mu               sync.Mutex
	subscriptions    map[string]*billing.Subscription
	customersByEmail map[string][]billing.Customer
	subsByCustomer   map[string][]billing.Subscription
	metadataUpdates  map[string]map[string]string

	getSubscriptionErr  error
	listCustomersErr    error
	listSubsErrByCustomer map[string]error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		subscriptions:         map[string]*billing.Subscription{},
		customersByEmail:      map[string][]billing.Customer{},
		subsByCustomer:        map[string][]billing.Subscription{},
		metadataUpdates:       map[string]map[string]string{},
		listSubsErrByCustomer: map[string]error{},
	}
}

func (p *fakeProvider) GetCustomer(ctx context.Context, customerID string) (*billing.Customer, error) {
	return &billing.Customer{ID: customerID}, nil
}

func (p *fakeProvider) ListCustomersByEmail(ctx context.Context, email string) ([]billing.Customer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listCustomersErr != nil {
		return nil, p.listCustomersErr
	}
	return p.customersByEmail[email], nil
}

func (p *fakeProvider) UpdateCustomerMetadata(ctx context.Context, customerID string, metadata map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metadataUpdates[customerID] = metadata
	return nil
}

func (p *fakeProvider) GetSubscription(ctx context.Context, subscriptionID string) (*billing.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.getSubscriptionErr != nil {
		return nil, p.getSubscriptionErr
	}
	sub, ok := p.subscriptions[subscriptionID]
	if !ok {
		return nil, errors.New("provider returned status 404")
	}
	copied := *sub
	return &copied, nil
}

func (p *fakeProvider) ListSubscriptionsByCustomer(ctx context.Context, customerID string) ([]billing.Subscription, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.listSubsErrByCustomer[customerID]; err != nil {
		return nil, err
	}
	return p.subsByCustomer[customerID], nil
}

type billingFixture struct {
	store    *docstore.MemStore
	repo     account.Repository
	provider *fakeProvider
	webhook  *HandleWebhookEventUseCase
	status   *GetSubscriptionStatusUseCase
	profile  *accountusecases.GetProfileUseCase
}

func newBillingFixture() *billingFixture {
	log := quietLogger()
	store := docstore.NewMemStore()
	repo := repository.NewAccountRepository(store, log)
	merge := accountusecases.NewMergeProfileUseCase(repo, log)
	provider := newFakeProvider()

	return &billingFixture{
		store:    store,
		repo:     repo,
		provider: provider,
		webhook:  NewHandleWebhookEventUseCase(repo, merge, provider, time.Second, log),
		status:   NewGetSubscriptionStatusUseCase(repo, merge, provider, time.Second, log),
		profile:  accountusecases.NewGetProfileUseCase(repo, log),
	}
}

func activeSubscription() *billing.Subscription {
	return &billing.Subscription{
		ID:               "sub_456",
		CustomerID:       "cus_123",
		Status:           billing.StatusActive,
		Plan:             "plan_pro",
		CurrentPeriodEnd: 1_700_600_000,
		Metadata:         map[string]string{"uid": "u1"},
	}
}

func TestWebhookSubscriptionUpdatedAppliesSnapshot(t *testing.T) {
	f := newBillingFixture()
	ctx := context.Background()

	event := &billing.Event{
		ID:           "evt_1",
		Type:         billing.EventSubscriptionUpdated,
		Subscription: activeSubscription(),
	}
	require.NoError(t, f.webhook.Execute(ctx, event))

	doc, err := f.profile.Execute(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, doc.Premium)
	require.NotNil(t, doc.Subscription)
	assert.Equal(t, billing.StatusActive, doc.Subscription.Status)
	assert.Equal(t, "plan_pro", doc.Subscription.Plan)
	assert.Equal(t, "cus_123", doc.StripeCustomerID, "shadow index fields follow the snapshot")
	assert.Equal(t, "sub_456", doc.StripeSubscriptionID)
}

func TestWebhookRedeliveryConverges(t *testing.T) {
	f := newBillingFixture()
	ctx := context.Background()

	event := &billing.Event{
		ID:           "evt_1",
		Type:         billing.EventSubscriptionUpdated,
		Subscription: activeSubscription(),
	}
	require.NoError(t, f.webhook.Execute(ctx, event))
	require.NoError(t, f.webhook.Execute(ctx, event))

	doc, err := f.profile.Execute(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, doc.Premium)
	assert.Equal(t, billing.StatusActive, doc.Subscription.Status)
}

func TestWebhookTrialRecordedOnce(t *testing.T) {
	f := newBillingFixture()
	ctx := context.Background()

	sub := activeSubscription()
	sub.Status = billing.StatusTrialing
	sub.TrialStart = 1_700_000_000
	sub.TrialEnd = 1_700_600_000

	require.NoError(t, f.webhook.Execute(ctx, &billing.Event{
		ID: "evt_1", Type: billing.EventSubscriptionCreated, Subscription: sub,
	}))

	doc, err := f.profile.Execute(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, doc.Trial)
	assert.True(t, doc.Trial.Used)
	assert.Equal(t, int64(1_700_000_000), doc.Trial.StartedAt)

	// A redelivered trial window must not rewrite the recorded one.
	later := *sub
	later.TrialStart = 1_800_000_000
	require.NoError(t, f.webhook.Execute(ctx, &billing.Event{
		ID: "evt_2", Type: billing.EventSubscriptionUpdated, Subscription: &later,
	}))

	doc, err = f.profile.Execute(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, doc.Trial.Used)
	assert.Equal(t, int64(1_700_000_000), doc.Trial.StartedAt, "trial is recorded at most once")
}

func TestWebhookSubscriptionDeleted(t *testing.T) {
	f := newBillingFixture()
	ctx := context.Background()

	require.NoError(t, f.webhook.Execute(ctx, &billing.Event{
		ID: "evt_1", Type: billing.EventSubscriptionUpdated, Subscription: activeSubscription(),
	}))
	require.NoError(t, f.webhook.Execute(ctx, &billing.Event{
		ID: "evt_2", Type: billing.EventSubscriptionDeleted, Subscription: activeSubscription(),
	}))

	doc, err := f.profile.Execute(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, doc.Premium)
	assert.Equal(t, billing.StatusCanceled, doc.Subscription.Status)
}

func TestWebhookCheckoutCompleted(t *testing.T) {
	f := newBillingFixture()
	ctx := context.Background()

	sub := activeSubscription()
	sub.Metadata = nil
	f.provider.subscriptions["sub_456"] = sub

	require.NoError(t, f.webhook.Execute(ctx, &billing.Event{
		ID:   "evt_1",
		Type: billing.EventCheckoutCompleted,
		Checkout: &billing.CheckoutSession{
			CustomerID:        "cus_123",
			SubscriptionID:    "sub_456",
			ClientReferenceID: "u1",
		},
	}))

	doc, err := f.profile.Execute(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, doc.Premium)
	assert.Equal(t, "sub_456", doc.StripeSubscriptionID)

	relabel, ok := f.provider.metadataUpdates["cus_123"]
	require.True(t, ok, "checkout relabels the customer for future events")
	assert.Equal(t, "u1", relabel["uid"])
}

func TestWebhookCheckoutProviderFailureReturnsError(t *testing.T) {
	f := newBillingFixture()
	f.provider.getSubscriptionErr = errors.New("provider down")

	err := f.webhook.Execute(context.Background(), &billing.Event{
		ID:   "evt_1",
		Type: billing.EventCheckoutCompleted,
		Checkout: &billing.CheckoutSession{
			CustomerID:        "cus_123",
			SubscriptionID:    "sub_456",
			ClientReferenceID: "u1",
		},
	})
	require.Error(t, err, "fetch failures must surface so the provider redelivers")
	assert.Equal(t, 0, f.store.Len(), "nothing is written on a failed checkout")
}

func TestWebhookUnresolvableUIDAcknowledged(t *testing.T) {
	f := newBillingFixture()

	sub := activeSubscription()
	sub.Metadata = nil

	err := f.webhook.Execute(context.Background(), &billing.Event{
		ID: "evt_1", Type: billing.EventSubscriptionUpdated, Subscription: sub,
	})
	assert.NoError(t, err, "events nobody owns are acknowledged, not retried forever")
	assert.Equal(t, 0, f.store.Len())
}

func TestWebhookResolvesUIDByCustomerIndex(t *testing.T) {
	f := newBillingFixture()
	ctx := context.Background()

	require.NoError(t, f.repo.CompareAndPut(ctx, "u1",
		[]byte(`{"uid":"u1","docVersion":1,"stripeCustomerId":"cus_123"}`), 0, false))

	sub := activeSubscription()
	sub.Metadata = nil

	require.NoError(t, f.webhook.Execute(ctx, &billing.Event{
		ID: "evt_1", Type: billing.EventSubscriptionUpdated, Subscription: sub,
	}))

	doc, err := f.profile.Execute(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, doc.Premium)
	assert.Equal(t, "sub_456", doc.StripeSubscriptionID)
}

func TestWebhookIgnoresUnknownEventType(t *testing.T) {
	f := newBillingFixture()

	err := f.webhook.Execute(context.Background(), &billing.Event{ID: "evt_1", Type: "invoice.paid"})
	assert.NoError(t, err)
	assert.Equal(t, 0, f.store.Len())
}
