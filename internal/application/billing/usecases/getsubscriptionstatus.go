package usecases

import (
	"context"
	"time"

	accountusecases "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/application/account/usecases"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/account"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/billing"
	apperrors "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/errors"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

const defaultProviderTimeout = 10 * time.Second

// GetSubscriptionStatusCommand identifies the caller whose subscription
// state is requested. Email is only used for recovery when it has been
// verified by the identity provider.
type GetSubscriptionStatusCommand struct {
	UID           string
	Email         string
	EmailVerified bool
}

// GetSubscriptionStatusUseCase reconciles the cached billing snapshot
// with the provider. Once a subscription is linked the provider is the
// source of truth; before that a best-effort recovery by verified email
// can heal missing linkage. Provider failures never fail the read, the
// cached snapshot is returned instead.
type GetSubscriptionStatusUseCase struct {
	repo            account.Repository
	merge           *accountusecases.MergeProfileUseCase
	provider        billing.Provider
	logger          logger.Interface
	providerTimeout time.Duration
}

func NewGetSubscriptionStatusUseCase(
	repo account.Repository,
	merge *accountusecases.MergeProfileUseCase,
	provider billing.Provider,
	providerTimeout time.Duration,
	log logger.Interface,
) *GetSubscriptionStatusUseCase {
	if providerTimeout <= 0 {
		providerTimeout = defaultProviderTimeout
	}
	return &GetSubscriptionStatusUseCase{
		repo:            repo,
		merge:           merge,
		provider:        provider,
		logger:          log.Named("subscription-status"),
		providerTimeout: providerTimeout,
	}
}

func (uc *GetSubscriptionStatusUseCase) Execute(ctx context.Context, cmd GetSubscriptionStatusCommand) (*billing.Snapshot, error) {
	if cmd.UID == "" {
		return nil, apperrors.NewValidationError("uid is required")
	}

	doc, err := uc.loadDocument(ctx, cmd.UID)
	if err != nil {
		return nil, err
	}
	cached := cachedSnapshot(doc)

	if doc.StripeSubscriptionID != "" {
		return uc.refreshLinked(ctx, cmd.UID, doc.StripeSubscriptionID, cached), nil
	}

	if cmd.Email != "" && cmd.EmailVerified {
		if snap := uc.recoverByEmail(ctx, cmd.UID, cmd.Email); snap != nil {
			return snap, nil
		}
	}

	return cached, nil
}

// refreshLinked fetches fresh provider state for an already linked
// subscription and persists it. Provider errors degrade to the cached
// snapshot.
func (uc *GetSubscriptionStatusUseCase) refreshLinked(ctx context.Context, uid, subscriptionID string, cached *billing.Snapshot) *billing.Snapshot {
	pctx, cancel := context.WithTimeout(ctx, uc.providerTimeout)
	defer cancel()

	sub, err := uc.provider.GetSubscription(pctx, subscriptionID)
	if err != nil {
		uc.logger.Warnw("degrading to cached subscription snapshot",
			"uid", uid, "subscription_id", subscriptionID, "error", err)
		return cached
	}

	snap := billing.SnapshotOf(sub)
	if _, err := uc.merge.Execute(ctx, uid, subscriptionPatchOf(snap)); err != nil {
		uc.logger.Warnw("failed to persist refreshed subscription snapshot",
			"uid", uid, "error", err)
	}
	return &snap
}

// recoverByEmail heals missing linkage for a caller whose profile has no
// subscription id yet. Returns nil when nothing recoverable was found or
// the provider failed; the caller then falls back to the cached state.
func (uc *GetSubscriptionStatusUseCase) recoverByEmail(ctx context.Context, uid, email string) *billing.Snapshot {
	pctx, cancel := context.WithTimeout(ctx, uc.providerTimeout)
	defer cancel()

	customers, err := uc.provider.ListCustomersByEmail(pctx, email)
	if err != nil {
		uc.logger.Warnw("subscription recovery lookup failed", "uid", uid, "error", err)
		return nil
	}

	var candidates []billing.Subscription
	for _, customer := range customers {
		subs, err := uc.provider.ListSubscriptionsByCustomer(pctx, customer.ID)
		if err != nil {
			uc.logger.Warnw("subscription recovery listing failed",
				"uid", uid, "customer_id", customer.ID, "error", err)
			continue
		}
		candidates = append(candidates, subs...)
	}

	best := billing.PickBest(candidates)
	if best == nil {
		return nil
	}

	// Relabel the provider customer so future webhook events resolve
	// directly by metadata.
	if err := uc.provider.UpdateCustomerMetadata(pctx, best.CustomerID, map[string]string{
		billing.MetadataUIDKey: uid,
	}); err != nil {
		uc.logger.Warnw("failed to relabel recovered billing customer",
			"uid", uid, "customer_id", best.CustomerID, "error", err)
	}

	snap := billing.SnapshotOf(best)
	if _, err := uc.merge.Execute(ctx, uid, subscriptionPatchOf(snap)); err != nil {
		uc.logger.Warnw("failed to persist recovered subscription snapshot",
			"uid", uid, "error", err)
	}
	uc.logger.Infow("recovered subscription linkage by email",
		"uid", uid, "customer_id", best.CustomerID, "subscription_id", best.ID, "status", best.Status)
	return &snap
}

func (uc *GetSubscriptionStatusUseCase) loadDocument(ctx context.Context, uid string) (*account.Document, error) {
	stored, err := uc.repo.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !stored.Exists {
		return &account.Document{UID: uid}, nil
	}
	return account.FromJSON(stored.Body)
}

func cachedSnapshot(doc *account.Document) *billing.Snapshot {
	snap := &billing.Snapshot{Premium: doc.Premium}
	if doc.Subscription != nil {
		snap.Status = doc.Subscription.Status
		snap.Plan = doc.Subscription.Plan
		snap.CurrentPeriodEnd = doc.Subscription.CurrentPeriodEnd
		snap.CustomerID = doc.Subscription.StripeCustomerID
		snap.SubscriptionID = doc.Subscription.StripeSubscriptionID
	}
	return snap
}

func subscriptionPatchOf(snap billing.Snapshot) account.SubscriptionPatch {
	return account.SubscriptionPatch{
		Snapshot: account.SubscriptionState{
			Status:               snap.Status,
			Plan:                 snap.Plan,
			CurrentPeriodEnd:     snap.CurrentPeriodEnd,
			StripeCustomerID:     snap.CustomerID,
			StripeSubscriptionID: snap.SubscriptionID,
		},
		Premium: snap.Premium,
	}
}
