package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	accountusecases "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/application/account/usecases"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/account"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/billing"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/biztime"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/utils/jsonutil"
)

// HandleWebhookEventUseCase applies verified billing provider events to
// user profiles. Handlers are idempotent: re-delivered events converge
// on the same profile state, and trial usage is recorded at most once.
type HandleWebhookEventUseCase struct {
	repo            account.Repository
	merge           *accountusecases.MergeProfileUseCase
	provider        billing.Provider
	logger          logger.Interface
	providerTimeout time.Duration
	now             func() time.Time
}

func NewHandleWebhookEventUseCase(
	repo account.Repository,
	merge *accountusecases.MergeProfileUseCase,
	provider billing.Provider,
	providerTimeout time.Duration,
	log logger.Interface,
) *HandleWebhookEventUseCase {
	if providerTimeout <= 0 {
		providerTimeout = defaultProviderTimeout
	}
	return &HandleWebhookEventUseCase{
		repo:            repo,
		merge:           merge,
		provider:        provider,
		logger:          log.Named("billing-webhook"),
		providerTimeout: providerTimeout,
		now:             biztime.NowUTC,
	}
}

// Execute routes one verified event. Events this core does not consume,
// and events whose owning uid cannot be resolved, are acknowledged
// without effect so the provider does not redeliver them forever.
func (uc *HandleWebhookEventUseCase) Execute(ctx context.Context, event *billing.Event) error {
	switch event.Type {
	case billing.EventCheckoutCompleted:
		return uc.handleCheckoutCompleted(ctx, event)
	case billing.EventSubscriptionCreated, billing.EventSubscriptionUpdated:
		return uc.handleSubscriptionChanged(ctx, event)
	case billing.EventSubscriptionDeleted:
		return uc.handleSubscriptionDeleted(ctx, event)
	default:
		uc.logger.Debugw("ignoring unhandled webhook event", "event_id", event.ID, "type", event.Type)
		return nil
	}
}

func (uc *HandleWebhookEventUseCase) handleCheckoutCompleted(ctx context.Context, event *billing.Event) error {
	checkout := event.Checkout
	if checkout == nil {
		uc.logger.Warnw("checkout event without session payload", "event_id", event.ID)
		return nil
	}

	uid := uc.resolveUID(ctx, checkout.Metadata, checkout.ClientReferenceID, checkout.CustomerID, checkout.SubscriptionID)
	if uid == "" {
		uc.logger.Warnw("acknowledging checkout event with unresolvable uid",
			"event_id", event.ID, "customer_id", checkout.CustomerID)
		return nil
	}

	if checkout.SubscriptionID == "" {
		uc.logger.Infow("checkout completed without subscription", "event_id", event.ID, "uid", uid)
		return nil
	}

	pctx, cancel := context.WithTimeout(ctx, uc.providerTimeout)
	defer cancel()
	sub, err := uc.provider.GetSubscription(pctx, checkout.SubscriptionID)
	if err != nil {
		// Returning the error makes the provider redeliver once its
		// API is reachable again.
		return fmt.Errorf("failed to fetch checkout subscription %s: %w", checkout.SubscriptionID, err)
	}

	if err := uc.relabelCustomer(ctx, checkout.CustomerID, uid); err != nil {
		uc.logger.Warnw("failed to relabel billing customer after checkout",
			"event_id", event.ID, "uid", uid, "error", err)
	}

	return uc.persistSubscription(ctx, uid, sub, event.ID)
}

func (uc *HandleWebhookEventUseCase) handleSubscriptionChanged(ctx context.Context, event *billing.Event) error {
	sub := event.Subscription
	if sub == nil {
		uc.logger.Warnw("subscription event without subscription payload", "event_id", event.ID)
		return nil
	}

	uid := uc.resolveUID(ctx, sub.Metadata, "", sub.CustomerID, sub.ID)
	if uid == "" {
		uc.logger.Warnw("acknowledging subscription event with unresolvable uid",
			"event_id", event.ID, "subscription_id", sub.ID, "customer_id", sub.CustomerID)
		return nil
	}

	return uc.persistSubscription(ctx, uid, sub, event.ID)
}

func (uc *HandleWebhookEventUseCase) handleSubscriptionDeleted(ctx context.Context, event *billing.Event) error {
	sub := event.Subscription
	if sub == nil {
		uc.logger.Warnw("subscription event without subscription payload", "event_id", event.ID)
		return nil
	}

	uid := uc.resolveUID(ctx, sub.Metadata, "", sub.CustomerID, sub.ID)
	if uid == "" {
		uc.logger.Warnw("acknowledging subscription deletion with unresolvable uid",
			"event_id", event.ID, "subscription_id", sub.ID)
		return nil
	}

	canceled := *sub
	canceled.Status = billing.StatusCanceled
	return uc.persistSubscription(ctx, uid, &canceled, event.ID)
}

// persistSubscription merges the snapshot, and the trial marker when the
// subscription carries a trial window the profile has not recorded yet,
// in a single conditional write.
func (uc *HandleWebhookEventUseCase) persistSubscription(ctx context.Context, uid string, sub *billing.Subscription, eventID string) error {
	snap := billing.SnapshotOf(sub)
	subPatch := subscriptionPatchOf(snap)

	_, err := uc.merge.ExecuteFunc(ctx, uid, func(current map[string]any) (map[string]any, error) {
		patch := subPatch.PatchDoc(uc.now())
		if sub.TrialStart > 0 && !trialAlreadyUsed(current) {
			trialPatch := account.TrialPatch{
				StartedAt: sub.TrialStart,
				EndsAt:    sub.TrialEnd,
				Source:    "subscription",
			}
			patch = jsonutil.DeepMerge(patch, trialPatch.PatchDoc(uc.now()))
		}
		return patch, nil
	})
	if err != nil {
		return fmt.Errorf("failed to persist subscription snapshot for %s: %w", uid, err)
	}

	uc.logger.Infow("applied subscription snapshot",
		"event_id", eventID, "uid", uid, "subscription_id", sub.ID, "status", snap.Status, "premium", snap.Premium)
	return nil
}

// resolveUID finds the profile owning a provider object: explicit
// metadata uid first, then the checkout client reference, then reverse
// lookups against the profile index.
func (uc *HandleWebhookEventUseCase) resolveUID(ctx context.Context, metadata map[string]string, clientReference, customerID, subscriptionID string) string {
	if uid := metadata[billing.MetadataUIDKey]; uid != "" {
		return uid
	}
	if clientReference != "" {
		return clientReference
	}
	if customerID != "" {
		uid, err := uc.repo.FindUIDByStripeCustomerID(ctx, customerID)
		if err == nil {
			return uid
		}
		if !errors.Is(err, account.ErrNotFound) {
			uc.logger.Warnw("customer reverse lookup failed", "customer_id", customerID, "error", err)
		}
	}
	if subscriptionID != "" {
		uid, err := uc.repo.FindUIDByStripeSubscriptionID(ctx, subscriptionID)
		if err == nil {
			return uid
		}
		if !errors.Is(err, account.ErrNotFound) {
			uc.logger.Warnw("subscription reverse lookup failed", "subscription_id", subscriptionID, "error", err)
		}
	}
	return ""
}

func (uc *HandleWebhookEventUseCase) relabelCustomer(ctx context.Context, customerID, uid string) error {
	if customerID == "" {
		return nil
	}
	pctx, cancel := context.WithTimeout(ctx, uc.providerTimeout)
	defer cancel()
	return uc.provider.UpdateCustomerMetadata(pctx, customerID, map[string]string{
		billing.MetadataUIDKey: uid,
	})
}

func trialAlreadyUsed(doc map[string]any) bool {
	trial, ok := doc["trial"].(map[string]any)
	if !ok {
		return false
	}
	used, ok := trial["used"].(bool)
	return ok && used
}
