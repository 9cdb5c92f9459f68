package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/account"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/infrastructure/docstore"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

// AccountRepositoryImpl persists user profile documents through the
// document store adapter.
type AccountRepositoryImpl struct {
	store  docstore.Store
	logger logger.Interface
}

// NewAccountRepository creates an account repository.
func NewAccountRepository(store docstore.Store, log logger.Interface) account.Repository {
	return &AccountRepositoryImpl{
		store:  store,
		logger: log.Named("account-repository"),
	}
}

// versionProbe extracts only the version field from a stored body. A nil
// DocVersion marks a pre-existing unversioned document.
type versionProbe struct {
	DocVersion *int64 `json:"docVersion"`
}

func (r *AccountRepositoryImpl) Get(ctx context.Context, uid string) (*account.StoredDocument, error) {
	doc, err := r.store.Get(ctx, docstore.UserKey(uid))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return &account.StoredDocument{Exists: false}, nil
		}
		r.logger.Errorw("failed to read profile", "uid", uid, "error", err)
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	var probe versionProbe
	if err := json.Unmarshal(doc.Body, &probe); err != nil {
		return nil, fmt.Errorf("malformed profile document for %s: %w", uid, err)
	}

	version := int64(0)
	if probe.DocVersion != nil {
		version = *probe.DocVersion
	}
	return &account.StoredDocument{Body: doc.Body, Version: version, Exists: true}, nil
}

func (r *AccountRepositoryImpl) CompareAndPut(ctx context.Context, uid string, body json.RawMessage, expectedVersion int64, exists bool) error {
	key := docstore.UserKey(uid)

	if !exists {
		err := r.store.PutIfAbsent(ctx, key, body)
		if errors.Is(err, docstore.ErrAlreadyExists) {
			return account.ErrVersionMismatch
		}
		if err != nil {
			r.logger.Errorw("failed to insert profile", "uid", uid, "error", err)
			return fmt.Errorf("failed to insert profile: %w", err)
		}
		return nil
	}

	_, err := r.store.UpdateIf(ctx, key,
		func(json.RawMessage) (json.RawMessage, error) { return body, nil },
		func(current json.RawMessage) bool {
			var probe versionProbe
			if err := json.Unmarshal(current, &probe); err != nil {
				return false
			}
			// Tolerate documents that predate versioning.
			return probe.DocVersion == nil || *probe.DocVersion == expectedVersion
		})
	if err != nil {
		if errors.Is(err, docstore.ErrPredicateFailed) || errors.Is(err, docstore.ErrNotFound) {
			return account.ErrVersionMismatch
		}
		r.logger.Errorw("failed to update profile", "uid", uid, "error", err)
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

func (r *AccountRepositoryImpl) FindUIDByStripeCustomerID(ctx context.Context, customerID string) (string, error) {
	return r.findUIDByField(ctx, "stripeCustomerId", customerID)
}

func (r *AccountRepositoryImpl) FindUIDByStripeSubscriptionID(ctx context.Context, subscriptionID string) (string, error) {
	return r.findUIDByField(ctx, "stripeSubscriptionId", subscriptionID)
}

func (r *AccountRepositoryImpl) findUIDByField(ctx context.Context, field, value string) (string, error) {
	if value == "" {
		return "", account.ErrNotFound
	}
	doc, err := r.store.FindByField(ctx, field, value)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return "", account.ErrNotFound
		}
		r.logger.Errorw("profile index lookup failed", "field", field, "error", err)
		return "", fmt.Errorf("profile index lookup failed: %w", err)
	}

	var probe struct {
		UID string `json:"uid"`
	}
	if err := json.Unmarshal(doc.Body, &probe); err != nil || probe.UID == "" {
		return "", fmt.Errorf("malformed profile document at key %s", doc.Key)
	}
	return probe.UID, nil
}

func (r *AccountRepositoryImpl) Delete(ctx context.Context, uid string) error {
	if err := r.store.Delete(ctx, docstore.UserKey(uid)); err != nil {
		r.logger.Errorw("failed to delete profile", "uid", uid, "error", err)
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	return nil
}
