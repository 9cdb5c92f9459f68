package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/account"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/biztime"
	apperrors "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/errors"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/utils/jsonutil"
)

const (
	maxMergeAttempts = 3
	mergeBackoffStep = 50 * time.Millisecond
)

// PatchFunc computes the patch to merge from the current document. It is
// re-invoked on every retry attempt so derived values (usage counters)
// are always computed against fresh data.
type PatchFunc func(current map[string]any) (map[string]any, error)

// MergeProfileUseCase applies partial updates to a user profile document
// with optimistic concurrency: read, deep-merge, conditional write,
// bounded retry with backoff. Every profile mutation in the system goes
// through here.
type MergeProfileUseCase struct {
	repo   account.Repository
	logger logger.Interface
	now    func() time.Time
	sleep  func(time.Duration)
}

// NewMergeProfileUseCase creates the profile synchronizer.
func NewMergeProfileUseCase(repo account.Repository, log logger.Interface) *MergeProfileUseCase {
	return &MergeProfileUseCase{
		repo:   repo,
		logger: log.Named("merge-profile"),
		now:    biztime.NowUTC,
		sleep:  time.Sleep,
	}
}

// Execute merges a typed patch into the uid's profile document.
func (uc *MergeProfileUseCase) Execute(ctx context.Context, uid string, patch account.Patch) (*account.Document, error) {
	return uc.ExecuteFunc(ctx, uid, func(map[string]any) (map[string]any, error) {
		return patch.PatchDoc(uc.now()), nil
	})
}

// ExecuteFunc merges a recomputed patch into the uid's profile document.
func (uc *MergeProfileUseCase) ExecuteFunc(ctx context.Context, uid string, compute PatchFunc) (*account.Document, error) {
	if uid == "" {
		return nil, apperrors.NewValidationError("uid is required")
	}

	for attempt := 1; attempt <= maxMergeAttempts; attempt++ {
		stored, err := uc.repo.Get(ctx, uid)
		if err != nil {
			return nil, err
		}

		current := map[string]any{}
		if stored.Exists {
			if err := json.Unmarshal(stored.Body, &current); err != nil {
				return nil, fmt.Errorf("malformed profile document for %s: %w", uid, err)
			}
		}

		patch, err := compute(current)
		if err != nil {
			return nil, err
		}

		merged := jsonutil.DeepMerge(current, patch)
		merged["uid"] = uid
		merged["docVersion"] = stored.Version + 1
		merged["updatedAt"] = uc.now().Format(time.RFC3339Nano)
		enforceStickyTrial(current, merged)

		body, err := json.Marshal(merged)
		if err != nil {
			return nil, fmt.Errorf("failed to encode profile document: %w", err)
		}

		err = uc.repo.CompareAndPut(ctx, uid, body, stored.Version, stored.Exists)
		if err == nil {
			return account.FromJSON(body)
		}
		if !errors.Is(err, account.ErrVersionMismatch) {
			return nil, err
		}

		uc.logger.Debugw("profile merge lost the race, retrying",
			"uid", uid, "attempt", attempt, "expected_version", stored.Version)
		if attempt < maxMergeAttempts {
			uc.sleep(mergeBackoffStep * time.Duration(attempt))
		}
	}

	// No write was lost; the caller lost the race repeatedly and must
	// resubmit with fresh data.
	uc.logger.Warnw("profile merge exhausted retries", "uid", uid)
	return nil, apperrors.NewConflictError("profile update conflict",
		fmt.Sprintf("lost %d consecutive merge races for uid %s", maxMergeAttempts, uid))
}

// enforceStickyTrial keeps trial.used sticky: once a profile records a
// used trial, no later patch may reset it.
func enforceStickyTrial(current, merged map[string]any) {
	if !trialUsed(current) {
		return
	}
	trial, ok := merged["trial"].(map[string]any)
	if !ok {
		trial = map[string]any{}
		merged["trial"] = trial
	}
	trial["used"] = true
}

func trialUsed(doc map[string]any) bool {
	trial, ok := doc["trial"].(map[string]any)
	if !ok {
		return false
	}
	used, ok := trial["used"].(bool)
	return ok && used
}
