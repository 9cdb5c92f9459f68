package usecases

import (
	"context"
	"encoding/json"
	"time"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/account"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/biztime"
	apperrors "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/errors"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

// RecordUsageUseCase bumps a feature's daily and monthly usage counters
// on the profile. Counts are recomputed from the current document inside
// the synchronizer's retry loop, so concurrent callers never clobber
// each other's increments.
type RecordUsageUseCase struct {
	merge  *MergeProfileUseCase
	logger logger.Interface
	now    func() time.Time
}

// NewRecordUsageUseCase creates the usage recorder.
func NewRecordUsageUseCase(merge *MergeProfileUseCase, log logger.Interface) *RecordUsageUseCase {
	return &RecordUsageUseCase{
		merge:  merge,
		logger: log.Named("record-usage"),
		now:    biztime.NowUTC,
	}
}

func (uc *RecordUsageUseCase) Execute(ctx context.Context, uid, feature string) (*account.Document, error) {
	if feature == "" {
		return nil, apperrors.NewValidationError("feature is required")
	}

	now := uc.now()
	dayKey := biztime.DayKey(now)
	monthKey := biztime.MonthKey(now)

	return uc.merge.ExecuteFunc(ctx, uid, func(current map[string]any) (map[string]any, error) {
		patch := account.UsagePatch{
			Feature:    feature,
			DayKey:     dayKey,
			MonthKey:   monthKey,
			DayCount:   usageCount(current, feature, dayKey) + 1,
			MonthCount: usageCount(current, feature, monthKey) + 1,
		}
		return patch.PatchDoc(now), nil
	})
}

func usageCount(doc map[string]any, feature, bucket string) int64 {
	usage, ok := doc["usage"].(map[string]any)
	if !ok {
		return 0
	}
	counters, ok := usage[feature].(map[string]any)
	if !ok {
		return 0
	}
	switch v := counters[bucket].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	default:
		return 0
	}
}
