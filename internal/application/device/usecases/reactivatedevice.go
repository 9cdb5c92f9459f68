package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/device"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/biztime"
	apperrors "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/errors"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

// ReactivateDeviceCommand returns a revoked device to service.
type ReactivateDeviceCommand struct {
	HWID     string
	ActorUID string
	Reason   string
}

// ReactivateDeviceResult carries the closed reactivate outcome.
type ReactivateDeviceResult struct {
	Outcome device.ReactivateOutcome
	Record  *device.Record
}

// ReactivateDeviceUseCase reactivates a device. Prior ownership is not
// restored: the device comes back unclaimed.
type ReactivateDeviceUseCase struct {
	repo   device.Repository
	logger logger.Interface
	now    func() time.Time
}

// NewReactivateDeviceUseCase creates the reactivate use case.
func NewReactivateDeviceUseCase(repo device.Repository, log logger.Interface) *ReactivateDeviceUseCase {
	return &ReactivateDeviceUseCase{
		repo:   repo,
		logger: log.Named("reactivate-device"),
		now:    biztime.NowUTC,
	}
}

func (uc *ReactivateDeviceUseCase) Execute(ctx context.Context, cmd ReactivateDeviceCommand) (*ReactivateDeviceResult, error) {
	hwID, err := device.NormalizeHWID(cmd.HWID)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid hardware id", err.Error())
	}
	if cmd.ActorUID == "" {
		return nil, apperrors.NewValidationError("actor uid is required")
	}

	err = uc.repo.Reactivate(ctx, hwID, cmd.ActorUID, cmd.Reason, uc.now())
	if err == nil {
		rec, readErr := uc.repo.GetByHWID(ctx, hwID)
		if readErr != nil {
			rec = nil
		}
		uc.logger.Infow("device reactivated", "hw_id", hwID, "actor_uid", cmd.ActorUID)
		return &ReactivateDeviceResult{Outcome: device.ReactivateOutcomeReactivated, Record: rec}, nil
	}
	if errors.Is(err, device.ErrNotFound) {
		return &ReactivateDeviceResult{Outcome: device.ReactivateOutcomeNotFound}, nil
	}
	if errors.Is(err, device.ErrTransitionRejected) {
		rec, readErr := uc.repo.GetByHWID(ctx, hwID)
		if readErr != nil {
			rec = nil
		}
		return &ReactivateDeviceResult{Outcome: device.ReactivateOutcomeAlreadyActive, Record: rec}, nil
	}
	return nil, err
}
