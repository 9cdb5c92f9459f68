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

// UnclaimDeviceCommand releases ownership of a device.
type UnclaimDeviceCommand struct {
	HWID     string
	ActorUID string
	Reason   string
}

// UnclaimDeviceResult carries the closed unclaim outcome.
type UnclaimDeviceResult struct {
	Outcome device.UnclaimOutcome
	Record  *device.Record
}

// UnclaimDeviceUseCase releases a claim held by the acting user and
// appends the audit entry atomically with the release.
type UnclaimDeviceUseCase struct {
	repo   device.Repository
	logger logger.Interface
	now    func() time.Time
}

// NewUnclaimDeviceUseCase creates the unclaim use case.
func NewUnclaimDeviceUseCase(repo device.Repository, log logger.Interface) *UnclaimDeviceUseCase {
	return &UnclaimDeviceUseCase{
		repo:   repo,
		logger: log.Named("unclaim-device"),
		now:    biztime.NowUTC,
	}
}

func (uc *UnclaimDeviceUseCase) Execute(ctx context.Context, cmd UnclaimDeviceCommand) (*UnclaimDeviceResult, error) {
	hwID, err := device.NormalizeHWID(cmd.HWID)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid hardware id", err.Error())
	}
	if cmd.ActorUID == "" {
		return nil, apperrors.NewValidationError("actor uid is required")
	}

	err = uc.repo.Unclaim(ctx, hwID, cmd.ActorUID, cmd.Reason, uc.now())
	if err == nil {
		rec, readErr := uc.repo.GetByHWID(ctx, hwID)
		if readErr != nil {
			rec = nil
		}
		uc.logger.Infow("device unclaimed", "hw_id", hwID, "uid", cmd.ActorUID)
		return &UnclaimDeviceResult{Outcome: device.UnclaimOutcomeUnclaimed, Record: rec}, nil
	}
	if errors.Is(err, device.ErrNotFound) {
		return &UnclaimDeviceResult{Outcome: device.UnclaimOutcomeNotFound}, nil
	}
	if !errors.Is(err, device.ErrTransitionRejected) {
		return nil, err
	}

	rec, err := uc.repo.GetByHWID(ctx, hwID)
	if err != nil {
		if errors.Is(err, device.ErrNotFound) {
			return &UnclaimDeviceResult{Outcome: device.UnclaimOutcomeNotFound}, nil
		}
		return nil, err
	}
	if rec.Status != device.StatusActive {
		return &UnclaimDeviceResult{Outcome: device.UnclaimOutcomeNotActive, Record: rec}, nil
	}
	return &UnclaimDeviceResult{Outcome: device.UnclaimOutcomeNotOwned, Record: rec}, nil
}
