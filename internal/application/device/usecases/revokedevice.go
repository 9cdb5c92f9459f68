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

// RevokeDeviceCommand disables a device administratively.
type RevokeDeviceCommand struct {
	HWID     string
	ActorUID string
	Reason   string
}

// RevokeDeviceResult carries the closed revoke outcome.
type RevokeDeviceResult struct {
	Outcome device.RevokeOutcome
	Record  *device.Record
}

// RevokeDeviceUseCase revokes a device regardless of ownership and
// appends the audit entry atomically with the status change.
type RevokeDeviceUseCase struct {
	repo   device.Repository
	logger logger.Interface
	now    func() time.Time
}

// NewRevokeDeviceUseCase creates the revoke use case.
func NewRevokeDeviceUseCase(repo device.Repository, log logger.Interface) *RevokeDeviceUseCase {
	return &RevokeDeviceUseCase{
		repo:   repo,
		logger: log.Named("revoke-device"),
		now:    biztime.NowUTC,
	}
}

func (uc *RevokeDeviceUseCase) Execute(ctx context.Context, cmd RevokeDeviceCommand) (*RevokeDeviceResult, error) {
	hwID, err := device.NormalizeHWID(cmd.HWID)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid hardware id", err.Error())
	}
	if cmd.ActorUID == "" {
		return nil, apperrors.NewValidationError("actor uid is required")
	}

	err = uc.repo.Revoke(ctx, hwID, cmd.ActorUID, cmd.Reason, uc.now())
	if err == nil {
		rec, readErr := uc.repo.GetByHWID(ctx, hwID)
		if readErr != nil {
			rec = nil
		}
		uc.logger.Infow("device revoked", "hw_id", hwID, "actor_uid", cmd.ActorUID, "reason", cmd.Reason)
		return &RevokeDeviceResult{Outcome: device.RevokeOutcomeRevoked, Record: rec}, nil
	}
	if errors.Is(err, device.ErrNotFound) {
		return &RevokeDeviceResult{Outcome: device.RevokeOutcomeNotFound}, nil
	}
	if errors.Is(err, device.ErrTransitionRejected) {
		rec, readErr := uc.repo.GetByHWID(ctx, hwID)
		if readErr != nil {
			rec = nil
		}
		return &RevokeDeviceResult{Outcome: device.RevokeOutcomeAlreadyRevoked, Record: rec}, nil
	}
	return nil, err
}
