package usecases

import (
	"context"
	"errors"
	"time"

	accountUsecases "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/application/account/usecases"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/account"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/device"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/biztime"
	apperrors "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/errors"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

// ClaimDeviceCommand claims a device by its printed serial.
type ClaimDeviceCommand struct {
	Serial string
	UID    string
}

// ClaimDeviceResult carries the closed claim outcome and, when the
// record exists, its current state.
type ClaimDeviceResult struct {
	Outcome device.ClaimOutcome
	Record  *device.Record
}

// ClaimDeviceUseCase establishes exclusive device ownership. The record
// update and the profile device-summary merge are two separate writes;
// a failure after the first leaves the device claimed but not yet listed
// for the user until the next successful profile write.
type ClaimDeviceUseCase struct {
	repo    device.Repository
	profile *accountUsecases.MergeProfileUseCase
	logger  logger.Interface
	now     func() time.Time
}

// NewClaimDeviceUseCase creates the claim use case.
func NewClaimDeviceUseCase(repo device.Repository, profile *accountUsecases.MergeProfileUseCase, log logger.Interface) *ClaimDeviceUseCase {
	return &ClaimDeviceUseCase{
		repo:    repo,
		profile: profile,
		logger:  log.Named("claim-device"),
		now:     biztime.NowUTC,
	}
}

func (uc *ClaimDeviceUseCase) Execute(ctx context.Context, cmd ClaimDeviceCommand) (*ClaimDeviceResult, error) {
	if cmd.UID == "" {
		return nil, apperrors.NewValidationError("uid is required")
	}
	if cmd.Serial == "" {
		return nil, apperrors.NewValidationError("serial is required")
	}

	rec, err := uc.repo.FindBySerial(ctx, cmd.Serial)
	if err != nil {
		if errors.Is(err, device.ErrNotFound) {
			return &ClaimDeviceResult{Outcome: device.ClaimOutcomeNotClaimable}, nil
		}
		return nil, err
	}

	now := uc.now()
	alreadyOwned, err := uc.repo.Claim(ctx, rec.HWID, cmd.UID, now)
	if err != nil {
		if errors.Is(err, device.ErrTransitionRejected) || errors.Is(err, device.ErrNotFound) {
			return uc.classifyRejection(ctx, rec.HWID, cmd.UID)
		}
		return nil, err
	}

	claimed, err := uc.repo.GetByHWID(ctx, rec.HWID)
	if err != nil {
		// The transition is already committed. Reconstruct its effect
		// locally rather than handing back the pre-claim snapshot.
		uc.logger.Warnw("re-read after claim failed, reconstructing record",
			"hw_id", rec.HWID, "uid", cmd.UID, "error", err)
		refreshed := *rec
		refreshed.ClaimedBy = cmd.UID
		claimedAt := now
		refreshed.ClaimedAt = &claimedAt
		refreshed.UpdatedAt = now
		claimed = &refreshed
	}

	if alreadyOwned {
		return &ClaimDeviceResult{Outcome: device.ClaimOutcomeAlreadyOwned, Record: claimed}, nil
	}

	// Second, non-transactional step: list the device on the owner's
	// profile. On failure the claim stands; the summary appears with
	// the next successful profile write.
	patch := account.DeviceSummaryPatch{
		HWID: claimed.HWID,
		Summary: account.DeviceSummary{
			Serial:    claimed.Serial,
			ThingName: claimed.ThingName,
			ClaimedAt: now.UnixMilli(),
		},
	}
	if _, err := uc.profile.Execute(ctx, cmd.UID, patch); err != nil {
		uc.logger.Warnw("device claimed but profile summary merge failed",
			"hw_id", claimed.HWID, "uid", cmd.UID, "error", err)
	}

	uc.logger.Infow("device claimed", "hw_id", claimed.HWID, "serial", claimed.Serial, "uid", cmd.UID)
	return &ClaimDeviceResult{Outcome: device.ClaimOutcomeClaimed, Record: claimed}, nil
}

// classifyRejection re-reads after a rejected conditional claim to name
// the precise business outcome.
func (uc *ClaimDeviceUseCase) classifyRejection(ctx context.Context, hwID, uid string) (*ClaimDeviceResult, error) {
	rec, err := uc.repo.GetByHWID(ctx, hwID)
	if err != nil {
		if errors.Is(err, device.ErrNotFound) {
			return &ClaimDeviceResult{Outcome: device.ClaimOutcomeNotClaimable}, nil
		}
		return nil, err
	}
	switch {
	case rec.Status != device.StatusActive:
		return &ClaimDeviceResult{Outcome: device.ClaimOutcomeNotClaimable, Record: rec}, nil
	case rec.ClaimedBy == uid:
		return &ClaimDeviceResult{Outcome: device.ClaimOutcomeAlreadyOwned, Record: rec}, nil
	case rec.ClaimedBy != "":
		return &ClaimDeviceResult{Outcome: device.ClaimOutcomeOwnedByOther, Record: rec}, nil
	default:
		// The blocking condition cleared between the rejected write
		// and this read; report the device as claimable again.
		return &ClaimDeviceResult{Outcome: device.ClaimOutcomeNotClaimable, Record: rec}, nil
	}
}
