package usecases

import (
	"context"
	"errors"
	"time"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/application/device/serialalloc"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/device"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/biztime"
	apperrors "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/errors"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

// ProvisionDeviceCommand provisions one physical device at factory time.
type ProvisionDeviceCommand struct {
	HWID     string
	Metadata map[string]any
}

// ProvisionDeviceResult reports the record and whether this call created
// it (the 201-vs-200 distinction at the HTTP boundary).
type ProvisionDeviceResult struct {
	Record  *device.Record
	Created bool
}

// ProvisionDeviceUseCase creates provisioning records. Provisioning is
// idempotent per hardware id: re-provisioning returns the existing
// record, and a lost insert race returns the winner's record. A serial
// is never issued twice for one hardware id.
type ProvisionDeviceUseCase struct {
	repo      device.Repository
	allocator serialalloc.Allocator
	logger    logger.Interface
	now       func() time.Time
}

// NewProvisionDeviceUseCase creates the provisioning use case.
func NewProvisionDeviceUseCase(repo device.Repository, allocator serialalloc.Allocator, log logger.Interface) *ProvisionDeviceUseCase {
	return &ProvisionDeviceUseCase{
		repo:      repo,
		allocator: allocator,
		logger:    log.Named("provision-device"),
		now:       biztime.NowUTC,
	}
}

func (uc *ProvisionDeviceUseCase) Execute(ctx context.Context, cmd ProvisionDeviceCommand) (*ProvisionDeviceResult, error) {
	hwID, err := device.NormalizeHWID(cmd.HWID)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid hardware id", err.Error())
	}
	if err := device.ValidateMetadata(cmd.Metadata); err != nil {
		return nil, apperrors.NewValidationError("invalid metadata", err.Error())
	}

	existing, err := uc.repo.GetByHWID(ctx, hwID)
	if err == nil {
		return &ProvisionDeviceResult{Record: existing, Created: false}, nil
	}
	if !errors.Is(err, device.ErrNotFound) {
		return nil, err
	}

	seq, err := uc.allocator.NextSerial(ctx)
	if err != nil {
		return nil, err
	}
	serial := serialalloc.FormatSerial(seq)

	rec := device.NewRecord(hwID, seq, serial, cmd.Metadata, uc.now())
	err = uc.repo.Create(ctx, rec)
	if err == nil {
		uc.logger.Infow("device provisioned",
			"hw_id", hwID, "serial", serial, "thing_name", rec.ThingName)
		return &ProvisionDeviceResult{Record: rec, Created: true}, nil
	}
	if !errors.Is(err, device.ErrAlreadyExists) {
		return nil, err
	}

	// A concurrent provision call for the same hardware id won the
	// insert race. Return the winner's record; the serial allocated
	// here is abandoned (gaps are acceptable, duplicates are not).
	winner, err := uc.repo.GetByHWID(ctx, hwID)
	if err != nil {
		return nil, err
	}
	uc.logger.Infow("provision race lost, returning existing record",
		"hw_id", hwID, "abandoned_serial", serial, "winning_serial", winner.Serial)
	return &ProvisionDeviceResult{Record: winner, Created: false}, nil
}
