package usecases

import (
	"context"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/device"
	apperrors "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/errors"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

// GetDeviceUseCase reads one provisioning record.
type GetDeviceUseCase struct {
	repo   device.Repository
	logger logger.Interface
}

// NewGetDeviceUseCase creates the device reader.
func NewGetDeviceUseCase(repo device.Repository, log logger.Interface) *GetDeviceUseCase {
	return &GetDeviceUseCase{
		repo:   repo,
		logger: log.Named("get-device"),
	}
}

func (uc *GetDeviceUseCase) Execute(ctx context.Context, hwID string) (*device.Record, error) {
	normalized, err := device.NormalizeHWID(hwID)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid hardware id", err.Error())
	}
	rec, err := uc.repo.GetByHWID(ctx, normalized)
	if err == device.ErrNotFound {
		return nil, apperrors.NewNotFoundError("device not found", normalized)
	}
	return rec, err
}
