package usecases

import (
	"context"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/account"
	apperrors "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/errors"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

// DeleteProfileUseCase is the account-deletion primitive. It removes the
// profile document only; device records are never deleted.
type DeleteProfileUseCase struct {
	repo   account.Repository
	logger logger.Interface
}

// NewDeleteProfileUseCase creates the profile deleter.
func NewDeleteProfileUseCase(repo account.Repository, log logger.Interface) *DeleteProfileUseCase {
	return &DeleteProfileUseCase{
		repo:   repo,
		logger: log.Named("delete-profile"),
	}
}

func (uc *DeleteProfileUseCase) Execute(ctx context.Context, uid string) error {
	if uid == "" {
		return apperrors.NewValidationError("uid is required")
	}
	if err := uc.repo.Delete(ctx, uid); err != nil {
		return err
	}
	uc.logger.Infow("profile deleted", "uid", uid)
	return nil
}
