package usecases

import (
	"context"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/account"
	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/logger"
)

// GetProfileUseCase reads a user profile document. A uid that has never
// been written yields an empty document rather than an error, matching
// the synchronizer's create-on-first-merge behavior.
type GetProfileUseCase struct {
	repo   account.Repository
	logger logger.Interface
}

// NewGetProfileUseCase creates the profile reader.
func NewGetProfileUseCase(repo account.Repository, log logger.Interface) *GetProfileUseCase {
	return &GetProfileUseCase{
		repo:   repo,
		logger: log.Named("get-profile"),
	}
}

func (uc *GetProfileUseCase) Execute(ctx context.Context, uid string) (*account.Document, error) {
	stored, err := uc.repo.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !stored.Exists {
		return &account.Document{UID: uid}, nil
	}
	return account.FromJSON(stored.Body)
}
