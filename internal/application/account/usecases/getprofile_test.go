package usecases

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/domain/account"
	apperrors "github.com/AlexMihai1804/autowatering-smart-dashboard-sub006/internal/shared/errors"
)

func TestGetProfileMissingYieldsEmptyDocument(t *testing.T) {
	uc := NewGetProfileUseCase(newFakeAccountRepo(), quietLogger())

	doc, err := uc.Execute(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", doc.UID)
	assert.Equal(t, int64(0), doc.DocVersion)
	assert.Nil(t, doc.Profile)
}

func TestGetProfileReturnsStoredDocument(t *testing.T) {
	repo := newFakeAccountRepo()
	repo.bump("u1", json.RawMessage(`{"uid":"u1","docVersion":4,"premium":true,"profile":{"name":"Ana"}}`))

	uc := NewGetProfileUseCase(repo, quietLogger())

	doc, err := uc.Execute(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), doc.DocVersion)
	assert.True(t, doc.Premium)
	assert.Equal(t, "Ana", doc.Profile["name"])
}

func TestDeleteProfileRemovesDocument(t *testing.T) {
	repo := newFakeAccountRepo()
	repo.bump("u1", json.RawMessage(`{"uid":"u1"}`))

	uc := NewDeleteProfileUseCase(repo, quietLogger())
	require.NoError(t, uc.Execute(context.Background(), "u1"))

	stored, err := repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, stored.Exists)
}

func TestDeleteProfileEmptyUID(t *testing.T) {
	uc := NewDeleteProfileUseCase(newFakeAccountRepo(), quietLogger())

	err := uc.Execute(context.Background(), "")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}

var _ account.Repository = (*fakeAccountRepo)(nil)
