package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ulasari/RentalGo/internal/domain"
	apperrors "github.com/ulasari/RentalGo/pkg/errors"
)

func newTestFavoriteService(repo *mockFavoriteRepository, properties *mockPropertyRepository) *FavoriteService {
	return NewFavoriteService(repo, properties, newTestLogger())
}

func TestAddFavorite_Success(t *testing.T) {
	repo := new(mockFavoriteRepository)
	properties := new(mockPropertyRepository)
	svc := newTestFavoriteService(repo, properties)
	ctx := context.Background()

	properties.On("GetByID", ctx, "prop-1").Return(testPropertyDetail("prop-1", nil), nil)
	repo.On("Add", ctx, "user-1", "prop-1").Return(nil)

	err := svc.AddFavorite(ctx, "user-1", "prop-1")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestAddFavorite_UnknownProperty(t *testing.T) {
	repo := new(mockFavoriteRepository)
	properties := new(mockPropertyRepository)
	svc := newTestFavoriteService(repo, properties)
	ctx := context.Background()

	properties.On("GetByID", ctx, "ghost").Return(nil, apperrors.NotFound("property", "ghost"))

	err := svc.AddFavorite(ctx, "user-1", "ghost")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	repo.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
}

func TestAddFavorite_RequiresAuthentication(t *testing.T) {
	svc := newTestFavoriteService(new(mockFavoriteRepository), new(mockPropertyRepository))

	err := svc.AddFavorite(context.Background(), "", "prop-1")

	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRemoveFavorite_NotFound(t *testing.T) {
	repo := new(mockFavoriteRepository)
	svc := newTestFavoriteService(repo, new(mockPropertyRepository))
	ctx := context.Background()

	repo.On("Remove", ctx, "user-1", "prop-1").Return(apperrors.NotFound("favorite", "prop-1"))

	err := svc.RemoveFavorite(ctx, "user-1", "prop-1")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestListFavorites_ClampsPagination(t *testing.T) {
	repo := new(mockFavoriteRepository)
	svc := newTestFavoriteService(repo, new(mockPropertyRepository))
	ctx := context.Background()

	repo.On("ListByUser", ctx, "user-1", 1, 20).Return([]domain.Property{{ID: "prop-1"}}, 1, nil)

	properties, total, err := svc.ListFavorites(ctx, "user-1", 0, 0)

	require.NoError(t, err)
	assert.Len(t, properties, 1)
	assert.Equal(t, 1, total)
	repo.AssertExpectations(t)
}
