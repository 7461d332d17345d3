package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ulasari/RentalGo/internal/domain"
	"github.com/ulasari/RentalGo/internal/repository"
	apperrors "github.com/ulasari/RentalGo/pkg/errors"
)

// FavoriteService implements the business logic for saved properties.
type FavoriteService struct {
	repo       repository.FavoriteRepository
	properties repository.PropertyRepository
	logger     *slog.Logger
}

// NewFavoriteService creates a new favorite service.
func NewFavoriteService(repo repository.FavoriteRepository, properties repository.PropertyRepository, logger *slog.Logger) *FavoriteService {
	return &FavoriteService{
		repo:       repo,
		properties: properties,
		logger:     logger,
	}
}

// AddFavorite saves a property for a user. Saving an already-saved property
// is a no-op.
func (s *FavoriteService) AddFavorite(ctx context.Context, userID, propertyID string) error {
	if userID == "" {
		return apperrors.Unauthorized("authentication required")
	}
	if propertyID == "" {
		return apperrors.ValidationField("property_id", "is required")
	}

	if _, err := s.properties.GetByID(ctx, propertyID); err != nil {
		return fmt.Errorf("get property for favorite: %w", err)
	}

	if err := s.repo.Add(ctx, userID, propertyID); err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}

	s.logger.InfoContext(ctx, "favorite added",
		slog.String("user_id", userID),
		slog.String("property_id", propertyID),
	)
	return nil
}

// RemoveFavorite deletes a saved property for a user.
func (s *FavoriteService) RemoveFavorite(ctx context.Context, userID, propertyID string) error {
	if userID == "" {
		return apperrors.Unauthorized("authentication required")
	}

	if err := s.repo.Remove(ctx, userID, propertyID); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// ListFavorites returns the user's saved properties with the total count.
func (s *FavoriteService) ListFavorites(ctx context.Context, userID string, page, perPage int) ([]domain.Property, int, error) {
	if userID == "" {
		return nil, 0, apperrors.Unauthorized("authentication required")
	}
	page, perPage = clampPagination(page, perPage)

	properties, total, err := s.repo.ListByUser(ctx, userID, page, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list favorites: %w", err)
	}
	return properties, total, nil
}
