package postgres

import (
	"context"
	"fmt"

	"github.com/ulasari/RentalGo/internal/domain"
	"github.com/ulasari/RentalGo/pkg/database"
	apperrors "github.com/ulasari/RentalGo/pkg/errors"
)

// FavoriteRepository implements repository.FavoriteRepository using PostgreSQL.
type FavoriteRepository struct {
	pool database.DBTX
}

// NewFavoriteRepository creates a new PostgreSQL-backed favorite repository.
func NewFavoriteRepository(pool database.DBTX) *FavoriteRepository {
	return &FavoriteRepository{pool: pool}
}

// Add saves a property for a user. Re-adding is a no-op.
func (r *FavoriteRepository) Add(ctx context.Context, userID, propertyID string) error {
	query := `
		INSERT INTO favorites (user_id, property_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id, property_id) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, userID, propertyID); err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// Remove deletes a saved property for a user.
func (r *FavoriteRepository) Remove(ctx context.Context, userID, propertyID string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND property_id = $2`, userID, propertyID)
	if err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("favorite", propertyID)
	}
	return nil
}

// ListByUser returns the user's saved properties with the total count.
func (r *FavoriteRepository) ListByUser(ctx context.Context, userID string, page, perPage int) ([]domain.Property, int, error) {
	limit := perPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * limit
	}

	query := `
		SELECT p.id, p.host_id, p.title, p.description, p.address, p.city, p.state, p.zip_code,
		       p.price, p.bedrooms, p.bathrooms, p.area, p.property_type, p.status,
		       p.is_new, p.is_featured, p.is_verified, p.parking_spaces, p.average_rating,
		       p.views, p.latitude, p.longitude, p.archived, p.archived_reason, p.archived_at,
		       p.created_at, p.updated_at,
		       count(*) OVER() AS total_count
		FROM favorites f
		JOIN properties p ON p.id = f.property_id
		WHERE f.user_id = $1 AND NOT p.archived
		ORDER BY f.created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	var (
		properties []domain.Property
		totalCount int
	)

	for rows.Next() {
		var p domain.Property
		if err := rows.Scan(
			&p.ID, &p.HostID, &p.Title, &p.Description, &p.Address, &p.City, &p.State, &p.ZipCode,
			&p.Price, &p.Bedrooms, &p.Bathrooms, &p.Area, &p.PropertyType, &p.Status,
			&p.IsNew, &p.IsFeatured, &p.IsVerified, &p.ParkingSpaces, &p.AverageRating,
			&p.Views, &p.Latitude, &p.Longitude, &p.Archived, &p.ArchivedReason, &p.ArchivedAt,
			&p.CreatedAt, &p.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan favorite row: %w", err)
		}
		properties = append(properties, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate favorite rows: %w", err)
	}

	if properties == nil {
		properties = []domain.Property{}
	}

	return properties, totalCount, nil
}
