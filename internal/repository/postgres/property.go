package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ulasari/RentalGo/internal/domain"
	"github.com/ulasari/RentalGo/internal/repository"
	"github.com/ulasari/RentalGo/pkg/database"
	apperrors "github.com/ulasari/RentalGo/pkg/errors"
)

// PropertyRepository implements repository.PropertyRepository using PostgreSQL.
type PropertyRepository struct {
	pool database.DBTX
}

// NewPropertyRepository creates a new PostgreSQL-backed property repository.
func NewPropertyRepository(pool database.DBTX) *PropertyRepository {
	return &PropertyRepository{pool: pool}
}

// propertyColumns is the shared column list for property reads, including the
// satellite aggregates and the denormalized host summary.
const propertyColumns = `
		p.id, p.host_id, p.title, p.description, p.address, p.city, p.state, p.zip_code,
		p.price, p.bedrooms, p.bathrooms, p.area, p.property_type, p.status,
		p.is_new, p.is_featured, p.is_verified, p.parking_spaces, p.average_rating,
		p.views, p.latitude, p.longitude, p.archived, p.archived_reason, p.archived_at,
		p.created_at, p.updated_at,
		COALESCE((SELECT ARRAY_AGG(a.amenity ORDER BY a.amenity) FROM property_amenities a WHERE a.property_id = p.id), '{}') AS amenities,
		COALESCE((SELECT ARRAY_AGG(pt.pet ORDER BY pt.pet) FROM property_pets pt WHERE pt.property_id = p.id), '{}') AS pets,
		(SELECT i.url FROM property_images i WHERE i.property_id = p.id AND i.is_primary LIMIT 1) AS primary_image,
		COALESCE((SELECT ARRAY_AGG(i.url ORDER BY i.created_at) FROM property_images i WHERE i.property_id = p.id AND NOT i.is_primary), '{}') AS images,
		u.full_name AS host_name,
		COALESCE((SELECT AVG(r.rating) FROM reviews r JOIN properties hp ON hp.id = r.property_id WHERE hp.host_id = p.host_id), 0) AS host_rating,
		COALESCE((SELECT COUNT(*) FROM reviews r JOIN properties hp ON hp.id = r.property_id WHERE hp.host_id = p.host_id), 0) AS host_review_count`

const propertyFrom = `
	FROM properties p
	LEFT JOIN users u ON u.id = p.host_id`

// Create inserts the property row and its satellite rows atomically.
func (r *PropertyRepository) Create(ctx context.Context, p *domain.Property, amenities, pets []string, images []domain.PropertyImage) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO properties (id, host_id, title, description, address, city, state, zip_code,
			price, bedrooms, bathrooms, area, property_type, status, is_new, is_featured,
			is_verified, parking_spaces, average_rating, views, latitude, longitude,
			archived, archived_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			$17, $18, $19, $20, $21, $22, $23, $24, $25, $26)`

	_, err = tx.Exec(ctx, query,
		p.ID,
		p.HostID,
		p.Title,
		p.Description,
		p.Address,
		p.City,
		p.State,
		p.ZipCode,
		p.Price,
		p.Bedrooms,
		p.Bathrooms,
		p.Area,
		p.PropertyType,
		p.Status,
		p.IsNew,
		p.IsFeatured,
		p.IsVerified,
		p.ParkingSpaces,
		p.AverageRating,
		p.Views,
		p.Latitude,
		p.Longitude,
		p.Archived,
		p.ArchivedReason,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert property: %w", err)
	}

	if err := insertAmenities(ctx, tx, p.ID, amenities); err != nil {
		return err
	}
	if err := insertPets(ctx, tx, p.ID, pets); err != nil {
		return err
	}

	imageQuery := `
		INSERT INTO property_images (id, property_id, url, is_primary, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	for _, img := range images {
		_, err = tx.Exec(ctx, imageQuery, img.ID, img.PropertyID, img.URL, img.IsPrimary, img.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert property image: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a property with its satellite data.
func (r *PropertyRepository) GetByID(ctx context.Context, id string) (*domain.PropertyDetail, error) {
	query := "SELECT" + propertyColumns + propertyFrom + `
	WHERE p.id = $1`

	row := r.pool.QueryRow(ctx, query, id)

	detail, err := scanPropertyDetail(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("property", id)
		}
		return nil, fmt.Errorf("get property: %w", err)
	}

	return detail, nil
}

// IncrementViews atomically bumps the view counter.
func (r *PropertyRepository) IncrementViews(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `UPDATE properties SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("increment property views: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("property", id)
	}
	return nil
}

// List returns properties matching the filter along with the total count.
func (r *PropertyRepository) List(ctx context.Context, filter repository.PropertyFilter) ([]domain.PropertyDetail, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if !filter.IncludeArchived {
		conditions = append(conditions, "NOT p.archived")
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if len(filter.Types) > 0 {
		conditions = append(conditions, fmt.Sprintf("p.property_type = ANY($%d)", argIndex))
		args = append(args, filter.Types)
		argIndex++
	}

	if filter.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("p.price >= $%d", argIndex))
		args = append(args, *filter.MinPrice)
		argIndex++
	}

	if filter.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("p.price <= $%d", argIndex))
		args = append(args, *filter.MaxPrice)
		argIndex++
	}

	if filter.City != nil {
		conditions = append(conditions, fmt.Sprintf("p.city ILIKE $%d", argIndex))
		args = append(args, "%"+*filter.City+"%")
		argIndex++
	}

	if filter.MinBedrooms != nil {
		conditions = append(conditions, fmt.Sprintf("p.bedrooms >= $%d", argIndex))
		args = append(args, *filter.MinBedrooms)
		argIndex++
	}

	if filter.MinBathrooms != nil {
		conditions = append(conditions, fmt.Sprintf("p.bathrooms >= $%d", argIndex))
		args = append(args, *filter.MinBathrooms)
		argIndex++
	}

	if filter.MinArea != nil {
		conditions = append(conditions, fmt.Sprintf("p.area >= $%d", argIndex))
		args = append(args, *filter.MinArea)
		argIndex++
	}

	if filter.Verified != nil {
		conditions = append(conditions, fmt.Sprintf("p.is_verified = $%d", argIndex))
		args = append(args, *filter.Verified)
		argIndex++
	}

	if filter.Featured != nil {
		conditions = append(conditions, fmt.Sprintf("p.is_featured = $%d", argIndex))
		args = append(args, *filter.Featured)
		argIndex++
	}

	if filter.HostID != nil {
		conditions = append(conditions, fmt.Sprintf("p.host_id = $%d", argIndex))
		args = append(args, *filter.HostID)
		argIndex++
	}

	// ALL-of semantics: the property must carry every requested amenity.
	if len(filter.Amenities) > 0 {
		conditions = append(conditions, fmt.Sprintf(
			"p.id IN (SELECT property_id FROM property_amenities WHERE amenity = ANY($%d) GROUP BY property_id HAVING COUNT(DISTINCT amenity) = $%d)",
			argIndex, argIndex+1,
		))
		args = append(args, filter.Amenities, len(filter.Amenities))
		argIndex += 2
	}

	if len(filter.Pets) > 0 {
		conditions = append(conditions, fmt.Sprintf(
			"p.id IN (SELECT property_id FROM property_pets WHERE pet = ANY($%d) GROUP BY property_id HAVING COUNT(DISTINCT pet) = $%d)",
			argIndex, argIndex+1,
		))
		args = append(args, filter.Pets, len(filter.Pets))
		argIndex += 2
	}

	// Free-text search ranks title matches above description, address, city.
	queryArgIndex := 0
	if filter.Query != nil {
		conditions = append(conditions, fmt.Sprintf(
			"(p.title ILIKE $%d OR p.description ILIKE $%d OR p.address ILIKE $%d OR p.city ILIKE $%d)",
			argIndex, argIndex, argIndex, argIndex,
		))
		args = append(args, "%"+*filter.Query+"%")
		queryArgIndex = argIndex
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	orderClause := orderBy(filter, queryArgIndex)

	// count(*) OVER() supplies the total in the same query.
	query := fmt.Sprintf(`SELECT%s,
		count(*) OVER() AS total_count%s
	%s
	%s
	LIMIT $%d OFFSET $%d`,
		propertyColumns, propertyFrom,
		whereClause, orderClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list properties: %w", err)
	}
	defer rows.Close()

	var (
		properties []domain.PropertyDetail
		totalCount int
	)

	for rows.Next() {
		detail, err := scanPropertyDetailWithTotal(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("scan property row: %w", err)
		}
		properties = append(properties, *detail)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate property rows: %w", err)
	}

	if properties == nil {
		properties = []domain.PropertyDetail{}
	}

	return properties, totalCount, nil
}

// Update modifies the property row and replaces the requested satellites
// atomically.
func (r *PropertyRepository) Update(ctx context.Context, p *domain.Property, sat repository.PropertySatellites) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE properties
		SET host_id = $1, title = $2, description = $3, address = $4, city = $5,
		    state = $6, zip_code = $7, price = $8, bedrooms = $9, bathrooms = $10,
		    area = $11, property_type = $12, status = $13, is_new = $14,
		    is_featured = $15, is_verified = $16, parking_spaces = $17,
		    latitude = $18, longitude = $19, updated_at = $20
		WHERE id = $21`

	ct, err := tx.Exec(ctx, query,
		p.HostID,
		p.Title,
		p.Description,
		p.Address,
		p.City,
		p.State,
		p.ZipCode,
		p.Price,
		p.Bedrooms,
		p.Bathrooms,
		p.Area,
		p.PropertyType,
		p.Status,
		p.IsNew,
		p.IsFeatured,
		p.IsVerified,
		p.ParkingSpaces,
		p.Latitude,
		p.Longitude,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update property: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("property", p.ID)
	}

	if sat.Amenities != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM property_amenities WHERE property_id = $1`, p.ID); err != nil {
			return fmt.Errorf("clear property amenities: %w", err)
		}
		if err := insertAmenities(ctx, tx, p.ID, *sat.Amenities); err != nil {
			return err
		}
	}

	if sat.Pets != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM property_pets WHERE property_id = $1`, p.ID); err != nil {
			return fmt.Errorf("clear property pets: %w", err)
		}
		if err := insertPets(ctx, tx, p.ID, *sat.Pets); err != nil {
			return err
		}
	}

	if sat.PrimaryImage != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM property_images WHERE property_id = $1 AND is_primary`, p.ID); err != nil {
			return fmt.Errorf("clear primary image: %w", err)
		}
		img := sat.PrimaryImage
		_, err := tx.Exec(ctx,
			`INSERT INTO property_images (id, property_id, url, is_primary, created_at) VALUES ($1, $2, $3, TRUE, $4)`,
			img.ID, img.PropertyID, img.URL, img.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert primary image: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Delete removes the property; satellite rows cascade in the store.
func (r *PropertyRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM properties WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete property: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("property", id)
	}
	return nil
}

// Archive soft-deletes the property. Archiving an archived property is a no-op
// beyond refreshing the reason and timestamp.
func (r *PropertyRepository) Archive(ctx context.Context, id, reason string, at time.Time) error {
	query := `
		UPDATE properties
		SET archived = TRUE, archived_reason = $2, archived_at = $3,
		    status = $4, updated_at = NOW()
		WHERE id = $1`

	ct, err := r.pool.Exec(ctx, query, id, reason, at, domain.PropertyStatusUnavailable)
	if err != nil {
		return fmt.Errorf("archive property: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("property", id)
	}
	return nil
}

// Restore clears the archive flag and sets the given status.
func (r *PropertyRepository) Restore(ctx context.Context, id, status string) error {
	query := `
		UPDATE properties
		SET archived = FALSE, archived_reason = '', archived_at = NULL,
		    status = $2, updated_at = NOW()
		WHERE id = $1`

	ct, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("restore property: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("property", id)
	}
	return nil
}

// ListImages returns all image rows for a property.
func (r *PropertyRepository) ListImages(ctx context.Context, propertyID string) ([]domain.PropertyImage, error) {
	query := `
		SELECT id, property_id, url, is_primary, created_at
		FROM property_images
		WHERE property_id = $1
		ORDER BY is_primary DESC, created_at`

	rows, err := r.pool.Query(ctx, query, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list property images: %w", err)
	}
	defer rows.Close()

	var images []domain.PropertyImage
	for rows.Next() {
		var img domain.PropertyImage
		if err := rows.Scan(&img.ID, &img.PropertyID, &img.URL, &img.IsPrimary, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan image row: %w", err)
		}
		images = append(images, img)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate image rows: %w", err)
	}

	return images, nil
}

// orderBy builds the ORDER BY clause. Free-text searches rank title matches
// above description, address, and city; otherwise the configured sort applies.
func orderBy(filter repository.PropertyFilter, queryArgIndex int) string {
	if queryArgIndex > 0 {
		return fmt.Sprintf(`ORDER BY CASE
			WHEN p.title ILIKE $%d THEN 0
			WHEN p.description ILIKE $%d THEN 1
			WHEN p.address ILIKE $%d THEN 2
			ELSE 3
		END, p.created_at DESC`, queryArgIndex, queryArgIndex, queryArgIndex)
	}

	column, ok := domain.PropertySortKeys[filter.SortBy]
	if !ok {
		return "ORDER BY p.created_at DESC"
	}

	dir := "ASC"
	if filter.SortDesc {
		dir = "DESC"
	}
	return fmt.Sprintf("ORDER BY p.%s %s", column, dir)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPropertyDetail(row rowScanner) (*domain.PropertyDetail, error) {
	return scanDetail(row, nil)
}

func scanPropertyDetailWithTotal(row rowScanner, total *int) (*domain.PropertyDetail, error) {
	return scanDetail(row, total)
}

func scanDetail(row rowScanner, total *int) (*domain.PropertyDetail, error) {
	var (
		d               domain.PropertyDetail
		hostName        *string
		hostRating      float64
		hostReviewCount int
	)

	dest := []any{
		&d.ID, &d.HostID, &d.Title, &d.Description, &d.Address, &d.City, &d.State, &d.ZipCode,
		&d.Price, &d.Bedrooms, &d.Bathrooms, &d.Area, &d.PropertyType, &d.Status,
		&d.IsNew, &d.IsFeatured, &d.IsVerified, &d.ParkingSpaces, &d.AverageRating,
		&d.Views, &d.Latitude, &d.Longitude, &d.Archived, &d.ArchivedReason, &d.ArchivedAt,
		&d.CreatedAt, &d.UpdatedAt,
		&d.Amenities, &d.Pets, &d.PrimaryImage, &d.Images,
		&hostName, &hostRating, &hostReviewCount,
	}
	if total != nil {
		dest = append(dest, total)
	}

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	if d.Amenities == nil {
		d.Amenities = []string{}
	}
	if d.Pets == nil {
		d.Pets = []string{}
	}
	if d.Images == nil {
		d.Images = []string{}
	}

	if d.HostID != nil && hostName != nil {
		d.Host = &domain.HostSummary{
			ID:          *d.HostID,
			FullName:    *hostName,
			Rating:      hostRating,
			ReviewCount: hostReviewCount,
		}
	}

	return &d, nil
}

func insertAmenities(ctx context.Context, tx pgx.Tx, propertyID string, amenities []string) error {
	query := `INSERT INTO property_amenities (property_id, amenity) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, a := range amenities {
		if _, err := tx.Exec(ctx, query, propertyID, a); err != nil {
			return fmt.Errorf("insert property amenity: %w", err)
		}
	}
	return nil
}

func insertPets(ctx context.Context, tx pgx.Tx, propertyID string, pets []string) error {
	query := `INSERT INTO property_pets (property_id, pet) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, p := range pets {
		if _, err := tx.Exec(ctx, query, propertyID, p); err != nil {
			return fmt.Errorf("insert property pet: %w", err)
		}
	}
	return nil
}
