package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ulasari/RentalGo/internal/domain"
	"github.com/ulasari/RentalGo/pkg/database"
	apperrors "github.com/ulasari/RentalGo/pkg/errors"
)

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
// Every mutation recomputes the property's denormalized average_rating inside
// the same transaction, so readers never observe a stale aggregate.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

const reviewColumns = `id, property_id, booking_id, reviewer_id, rating, comment, likes, dislikes, created_at, updated_at`

// Create inserts a review and refreshes the property aggregate. A duplicate
// review by the same authenticated reviewer yields a conflict.
func (r *ReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO reviews (id, property_id, booking_id, reviewer_id, rating, comment, likes, dislikes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = tx.Exec(ctx, query,
		review.ID,
		review.PropertyID,
		review.BookingID,
		review.ReviewerID,
		review.Rating,
		review.Comment,
		review.Likes,
		review.Dislikes,
		review.CreatedAt,
		review.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("reviewer has already reviewed this property")
		}
		return fmt.Errorf("insert review: %w", err)
	}

	if err := refreshAverageRating(ctx, tx, review.PropertyID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a review by its ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := `
		SELECT ` + reviewColumns + `
		FROM reviews
		WHERE id = $1`

	rv, err := scanReview(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("get review: %w", err)
	}

	return rv, nil
}

// Update modifies a review's rating and comment and refreshes the aggregate.
func (r *ReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	review.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE reviews
		SET rating = $2, comment = $3, updated_at = $4
		WHERE id = $1`

	ct, err := tx.Exec(ctx, query, review.ID, review.Rating, review.Comment, review.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", review.ID)
	}

	if err := refreshAverageRating(ctx, tx, review.PropertyID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// Delete removes a review and refreshes the aggregate.
func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var propertyID string
	err = tx.QueryRow(ctx, `DELETE FROM reviews WHERE id = $1 RETURNING property_id`, id).Scan(&propertyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("review", id)
		}
		return fmt.Errorf("delete review: %w", err)
	}

	if err := refreshAverageRating(ctx, tx, propertyID); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// ListByProperty returns paginated reviews for a property with the total count.
func (r *ReviewRepository) ListByProperty(ctx context.Context, propertyID string, page, perPage int) ([]domain.Review, int, error) {
	limit := perPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if page > 1 {
		offset = (page - 1) * limit
	}

	query := `
		SELECT ` + reviewColumns + `,
		       count(*) OVER() AS total_count
		FROM reviews
		WHERE property_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, propertyID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    []domain.Review
		totalCount int
	)

	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID, &rv.PropertyID, &rv.BookingID, &rv.ReviewerID, &rv.Rating,
			&rv.Comment, &rv.Likes, &rv.Dislikes, &rv.CreatedAt, &rv.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}

	return reviews, totalCount, nil
}

// Like atomically increments the review's like counter.
func (r *ReviewRepository) Like(ctx context.Context, id string) error {
	return r.bumpCounter(ctx, id, "likes")
}

// Dislike atomically increments the review's dislike counter.
func (r *ReviewRepository) Dislike(ctx context.Context, id string) error {
	return r.bumpCounter(ctx, id, "dislikes")
}

func (r *ReviewRepository) bumpCounter(ctx context.Context, id, column string) error {
	query := fmt.Sprintf(`UPDATE reviews SET %s = %s + 1, updated_at = NOW() WHERE id = $1`, column, column)

	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment review %s: %w", column, err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}
	return nil
}

// GetSummary returns the average rating and total count of reviews for a property.
func (r *ReviewRepository) GetSummary(ctx context.Context, propertyID string) (*domain.ReviewSummary, error) {
	query := `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM reviews
		WHERE property_id = $1`

	var summary domain.ReviewSummary
	err := r.pool.QueryRow(ctx, query, propertyID).Scan(&summary.AverageRating, &summary.TotalCount)
	if err != nil {
		return nil, fmt.Errorf("get review summary: %w", err)
	}

	// Round average rating to one decimal place.
	summary.AverageRating = math.Round(summary.AverageRating*10) / 10

	return &summary, nil
}

// RecalculateAll rewrites average_rating for every property in one statement
// and returns the number of properties touched.
func (r *ReviewRepository) RecalculateAll(ctx context.Context) (int, error) {
	query := `
		UPDATE properties p
		SET average_rating = COALESCE(agg.avg_rating, 0)
		FROM (
			SELECT pr.id, AVG(rv.rating) AS avg_rating
			FROM properties pr
			LEFT JOIN reviews rv ON rv.property_id = pr.id
			GROUP BY pr.id
		) agg
		WHERE agg.id = p.id`

	ct, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("recalculate average ratings: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

// refreshAverageRating rewrites the property's denormalized aggregate inside
// the caller's transaction.
func refreshAverageRating(ctx context.Context, tx pgx.Tx, propertyID string) error {
	query := `
		UPDATE properties
		SET average_rating = COALESCE((SELECT AVG(rating) FROM reviews WHERE property_id = $1), 0)
		WHERE id = $1`

	if _, err := tx.Exec(ctx, query, propertyID); err != nil {
		return fmt.Errorf("refresh average rating: %w", err)
	}
	return nil
}

func scanReview(row rowScanner) (*domain.Review, error) {
	var rv domain.Review
	err := row.Scan(
		&rv.ID, &rv.PropertyID, &rv.BookingID, &rv.ReviewerID, &rv.Rating,
		&rv.Comment, &rv.Likes, &rv.Dislikes, &rv.CreatedAt, &rv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rv, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
