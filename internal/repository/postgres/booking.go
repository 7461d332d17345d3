package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ulasari/RentalGo/internal/domain"
	"github.com/ulasari/RentalGo/internal/repository"
	"github.com/ulasari/RentalGo/pkg/database"
	apperrors "github.com/ulasari/RentalGo/pkg/errors"
)

// BookingRepository implements repository.BookingRepository using PostgreSQL.
type BookingRepository struct {
	pool database.DBTX
}

// NewBookingRepository creates a new PostgreSQL-backed booking repository.
func NewBookingRepository(pool database.DBTX) *BookingRepository {
	return &BookingRepository{pool: pool}
}

const bookingColumns = `id, property_id, user_id, guest_name, guest_email, guest_phone,
		check_in, check_out, guests, total_price, status, payment_status,
		special_requests, cancel_reason, deleted_at, created_at, updated_at`

// Create inserts a new booking into the database.
func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	query := `
		INSERT INTO bookings (id, property_id, user_id, guest_name, guest_email, guest_phone,
			check_in, check_out, guests, total_price, status, payment_status,
			special_requests, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := r.pool.Exec(ctx, query,
		b.ID,
		b.PropertyID,
		b.UserID,
		b.GuestName,
		b.GuestEmail,
		b.GuestPhone,
		b.CheckIn,
		b.CheckOut,
		b.Guests,
		b.TotalPrice,
		b.Status,
		b.PaymentStatus,
		b.SpecialRequests,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}

	return nil
}

// GetByID retrieves a booking by its ID. Soft-deleted rows are not returned.
func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE id = $1 AND deleted_at IS NULL`

	b, err := scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("booking", id)
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}

	return b, nil
}

// List returns bookings matching the filter with the total count.
func (r *BookingRepository) List(ctx context.Context, filter repository.BookingFilter) ([]domain.Booking, int, error) {
	var (
		conditions = []string{"deleted_at IS NULL"}
		args       []any
		argIndex   = 1
	)

	if filter.PropertyID != nil {
		conditions = append(conditions, fmt.Sprintf("property_id = $%d", argIndex))
		args = append(args, *filter.PropertyID)
		argIndex++
	}

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argIndex))
		args = append(args, *filter.UserID)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT `+bookingColumns+`,
		       count(*) OVER() AS total_count
		FROM bookings
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		strings.Join(conditions, " AND "), argIndex, argIndex+1,
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
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	var (
		bookings   []domain.Booking
		totalCount int
	)

	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(
			&b.ID, &b.PropertyID, &b.UserID, &b.GuestName, &b.GuestEmail, &b.GuestPhone,
			&b.CheckIn, &b.CheckOut, &b.Guests, &b.TotalPrice, &b.Status, &b.PaymentStatus,
			&b.SpecialRequests, &b.CancelReason, &b.DeletedAt, &b.CreatedAt, &b.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate booking rows: %w", err)
	}

	if bookings == nil {
		bookings = []domain.Booking{}
	}

	return bookings, totalCount, nil
}

// UpdateStatus sets the booking status and optional cancel reason.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id, status, cancelReason string) error {
	query := `
		UPDATE bookings
		SET status = $2, cancel_reason = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	ct, err := r.pool.Exec(ctx, query, id, status, cancelReason)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("booking", id)
	}
	return nil
}

// SoftDelete stamps the booking's deleted_at.
func (r *BookingRepository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE bookings
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("soft delete booking: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("booking", id)
	}
	return nil
}

// CountActiveByProperty counts pending or confirmed bookings for a property.
func (r *BookingRepository) CountActiveByProperty(ctx context.Context, propertyID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM bookings
		WHERE property_id = $1
		  AND status IN ($2, $3)
		  AND deleted_at IS NULL`

	var count int
	err := r.pool.QueryRow(ctx, query, propertyID, domain.BookingStatusPending, domain.BookingStatusConfirmed).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active bookings: %w", err)
	}
	return count, nil
}

func scanBooking(row rowScanner) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(
		&b.ID, &b.PropertyID, &b.UserID, &b.GuestName, &b.GuestEmail, &b.GuestPhone,
		&b.CheckIn, &b.CheckOut, &b.Guests, &b.TotalPrice, &b.Status, &b.PaymentStatus,
		&b.SpecialRequests, &b.CancelReason, &b.DeletedAt, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
