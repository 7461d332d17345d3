package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ulasari/RentalGo/internal/domain"
	"github.com/ulasari/RentalGo/pkg/database"
	apperrors "github.com/ulasari/RentalGo/pkg/errors"
)

// PaymentRepository implements repository.PaymentRepository using PostgreSQL.
type PaymentRepository struct {
	pool database.DBTX
}

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(pool database.DBTX) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const paymentColumns = `id, booking_id, amount, currency, method, status, transaction_id, created_at, updated_at`

// Attach records a payment against a booking atomically. When newBooking is
// non-nil the booking row is materialized first. The booking always ends up
// confirmed and marked paid.
func (r *PaymentRepository) Attach(ctx context.Context, p *domain.Payment, newBooking *domain.Booking) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if newBooking != nil {
		bookingQuery := `
			INSERT INTO bookings (id, property_id, user_id, guest_name, guest_email, guest_phone,
				check_in, check_out, guests, total_price, status, payment_status,
				special_requests, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

		_, err = tx.Exec(ctx, bookingQuery,
			newBooking.ID,
			newBooking.PropertyID,
			newBooking.UserID,
			newBooking.GuestName,
			newBooking.GuestEmail,
			newBooking.GuestPhone,
			newBooking.CheckIn,
			newBooking.CheckOut,
			newBooking.Guests,
			newBooking.TotalPrice,
			newBooking.Status,
			newBooking.PaymentStatus,
			newBooking.SpecialRequests,
			newBooking.CreatedAt,
			newBooking.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("materialize booking: %w", err)
		}
	}

	paymentQuery := `
		INSERT INTO payments (id, booking_id, amount, currency, method, status, transaction_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = tx.Exec(ctx, paymentQuery,
		p.ID,
		p.BookingID,
		p.Amount,
		p.Currency,
		p.Method,
		p.Status,
		p.TransactionID,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}

	confirmQuery := `
		UPDATE bookings
		SET status = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	ct, err := tx.Exec(ctx, confirmQuery, p.BookingID, domain.BookingStatusConfirmed, domain.BookingPaymentPaid)
	if err != nil {
		return fmt.Errorf("confirm booking: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("booking", p.BookingID)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// GetByID retrieves a payment by its ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE id = $1`

	p, err := scanPayment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("payment", id)
		}
		return nil, fmt.Errorf("get payment: %w", err)
	}

	return p, nil
}

// GetByBookingID retrieves the latest payment for a booking.
func (r *PaymentRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE booking_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	p, err := scanPayment(r.pool.QueryRow(ctx, query, bookingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("payment for booking", bookingID)
		}
		return nil, fmt.Errorf("get payment by booking: %w", err)
	}

	return p, nil
}

// Refund flips a completed payment to refunded and cancels its booking in one
// transaction. A payment not currently completed leaves everything untouched.
func (r *PaymentRepository) Refund(ctx context.Context, paymentID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	refundQuery := `
		UPDATE payments
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
		RETURNING booking_id`

	var bookingID string
	err = tx.QueryRow(ctx, refundQuery, paymentID, domain.PaymentStatusRefunded, domain.PaymentStatusCompleted).Scan(&bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("refundable payment", paymentID)
		}
		return fmt.Errorf("refund payment: %w", err)
	}

	cancelQuery := `
		UPDATE bookings
		SET status = $2, payment_status = $3, updated_at = NOW()
		WHERE id = $1`

	_, err = tx.Exec(ctx, cancelQuery, bookingID, domain.BookingStatusCancelled, domain.BookingPaymentRefunded)
	if err != nil {
		return fmt.Errorf("cancel refunded booking: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID, &p.BookingID, &p.Amount, &p.Currency, &p.Method, &p.Status,
		&p.TransactionID, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
