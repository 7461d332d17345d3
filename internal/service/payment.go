package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ulasari/RentalGo/internal/domain"
	"github.com/ulasari/RentalGo/internal/event"
	"github.com/ulasari/RentalGo/internal/repository"
	apperrors "github.com/ulasari/RentalGo/pkg/errors"
)

// PaymentService implements the business logic for payment operations.
type PaymentService struct {
	repo     repository.PaymentRepository
	bookings repository.BookingRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewPaymentService creates a new payment service.
func NewPaymentService(
	repo repository.PaymentRepository,
	bookings repository.BookingRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		repo:     repo,
		bookings: bookings,
		producer: producer,
		logger:   logger,
	}
}

// AttachPaymentInput holds the parameters for recording a payment. Booking
// carries the companion fields used to materialize the booking when the
// referenced id does not exist yet.
type AttachPaymentInput struct {
	BookingID     string
	Amount        float64
	Currency      string
	Method        string
	TransactionID string
	Booking       *CreateBookingInput
}

// AttachPayment records a completed payment against a booking and confirms
// it. When the booking id is unknown and companion fields are present, a
// minimal booking row is materialized in the same transaction.
func (s *PaymentService) AttachPayment(ctx context.Context, input *AttachPaymentInput) (*domain.Payment, error) {
	if input.BookingID == "" {
		return nil, apperrors.ValidationField("booking_id", "is required")
	}
	if input.Amount <= 0 {
		return nil, apperrors.ValidationField("amount", "must be greater than zero")
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if len(currency) != 3 {
		return nil, apperrors.ValidationField("currency", "must be a 3-letter ISO code")
	}
	if !domain.IsValidPaymentMethod(input.Method) {
		return nil, apperrors.ValidationField("method", fmt.Sprintf("must be one of %v", domain.ValidPaymentMethods()))
	}

	var newBooking *domain.Booking
	booking, err := s.bookings.GetByID(ctx, input.BookingID)
	switch {
	case err == nil:
		if booking.Status == domain.BookingStatusCancelled || booking.Status == domain.BookingStatusCompleted {
			return nil, apperrors.Conflict(fmt.Sprintf("booking is %s and cannot be paid", booking.Status))
		}
	case errors.Is(err, apperrors.ErrNotFound):
		if input.Booking == nil {
			return nil, apperrors.NotFound("booking", input.BookingID)
		}
		if err := input.Booking.validate(); err != nil {
			return nil, err
		}
		newBooking = input.Booking.newBooking()
		newBooking.ID = input.BookingID
	default:
		return nil, fmt.Errorf("get booking for payment: %w", err)
	}

	now := time.Now().UTC()
	payment := &domain.Payment{
		ID:            uuid.New().String(),
		BookingID:     input.BookingID,
		Amount:        input.Amount,
		Currency:      currency,
		Method:        input.Method,
		Status:        domain.PaymentStatusCompleted,
		TransactionID: input.TransactionID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Attach(ctx, payment, newBooking); err != nil {
		return nil, fmt.Errorf("attach payment: %w", err)
	}

	if err := s.producer.PublishPaymentCompleted(ctx, payment); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payment.completed event",
			slog.String("payment_id", payment.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "payment recorded",
		slog.String("payment_id", payment.ID),
		slog.String("booking_id", payment.BookingID),
		slog.Float64("amount", payment.Amount),
		slog.Bool("booking_materialized", newBooking != nil),
	)
	return payment, nil
}

// GetPayment retrieves a payment by its ID.
func (s *PaymentService) GetPayment(ctx context.Context, id string) (*domain.Payment, error) {
	payment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get payment by id: %w", err)
	}
	return payment, nil
}

// GetPaymentByBooking retrieves the latest payment for a booking.
func (s *PaymentService) GetPaymentByBooking(ctx context.Context, bookingID string) (*domain.Payment, error) {
	payment, err := s.repo.GetByBookingID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("get payment by booking id: %w", err)
	}
	return payment, nil
}

// RefundPayment flips a completed payment to refunded and cancels its
// booking. Only the booking owner or an admin may refund.
func (s *PaymentService) RefundPayment(ctx context.Context, callerID, callerRole, paymentID string) (*domain.Payment, error) {
	payment, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("get payment for refund: %w", err)
	}

	booking, err := s.bookings.GetByID(ctx, payment.BookingID)
	if err != nil {
		return nil, fmt.Errorf("get booking for refund: %w", err)
	}
	if err := Allow(callerID, callerRole, booking.UserID); err != nil {
		return nil, err
	}

	if err := s.repo.Refund(ctx, paymentID); err != nil {
		return nil, fmt.Errorf("refund payment: %w", err)
	}

	payment.Status = domain.PaymentStatusRefunded
	payment.UpdatedAt = time.Now().UTC()

	if err := s.producer.PublishPaymentRefunded(ctx, payment); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish payment.refunded event",
			slog.String("payment_id", payment.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "payment refunded",
		slog.String("payment_id", payment.ID),
		slog.String("booking_id", payment.BookingID),
	)
	return payment, nil
}
