package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ulasari/RentalGo/internal/domain"
	"github.com/ulasari/RentalGo/internal/event"
	"github.com/ulasari/RentalGo/internal/repository"
	apperrors "github.com/ulasari/RentalGo/pkg/errors"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9][0-9\s().-]{5,19}$`)
)

const maxSpecialRequestsLen = 500

// BookingService implements the business logic for booking operations.
type BookingService struct {
	repo       repository.BookingRepository
	properties repository.PropertyRepository
	producer   *event.Producer
	logger     *slog.Logger
}

// NewBookingService creates a new booking service.
func NewBookingService(
	repo repository.BookingRepository,
	properties repository.PropertyRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *BookingService {
	return &BookingService{
		repo:       repo,
		properties: properties,
		producer:   producer,
		logger:     logger,
	}
}

// CreateBookingInput holds the parameters for creating a booking.
type CreateBookingInput struct {
	PropertyID      string
	UserID          *string
	GuestName       string
	GuestEmail      string
	GuestPhone      string
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	TotalPrice      float64
	SpecialRequests string
}

// validate checks the booking payload against the acceptance rules.
func (in *CreateBookingInput) validate() error {
	if in.PropertyID == "" {
		return apperrors.ValidationField("property_id", "is required")
	}
	if len(strings.TrimSpace(in.GuestName)) < 3 {
		return apperrors.ValidationField("guest_name", "must be at least 3 characters")
	}
	if !emailPattern.MatchString(in.GuestEmail) {
		return apperrors.ValidationField("guest_email", "must be a valid email address")
	}
	if in.GuestPhone != "" && !phonePattern.MatchString(in.GuestPhone) {
		return apperrors.ValidationField("guest_phone", "must be a valid phone number")
	}
	if in.CheckIn.IsZero() || in.CheckOut.IsZero() {
		return apperrors.Validation("check_in and check_out are required")
	}
	if !in.CheckOut.After(in.CheckIn) {
		return apperrors.ValidationField("check_out", "must be after check_in")
	}
	if in.CheckOut.After(in.CheckIn.AddDate(0, domain.MaxBookingSpanMonths, 0)) {
		return apperrors.ValidationField("check_out", fmt.Sprintf("stay must not exceed %d months", domain.MaxBookingSpanMonths))
	}
	if in.Guests < 1 {
		return apperrors.ValidationField("guests", "must be at least 1")
	}
	if in.TotalPrice <= 0 {
		return apperrors.ValidationField("total_price", "must be greater than zero")
	}
	if len(in.SpecialRequests) > maxSpecialRequestsLen {
		return apperrors.ValidationField("special_requests", fmt.Sprintf("must not exceed %d characters", maxSpecialRequestsLen))
	}
	return nil
}

// newBooking builds a pending, unpaid booking from the validated input.
func (in *CreateBookingInput) newBooking() *domain.Booking {
	now := time.Now().UTC()
	return &domain.Booking{
		ID:              uuid.New().String(),
		PropertyID:      in.PropertyID,
		UserID:          in.UserID,
		GuestName:       strings.TrimSpace(in.GuestName),
		GuestEmail:      in.GuestEmail,
		GuestPhone:      in.GuestPhone,
		CheckIn:         in.CheckIn,
		CheckOut:        in.CheckOut,
		Guests:          in.Guests,
		TotalPrice:      in.TotalPrice,
		Status:          domain.BookingStatusPending,
		PaymentStatus:   domain.BookingPaymentUnpaid,
		SpecialRequests: in.SpecialRequests,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// CreateBooking validates the payload and stores a pending booking.
func (s *BookingService) CreateBooking(ctx context.Context, input *CreateBookingInput) (*domain.Booking, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	booking := input.newBooking()
	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	if err := s.producer.PublishBookingCreated(ctx, booking); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish booking.created event",
			slog.String("booking_id", booking.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "booking created",
		slog.String("booking_id", booking.ID),
		slog.String("property_id", booking.PropertyID),
	)
	return booking, nil
}

// GetBooking retrieves a booking by its ID.
func (s *BookingService) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking by id: %w", err)
	}
	return booking, nil
}

// ListBookings returns bookings matching the filter with the total count.
func (s *BookingService) ListBookings(ctx context.Context, filter repository.BookingFilter) ([]domain.Booking, int, error) {
	if filter.Status != nil && !domain.IsValidBookingStatus(*filter.Status) {
		return nil, 0, apperrors.ValidationField("status", fmt.Sprintf("must be one of %v", domain.ValidBookingStatuses()))
	}
	filter.Page, filter.PerPage = clampPagination(filter.Page, filter.PerPage)

	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, total, nil
}

// TransitionBooking moves a booking to a new status. Only an admin or the
// host of the booked property may call it; the transition must be a forward
// edge of the lifecycle.
func (s *BookingService) TransitionBooking(ctx context.Context, callerID, callerRole, id, newStatus, reason string) (*domain.Booking, error) {
	if !domain.IsValidBookingStatus(newStatus) {
		return nil, apperrors.ValidationField("status", fmt.Sprintf("must be one of %v", domain.ValidBookingStatuses()))
	}

	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking for transition: %w", err)
	}

	property, err := s.properties.GetByID(ctx, booking.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("get booked property: %w", err)
	}
	if err := Allow(callerID, callerRole, property.HostID); err != nil {
		return nil, err
	}

	return s.applyTransition(ctx, booking, newStatus, reason)
}

// CancelBooking is the self-service cancellation path. The booking's user or
// the holder of its guest email may cancel; no host/admin role is required.
func (s *BookingService) CancelBooking(ctx context.Context, callerID, callerEmail, id, reason string) (*domain.Booking, error) {
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking for cancel: %w", err)
	}

	owns := booking.UserID != nil && callerID != "" && *booking.UserID == callerID
	holdsEmail := callerEmail != "" && strings.EqualFold(booking.GuestEmail, callerEmail)
	if !owns && !holdsEmail {
		return nil, apperrors.Forbidden("caller does not own this booking")
	}

	return s.applyTransition(ctx, booking, domain.BookingStatusCancelled, reason)
}

// DeleteBooking soft-deletes a booking. Admin only.
func (s *BookingService) DeleteBooking(ctx context.Context, callerID, callerRole, id string) error {
	if callerRole != domain.RoleAdmin {
		return apperrors.Forbidden("only admins may delete bookings")
	}

	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("get booking for delete: %w", err)
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}

	s.logger.InfoContext(ctx, "booking deleted",
		slog.String("booking_id", id),
		slog.String("caller_id", callerID),
	)
	return nil
}

func (s *BookingService) applyTransition(ctx context.Context, booking *domain.Booking, newStatus, reason string) (*domain.Booking, error) {
	if !booking.CanTransitionTo(newStatus) {
		return nil, apperrors.Validation(fmt.Sprintf("cannot transition booking from %s to %s", booking.Status, newStatus))
	}

	if err := s.repo.UpdateStatus(ctx, booking.ID, newStatus, reason); err != nil {
		return nil, fmt.Errorf("update booking status: %w", err)
	}

	oldStatus := booking.Status
	booking.Status = newStatus
	booking.CancelReason = reason
	booking.UpdatedAt = time.Now().UTC()

	if err := s.producer.PublishBookingStatusChanged(ctx, booking, oldStatus); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish booking.status_changed event",
			slog.String("booking_id", booking.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "booking status changed",
		slog.String("booking_id", booking.ID),
		slog.String("from", oldStatus),
		slog.String("to", newStatus),
	)
	return booking, nil
}
