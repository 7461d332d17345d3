package repository

import (
	"context"
	"time"

	"github.com/ulasari/RentalGo/internal/domain"
)

// PropertyFilter defines the filter criteria for searching properties. Nil
// pointers and empty slices mean "no constraint".
type PropertyFilter struct {
	Status          *string
	Types           []string
	MinPrice        *float64
	MaxPrice        *float64
	City            *string
	MinBedrooms     *int
	MinBathrooms    *float64
	MinArea         *float64
	Verified        *bool
	Featured        *bool
	HostID          *string
	Amenities       []string
	Pets            []string
	Query           *string
	SortBy          string
	SortDesc        bool
	IncludeArchived bool
	Page            int
	PerPage         int
}

// PropertySatellites carries the optional satellite-table replacements for a
// property update. A nil slice pointer leaves the corresponding table alone;
// a non-nil pointer (even to an empty slice) replaces its full contents.
type PropertySatellites struct {
	Amenities    *[]string
	Pets         *[]string
	PrimaryImage *domain.PropertyImage
}

// PropertyRepository defines the interface for property persistence operations.
type PropertyRepository interface {
	// Create inserts the property row, amenities, pets, and image rows in a
	// single transaction.
	Create(ctx context.Context, p *domain.Property, amenities, pets []string, images []domain.PropertyImage) error

	// GetByID retrieves a property with its satellite data.
	GetByID(ctx context.Context, id string) (*domain.PropertyDetail, error)

	// IncrementViews atomically bumps the property's view counter.
	IncrementViews(ctx context.Context, id string) error

	// List returns properties matching the filter along with the total count.
	List(ctx context.Context, filter PropertyFilter) ([]domain.PropertyDetail, int, error)

	// Update modifies the property row and replaces the requested satellite
	// tables in a single transaction.
	Update(ctx context.Context, p *domain.Property, sat PropertySatellites) error

	// Delete removes the property; satellite rows cascade.
	Delete(ctx context.Context, id string) error

	// Archive soft-deletes the property, forcing status to unavailable.
	Archive(ctx context.Context, id, reason string, at time.Time) error

	// Restore clears the archive flag and sets the given status.
	Restore(ctx context.Context, id, status string) error

	// ListImages returns all image rows for a property.
	ListImages(ctx context.Context, propertyID string) ([]domain.PropertyImage, error)
}

// BookingFilter defines the filter criteria for listing bookings.
type BookingFilter struct {
	PropertyID *string
	UserID     *string
	Status     *string
	Page       int
	PerPage    int
}

// BookingRepository defines the interface for booking persistence operations.
type BookingRepository interface {
	// Create inserts a new booking into the store.
	Create(ctx context.Context, b *domain.Booking) error

	// GetByID retrieves a booking by its unique identifier. Soft-deleted
	// bookings are not returned.
	GetByID(ctx context.Context, id string) (*domain.Booking, error)

	// List returns bookings matching the filter along with the total count.
	// Soft-deleted rows are excluded.
	List(ctx context.Context, filter BookingFilter) ([]domain.Booking, int, error)

	// UpdateStatus sets the booking status and optional cancel reason.
	UpdateStatus(ctx context.Context, id, status, cancelReason string) error

	// SoftDelete stamps the booking's deleted_at.
	SoftDelete(ctx context.Context, id string) error

	// CountActiveByProperty counts pending or confirmed bookings for a
	// property. Used to block property deletion.
	CountActiveByProperty(ctx context.Context, propertyID string) (int, error)
}

// PaymentRepository defines the interface for payment persistence operations.
type PaymentRepository interface {
	// Attach records a payment against a booking in a single transaction:
	// when newBooking is non-nil it is materialized first, then the payment
	// row is inserted, then the booking moves to confirmed/paid.
	Attach(ctx context.Context, p *domain.Payment, newBooking *domain.Booking) error

	// GetByID retrieves a payment by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByBookingID retrieves the latest payment for a booking.
	GetByBookingID(ctx context.Context, bookingID string) (*domain.Payment, error)

	// Refund flips a completed payment to refunded and cancels its booking
	// atomically. A payment not currently completed yields ErrNotFound and
	// leaves the booking untouched.
	Refund(ctx context.Context, paymentID string) error
}

// ReviewRepository defines the interface for review persistence operations.
// Every mutation recomputes the property's denormalized average_rating in the
// same transaction.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error

	GetByID(ctx context.Context, id string) (*domain.Review, error)

	Update(ctx context.Context, review *domain.Review) error

	Delete(ctx context.Context, id string) error

	// ListByProperty returns paginated reviews for a property with the total count.
	ListByProperty(ctx context.Context, propertyID string, page, perPage int) ([]domain.Review, int, error)

	// Like atomically increments the review's like counter.
	Like(ctx context.Context, id string) error

	// Dislike atomically increments the review's dislike counter.
	Dislike(ctx context.Context, id string) error

	// GetSummary returns the average rating and review count for a property.
	GetSummary(ctx context.Context, propertyID string) (*domain.ReviewSummary, error)

	// RecalculateAll rewrites average_rating for every property and returns
	// the number of properties touched.
	RecalculateAll(ctx context.Context) (int, error)
}

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Ensure upserts the user row, provisioning identities delivered by the
	// auth service so foreign keys on bookings and favorites hold.
	Ensure(ctx context.Context, u *domain.User) error

	GetByID(ctx context.Context, id string) (*domain.User, error)

	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// FavoriteRepository defines the interface for favorite persistence operations.
type FavoriteRepository interface {
	// Add saves a property for a user. Adding an existing favorite is a no-op.
	Add(ctx context.Context, userID, propertyID string) error

	// Remove deletes a saved property for a user.
	Remove(ctx context.Context, userID, propertyID string) error

	// ListByUser returns the user's saved properties with the total count.
	ListByUser(ctx context.Context, userID string, page, perPage int) ([]domain.Property, int, error)
}
