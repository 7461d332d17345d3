package domain

import (
	"time"
)

// Booking status constants.
const (
	BookingStatusPending   = "pending"
	BookingStatusConfirmed = "confirmed"
	BookingStatusCompleted = "completed"
	BookingStatusCancelled = "cancelled"
)

// Booking payment status constants.
const (
	BookingPaymentUnpaid   = "unpaid"
	BookingPaymentPaid     = "paid"
	BookingPaymentRefunded = "refunded"
)

// MaxBookingSpanMonths bounds the check-in/check-out window.
const MaxBookingSpanMonths = 36

// Booking represents a reservation against a property. UserID is nil for
// bookings made without an account; the guest contact fields always identify
// the booker.
type Booking struct {
	ID              string     `json:"id"`
	PropertyID      string     `json:"property_id"`
	UserID          *string    `json:"user_id,omitempty"`
	GuestName       string     `json:"guest_name"`
	GuestEmail      string     `json:"guest_email"`
	GuestPhone      string     `json:"guest_phone,omitempty"`
	CheckIn         time.Time  `json:"check_in"`
	CheckOut        time.Time  `json:"check_out"`
	Guests          int        `json:"guests"`
	TotalPrice      float64    `json:"total_price"`
	Status          string     `json:"status"`
	PaymentStatus   string     `json:"payment_status"`
	SpecialRequests string     `json:"special_requests,omitempty"`
	CancelReason    string     `json:"cancel_reason,omitempty"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ValidBookingStatuses returns the set of valid booking statuses.
func ValidBookingStatuses() []string {
	return []string{
		BookingStatusPending,
		BookingStatusConfirmed,
		BookingStatusCompleted,
		BookingStatusCancelled,
	}
}

// IsValidBookingStatus checks whether the given status is valid.
func IsValidBookingStatus(status string) bool {
	for _, s := range ValidBookingStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the booking status state machine. Completed and
// cancelled are terminal; backward edges are not allowed.
func AllowedTransitions() map[string][]string {
	return map[string][]string{
		BookingStatusPending:   {BookingStatusConfirmed, BookingStatusCancelled},
		BookingStatusConfirmed: {BookingStatusCompleted, BookingStatusCancelled},
		BookingStatusCompleted: {},
		BookingStatusCancelled: {},
	}
}

// CanTransitionTo reports whether the booking may move to the target status.
func (b *Booking) CanTransitionTo(target string) bool {
	for _, allowed := range AllowedTransitions()[b.Status] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the booking is in a terminal status.
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusCompleted || b.Status == BookingStatusCancelled
}
