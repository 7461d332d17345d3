package postgres

import (
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/ulasari/RentalGo/internal/domain"
	"github.com/ulasari/RentalGo/pkg/database"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return mock
}

func strPtr(s string) *string     { return &s }
func intPtr(n int) *int           { return &n }
func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// ─── Property column definitions ────────────────────────────────────────────

var propertyDetailColumns = []string{
	"id", "host_id", "title", "description", "address", "city", "state", "zip_code",
	"price", "bedrooms", "bathrooms", "area", "property_type", "status",
	"is_new", "is_featured", "is_verified", "parking_spaces", "average_rating",
	"views", "latitude", "longitude", "archived", "archived_reason", "archived_at",
	"created_at", "updated_at",
	"amenities", "pets", "primary_image", "images",
	"host_name", "host_rating", "host_review_count",
}

var propertyDetailColumnsWithCount = append(append([]string{}, propertyDetailColumns...), "total_count")

func sampleProperty() domain.Property {
	return domain.Property{
		ID:            "11111111-1111-1111-1111-111111111111",
		HostID:        strPtr("22222222-2222-2222-2222-222222222222"),
		Title:         "Sunny loft near the river",
		Description:   "Bright two-bedroom loft",
		Address:       "12 Quay Street",
		City:          "Porto",
		State:         "Porto",
		ZipCode:       "4000-123",
		Price:         120.50,
		Bedrooms:      intPtr(2),
		Bathrooms:     floatPtr(1.5),
		Area:          floatPtr(85),
		PropertyType:  domain.PropertyTypeApartment,
		Status:        domain.PropertyStatusForRent,
		IsVerified:    true,
		ParkingSpaces: 1,
		AverageRating: 4.5,
		Views:         42,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func propertyDetailRow(p domain.Property, hostName *string) []any {
	return []any{
		p.ID, p.HostID, p.Title, p.Description, p.Address, p.City, p.State, p.ZipCode,
		p.Price, p.Bedrooms, p.Bathrooms, p.Area, p.PropertyType, p.Status,
		p.IsNew, p.IsFeatured, p.IsVerified, p.ParkingSpaces, p.AverageRating,
		p.Views, p.Latitude, p.Longitude, p.Archived, p.ArchivedReason, p.ArchivedAt,
		p.CreatedAt, p.UpdatedAt,
		[]string{"wifi", "kitchen"}, []string{"cats"}, strPtr("https://cdn.example.com/primary.jpg"), []string{"https://cdn.example.com/a.jpg"},
		hostName, 4.2, 7,
	}
}

// ─── Booking column definitions ─────────────────────────────────────────────

var bookingTestColumns = []string{
	"id", "property_id", "user_id", "guest_name", "guest_email", "guest_phone",
	"check_in", "check_out", "guests", "total_price", "status", "payment_status",
	"special_requests", "cancel_reason", "deleted_at", "created_at", "updated_at",
}

var bookingTestColumnsWithCount = append(append([]string{}, bookingTestColumns...), "total_count")

func sampleBooking() domain.Booking {
	return domain.Booking{
		ID:            "33333333-3333-3333-3333-333333333333",
		PropertyID:    "11111111-1111-1111-1111-111111111111",
		UserID:        strPtr("44444444-4444-4444-4444-444444444444"),
		GuestName:     "Maria Silva",
		GuestEmail:    "maria@example.com",
		GuestPhone:    "+351912345678",
		CheckIn:       time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:      time.Date(2026, 4, 8, 0, 0, 0, 0, time.UTC),
		Guests:        2,
		TotalPrice:    843.50,
		Status:        domain.BookingStatusPending,
		PaymentStatus: domain.BookingPaymentUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func bookingRow(b domain.Booking) []any {
	return []any{
		b.ID, b.PropertyID, b.UserID, b.GuestName, b.GuestEmail, b.GuestPhone,
		b.CheckIn, b.CheckOut, b.Guests, b.TotalPrice, b.Status, b.PaymentStatus,
		b.SpecialRequests, b.CancelReason, b.DeletedAt, b.CreatedAt, b.UpdatedAt,
	}
}

// ─── Payment column definitions ─────────────────────────────────────────────

var paymentTestColumns = []string{
	"id", "booking_id", "amount", "currency", "method", "status",
	"transaction_id", "created_at", "updated_at",
}

func samplePayment() domain.Payment {
	return domain.Payment{
		ID:            "55555555-5555-5555-5555-555555555555",
		BookingID:     "33333333-3333-3333-3333-333333333333",
		Amount:        843.50,
		Currency:      "EUR",
		Method:        domain.PaymentMethodCreditCard,
		Status:        domain.PaymentStatusCompleted,
		TransactionID: "txn_98765",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func paymentRow(p domain.Payment) []any {
	return []any{
		p.ID, p.BookingID, p.Amount, p.Currency, p.Method, p.Status,
		p.TransactionID, p.CreatedAt, p.UpdatedAt,
	}
}

// ─── Review column definitions ──────────────────────────────────────────────

var reviewTestColumns = []string{
	"id", "property_id", "booking_id", "reviewer_id", "rating", "comment",
	"likes", "dislikes", "created_at", "updated_at",
}

var reviewTestColumnsWithCount = append(append([]string{}, reviewTestColumns...), "total_count")

func sampleReview() domain.Review {
	return domain.Review{
		ID:         "66666666-6666-6666-6666-666666666666",
		PropertyID: "11111111-1111-1111-1111-111111111111",
		ReviewerID: strPtr("44444444-4444-4444-4444-444444444444"),
		Rating:     5,
		Comment:    "Lovely place, great host.",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func reviewRow(r domain.Review) []any {
	return []any{
		r.ID, r.PropertyID, r.BookingID, r.ReviewerID, r.Rating, r.Comment,
		r.Likes, r.Dislikes, r.CreatedAt, r.UpdatedAt,
	}
}
