package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ulasari/RentalGo/internal/domain"
	apperrors "github.com/ulasari/RentalGo/pkg/errors"
)

func newTestPaymentHandler(repo *mockPaymentRepository, bookings *mockBookingRepository) *PaymentHandler {
	return NewPaymentHandler(newTestPaymentService(repo, bookings), testLogger())
}

// setupPaymentRouter creates a chi router matching the production route layout.
func setupPaymentRouter(handler *PaymentHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Post("/", handler.AttachPayment)
		r.Get("/{id}", handler.GetPayment)
		r.Post("/{id}/refund", handler.RefundPayment)
	})
	r.Get("/api/v1/bookings/{id}/payment", handler.GetPaymentByBooking)
	return r
}

// samplePayment returns a completed payment against the given booking.
func samplePayment(bookingID string) *domain.Payment {
	now := time.Now().UTC()
	return &domain.Payment{
		ID:            uuid.New().String(),
		BookingID:     bookingID,
		Amount:        450,
		Currency:      "EUR",
		Method:        domain.PaymentMethodCreditCard,
		Status:        domain.PaymentStatusCompleted,
		TransactionID: "txn_123",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func validPaymentJSON(bookingID string) []byte {
	body := AttachPaymentRequest{
		BookingID: bookingID,
		Amount:    450,
		Currency:  "EUR",
		Method:    "credit_card",
	}
	b, _ := json.Marshal(body)
	return b
}

// ============================================================================
// POST /api/v1/payments - AttachPayment
// ============================================================================

func TestAttachPayment_ExistingBooking(t *testing.T) {
	repo := new(mockPaymentRepository)
	bookings := new(mockBookingRepository)
	router := setupPaymentRouter(newTestPaymentHandler(repo, bookings))

	booking := sampleBooking(uuid.New().String())
	bookings.On("GetByID", mock.Anything, booking.ID).Return(booking, nil)
	repo.On("Attach", mock.Anything, mock.MatchedBy(func(p *domain.Payment) bool {
		return p.BookingID == booking.ID && p.Status == domain.PaymentStatusCompleted
	}), (*domain.Booking)(nil)).Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(validPaymentJSON(booking.ID)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeResp(t, rec)
	assert.Nil(t, resp.Error)
	repo.AssertExpectations(t)
}

func TestAttachPayment_MaterializesBooking(t *testing.T) {
	repo := new(mockPaymentRepository)
	bookings := new(mockBookingRepository)
	router := setupPaymentRouter(newTestPaymentHandler(repo, bookings))

	bookingID := uuid.New().String()
	bookings.On("GetByID", mock.Anything, bookingID).Return(nil, apperrors.NotFound("booking", bookingID))
	repo.On("Attach", mock.Anything, mock.AnythingOfType("*domain.Payment"),
		mock.MatchedBy(func(b *domain.Booking) bool {
			return b != nil && b.ID == bookingID && b.Status == domain.BookingStatusPending
		})).Return(nil)

	body := AttachPaymentRequest{
		BookingID: bookingID,
		Amount:    450,
		Currency:  "EUR",
		Method:    "credit_card",
		Booking: &CreateBookingRequest{
			PropertyID: uuid.New().String(),
			GuestName:  "Maria Santos",
			GuestEmail: "maria@example.com",
			CheckIn:    "2026-09-10",
			CheckOut:   "2026-09-14",
			Guests:     2,
			TotalPrice: 450,
		},
	}
	b, _ := json.Marshal(body)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	repo.AssertExpectations(t)
}

func TestAttachPayment_UnknownBookingWithoutCompanionFields(t *testing.T) {
	repo := new(mockPaymentRepository)
	bookings := new(mockBookingRepository)
	router := setupPaymentRouter(newTestPaymentHandler(repo, bookings))

	bookingID := uuid.New().String()
	bookings.On("GetByID", mock.Anything, bookingID).Return(nil, apperrors.NotFound("booking", bookingID))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(validPaymentJSON(bookingID)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	repo.AssertNotCalled(t, "Attach", mock.Anything, mock.Anything, mock.Anything)
}

func TestAttachPayment_CancelledBookingConflict(t *testing.T) {
	repo := new(mockPaymentRepository)
	bookings := new(mockBookingRepository)
	router := setupPaymentRouter(newTestPaymentHandler(repo, bookings))

	booking := sampleBooking(uuid.New().String())
	booking.Status = domain.BookingStatusCancelled
	bookings.On("GetByID", mock.Anything, booking.ID).Return(booking, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(validPaymentJSON(booking.ID)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResp(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONFLICT", resp.Error.Code)
}

func TestAttachPayment_ValidationError_UnknownMethod(t *testing.T) {
	router := setupPaymentRouter(newTestPaymentHandler(new(mockPaymentRepository), new(mockBookingRepository)))

	body, _ := json.Marshal(AttachPaymentRequest{
		BookingID: uuid.New().String(),
		Amount:    450,
		Currency:  "EUR",
		Method:    "barter",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResp(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
}

// ============================================================================
// GET /api/v1/payments/{id} and /api/v1/bookings/{id}/payment
// ============================================================================

func TestGetPayment_Success(t *testing.T) {
	repo := new(mockPaymentRepository)
	router := setupPaymentRouter(newTestPaymentHandler(repo, new(mockBookingRepository)))

	payment := samplePayment(uuid.New().String())
	repo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/"+payment.ID, nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResp(t, rec)
	assert.Nil(t, resp.Error)
	repo.AssertExpectations(t)
}

func TestGetPaymentByBooking_NotFound(t *testing.T) {
	repo := new(mockPaymentRepository)
	router := setupPaymentRouter(newTestPaymentHandler(repo, new(mockBookingRepository)))

	bookingID := uuid.New().String()
	repo.On("GetByBookingID", mock.Anything, bookingID).Return(nil, apperrors.NotFound("payment", bookingID))

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/bookings/%s/payment", bookingID), nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================================================
// POST /api/v1/payments/{id}/refund - RefundPayment
// ============================================================================

func TestRefundPayment_OwnerSuccess(t *testing.T) {
	repo := new(mockPaymentRepository)
	bookings := new(mockBookingRepository)
	router := setupPaymentRouter(newTestPaymentHandler(repo, bookings))

	booking := sampleBooking(uuid.New().String())
	booking.UserID = strPtr("user-1")
	booking.Status = domain.BookingStatusCompleted
	payment := samplePayment(booking.ID)

	repo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil)
	bookings.On("GetByID", mock.Anything, booking.ID).Return(booking, nil)
	repo.On("Refund", mock.Anything, payment.ID).Return(nil)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/payments/%s/refund", payment.ID), nil)
	req = withIdentity(req, "user-1", domain.RoleGuest)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data domain.Payment `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	assert.Equal(t, domain.PaymentStatusRefunded, envelope.Data.Status)
	repo.AssertExpectations(t)
}

func TestRefundPayment_StrangerForbidden(t *testing.T) {
	repo := new(mockPaymentRepository)
	bookings := new(mockBookingRepository)
	router := setupPaymentRouter(newTestPaymentHandler(repo, bookings))

	booking := sampleBooking(uuid.New().String())
	booking.UserID = strPtr("user-1")
	payment := samplePayment(booking.ID)

	repo.On("GetByID", mock.Anything, payment.ID).Return(payment, nil)
	bookings.On("GetByID", mock.Anything, booking.ID).Return(booking, nil)

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/v1/payments/%s/refund", payment.ID), nil)
	req = withIdentity(req, "stranger", domain.RoleGuest)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	repo.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
}
