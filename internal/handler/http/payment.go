package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ulasari/RentalGo/internal/service"
	"github.com/ulasari/RentalGo/pkg/httputil"
	"github.com/ulasari/RentalGo/pkg/middleware"
	"github.com/ulasari/RentalGo/pkg/validator"
)

// PaymentHandler handles HTTP requests for payment endpoints.
type PaymentHandler struct {
	service *service.PaymentService
	logger  *slog.Logger
}

// NewPaymentHandler creates a new payment HTTP handler.
func NewPaymentHandler(svc *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: svc,
		logger:  logger,
	}
}

// AttachPaymentRequest is the JSON request body for recording a payment.
// The optional booking block materializes the booking when the referenced
// id does not exist yet.
type AttachPaymentRequest struct {
	BookingID     string                `json:"booking_id" validate:"required"`
	Amount        float64               `json:"amount" validate:"required,gt=0"`
	Currency      string                `json:"currency" validate:"required,len=3"`
	Method        string                `json:"method" validate:"required,oneof=credit_card debit_card bank_transfer wallet"`
	TransactionID string                `json:"transaction_id"`
	Booking       *CreateBookingRequest `json:"booking"`
}

// AttachPayment handles POST /api/v1/payments
func (h *PaymentHandler) AttachPayment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req AttachPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := &service.AttachPaymentInput{
		BookingID:     req.BookingID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Method:        req.Method,
		TransactionID: req.TransactionID,
	}

	if req.Booking != nil {
		if err := validator.Validate(*req.Booking); err != nil {
			httputil.WriteValidationError(w, err)
			return
		}
		checkIn, ok := parseDate(w, req.Booking.CheckIn, "booking.check_in")
		if !ok {
			return
		}
		checkOut, ok := parseDate(w, req.Booking.CheckOut, "booking.check_out")
		if !ok {
			return
		}
		companion := &service.CreateBookingInput{
			PropertyID:      req.Booking.PropertyID,
			GuestName:       req.Booking.GuestName,
			GuestEmail:      req.Booking.GuestEmail,
			GuestPhone:      req.Booking.GuestPhone,
			CheckIn:         checkIn,
			CheckOut:        checkOut,
			Guests:          req.Booking.Guests,
			TotalPrice:      req.Booking.TotalPrice,
			SpecialRequests: req.Booking.SpecialRequests,
		}
		if callerID := middleware.UserIDFromContext(r.Context()); callerID != "" {
			companion.UserID = &callerID
		}
		input.Booking = companion
	}

	payment, err := h.service.AttachPayment(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: payment})
}

// GetPayment handles GET /api/v1/payments/{id}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	payment, err := h.service.GetPayment(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: payment})
}

// GetPaymentByBooking handles GET /api/v1/bookings/{id}/payment
func (h *PaymentHandler) GetPaymentByBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	payment, err := h.service.GetPaymentByBooking(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: payment})
}

// RefundPayment handles POST /api/v1/payments/{id}/refund
func (h *PaymentHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	payment, err := h.service.RefundPayment(
		r.Context(),
		middleware.UserIDFromContext(r.Context()),
		middleware.RoleFromContext(r.Context()),
		id.String(),
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: payment})
}
