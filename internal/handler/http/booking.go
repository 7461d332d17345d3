package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ulasari/RentalGo/internal/domain"
	"github.com/ulasari/RentalGo/internal/repository"
	"github.com/ulasari/RentalGo/internal/service"
	"github.com/ulasari/RentalGo/pkg/httputil"
	"github.com/ulasari/RentalGo/pkg/middleware"
	"github.com/ulasari/RentalGo/pkg/pagination"
	"github.com/ulasari/RentalGo/pkg/validator"
)

// BookingHandler handles HTTP requests for booking endpoints.
type BookingHandler struct {
	service *service.BookingService
	logger  *slog.Logger
}

// NewBookingHandler creates a new booking HTTP handler.
func NewBookingHandler(svc *service.BookingService, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateBookingRequest is the JSON request body for creating a booking.
// Dates are ISO 8601 calendar dates.
type CreateBookingRequest struct {
	PropertyID      string  `json:"property_id" validate:"required,uuid"`
	GuestName       string  `json:"guest_name" validate:"required,min=3,max=200"`
	GuestEmail      string  `json:"guest_email" validate:"required,email"`
	GuestPhone      string  `json:"guest_phone"`
	CheckIn         string  `json:"check_in" validate:"required"`
	CheckOut        string  `json:"check_out" validate:"required"`
	Guests          int     `json:"guests" validate:"required,gte=1"`
	TotalPrice      float64 `json:"total_price" validate:"required,gt=0"`
	SpecialRequests string  `json:"special_requests" validate:"max=500"`
}

// UpdateBookingStatusRequest is the JSON request body for a status transition.
type UpdateBookingStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed completed cancelled"`
	Reason string `json:"reason" validate:"max=500"`
}

// CancelBookingRequest carries the optional cancellation reason.
type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// --- Handlers ---

// CreateBooking handles POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateBookingRequest
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

	checkIn, ok := parseDate(w, req.CheckIn, "check_in")
	if !ok {
		return
	}
	checkOut, ok := parseDate(w, req.CheckOut, "check_out")
	if !ok {
		return
	}

	input := &service.CreateBookingInput{
		PropertyID:      req.PropertyID,
		GuestName:       req.GuestName,
		GuestEmail:      req.GuestEmail,
		GuestPhone:      req.GuestPhone,
		CheckIn:         checkIn,
		CheckOut:        checkOut,
		Guests:          req.Guests,
		TotalPrice:      req.TotalPrice,
		SpecialRequests: req.SpecialRequests,
	}

	if callerID := middleware.UserIDFromContext(r.Context()); callerID != "" {
		input.UserID = &callerID
	}

	booking, err := h.service.CreateBooking(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: booking})
}

// GetBooking handles GET /api/v1/bookings/{id}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	booking, err := h.service.GetBooking(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: booking})
}

// ListBookings handles GET /api/v1/bookings
func (h *BookingHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	q := r.URL.Query()

	filter := repository.BookingFilter{
		Page:    params.Page,
		PerPage: params.PerPage,
	}
	if v := q.Get("property_id"); v != "" {
		filter.PropertyID = &v
	}
	if v := q.Get("user_id"); v != "" {
		filter.UserID = &v
	}
	if v := q.Get("status"); v != "" {
		if !domain.IsValidBookingStatus(v) {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "status must be one of: pending, confirmed, completed, cancelled"},
			})
			return
		}
		filter.Status = &v
	}

	bookings, total, err := h.service.ListBookings(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(bookings, total, params))
}

// UpdateBookingStatus handles PATCH /api/v1/bookings/{id}/status
func (h *BookingHandler) UpdateBookingStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateBookingStatusRequest
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

	booking, err := h.service.TransitionBooking(
		r.Context(),
		middleware.UserIDFromContext(r.Context()),
		middleware.RoleFromContext(r.Context()),
		id.String(),
		req.Status,
		req.Reason,
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: booking})
}

// CancelBooking handles POST /api/v1/bookings/{id}/cancel
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req CancelBookingRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
			})
			return
		}
	}

	booking, err := h.service.CancelBooking(
		r.Context(),
		middleware.UserIDFromContext(r.Context()),
		middleware.EmailFromContext(r.Context()),
		id.String(),
		req.Reason,
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: booking})
}

// DeleteBooking handles DELETE /api/v1/bookings/{id}
func (h *BookingHandler) DeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	err := h.service.DeleteBooking(
		r.Context(),
		middleware.UserIDFromContext(r.Context()),
		middleware.RoleFromContext(r.Context()),
		id.String(),
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"id": id.String(), "status": "deleted"}})
}

// parseDate parses an ISO 8601 calendar date path/body value.
func parseDate(w http.ResponseWriter, raw, name string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: name + " must be an ISO date (YYYY-MM-DD)"},
		})
		return time.Time{}, false
	}
	return t, true
}
