package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ulasari/RentalGo/internal/service"
	"github.com/ulasari/RentalGo/pkg/httputil"
	"github.com/ulasari/RentalGo/pkg/middleware"
	"github.com/ulasari/RentalGo/pkg/pagination"
)

// FavoriteHandler handles HTTP requests for saved-property endpoints.
type FavoriteHandler struct {
	service *service.FavoriteService
	logger  *slog.Logger
}

// NewFavoriteHandler creates a new favorite HTTP handler.
func NewFavoriteHandler(svc *service.FavoriteService, logger *slog.Logger) *FavoriteHandler {
	return &FavoriteHandler{
		service: svc,
		logger:  logger,
	}
}

// AddFavorite handles PUT /api/v1/favorites/{propertyID}
func (h *FavoriteHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := httputil.ParseUUID(w, chi.URLParam(r, "propertyID"))
	if !ok {
		return
	}

	err := h.service.AddFavorite(r.Context(), middleware.UserIDFromContext(r.Context()), propertyID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"property_id": propertyID.String(), "status": "saved"}})
}

// RemoveFavorite handles DELETE /api/v1/favorites/{propertyID}
func (h *FavoriteHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	propertyID, ok := httputil.ParseUUID(w, chi.URLParam(r, "propertyID"))
	if !ok {
		return
	}

	err := h.service.RemoveFavorite(r.Context(), middleware.UserIDFromContext(r.Context()), propertyID.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"property_id": propertyID.String(), "status": "removed"}})
}

// ListFavorites handles GET /api/v1/favorites
func (h *FavoriteHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	properties, total, err := h.service.ListFavorites(r.Context(), middleware.UserIDFromContext(r.Context()), params.Page, params.PerPage)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(properties, total, params))
}
