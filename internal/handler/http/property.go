package http

import (
	"encoding/json"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ulasari/RentalGo/internal/domain"
	"github.com/ulasari/RentalGo/internal/repository"
	"github.com/ulasari/RentalGo/internal/service"
	"github.com/ulasari/RentalGo/pkg/httputil"
	"github.com/ulasari/RentalGo/pkg/middleware"
	"github.com/ulasari/RentalGo/pkg/pagination"
	"github.com/ulasari/RentalGo/pkg/validator"
)

// maxImageUploadSize bounds a single multipart property request.
const maxImageUploadSize = 32 << 20

// PropertyHandler handles HTTP requests for property endpoints.
type PropertyHandler struct {
	service *service.PropertyService
	logger  *slog.Logger
}

// NewPropertyHandler creates a new property HTTP handler.
func NewPropertyHandler(svc *service.PropertyService, logger *slog.Logger) *PropertyHandler {
	return &PropertyHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreatePropertyRequest is the JSON payload for creating a property. In a
// multipart request it travels in the "payload" part next to the image files.
type CreatePropertyRequest struct {
	Title         string   `json:"title" validate:"required,min=1,max=500"`
	Description   string   `json:"description"`
	Address       string   `json:"address"`
	City          string   `json:"city"`
	State         string   `json:"state"`
	ZipCode       string   `json:"zip_code"`
	Price         float64  `json:"price" validate:"required,gt=0"`
	Bedrooms      *int     `json:"bedrooms" validate:"omitempty,gte=0"`
	Bathrooms     *float64 `json:"bathrooms" validate:"omitempty,gte=0"`
	Area          *float64 `json:"area" validate:"omitempty,gt=0"`
	PropertyType  string   `json:"property_type" validate:"omitempty,oneof=apartment house condo villa studio townhouse"`
	Status        string   `json:"status" validate:"omitempty,oneof=for-rent for-sale unavailable"`
	IsNew         bool     `json:"is_new"`
	IsFeatured    bool     `json:"is_featured"`
	IsVerified    bool     `json:"is_verified"`
	ParkingSpaces int      `json:"parking_spaces" validate:"gte=0"`
	Latitude      *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude     *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Amenities     []string `json:"amenities"`
	Pets          []string `json:"pets"`
}

// UpdatePropertyRequest is the JSON payload for a partial property update.
type UpdatePropertyRequest struct {
	Title         *string   `json:"title" validate:"omitempty,min=1,max=500"`
	Description   *string   `json:"description"`
	Address       *string   `json:"address"`
	City          *string   `json:"city"`
	State         *string   `json:"state"`
	ZipCode       *string   `json:"zip_code"`
	Price         *float64  `json:"price" validate:"omitempty,gt=0"`
	Bedrooms      *int      `json:"bedrooms" validate:"omitempty,gte=0"`
	Bathrooms     *float64  `json:"bathrooms" validate:"omitempty,gte=0"`
	Area          *float64  `json:"area" validate:"omitempty,gt=0"`
	PropertyType  *string   `json:"property_type" validate:"omitempty,oneof=apartment house condo villa studio townhouse"`
	Status        *string   `json:"status" validate:"omitempty,oneof=for-rent for-sale unavailable"`
	IsNew         *bool     `json:"is_new"`
	IsFeatured    *bool     `json:"is_featured"`
	IsVerified    *bool     `json:"is_verified"`
	ParkingSpaces *int      `json:"parking_spaces" validate:"omitempty,gte=0"`
	Latitude      *float64  `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude     *float64  `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Amenities     *[]string `json:"amenities"`
	Pets          *[]string `json:"pets"`
}

// ArchivePropertyRequest carries the optional archive reason.
type ArchivePropertyRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// RestorePropertyRequest carries the optional status to restore to.
type RestorePropertyRequest struct {
	Status string `json:"status" validate:"omitempty,oneof=for-rent for-sale unavailable"`
}

// --- Handlers ---

// SearchProperties handles GET /api/v1/properties
func (h *PropertyHandler) SearchProperties(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	q := r.URL.Query()

	filter := repository.PropertyFilter{
		Page:    params.Page,
		PerPage: params.PerPage,
	}

	if v := q.Get("status"); v != "" {
		if !domain.IsValidPropertyStatus(v) {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "status must be one of: for-rent, for-sale, unavailable"},
			})
			return
		}
		filter.Status = &v
	}
	if v := q.Get("type"); v != "" {
		types := splitCSV(v)
		for _, t := range types {
			if !domain.IsValidPropertyType(t) {
				httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "unknown property type: " + t},
				})
				return
			}
		}
		filter.Types = types
	}
	if v := q.Get("city"); v != "" {
		filter.City = &v
	}
	if v := q.Get("host_id"); v != "" {
		filter.HostID = &v
	}
	if v := q.Get("q"); v != "" {
		filter.Query = &v
	}
	if v := q.Get("amenities"); v != "" {
		filter.Amenities = splitCSV(v)
	}
	if v := q.Get("pets"); v != "" {
		filter.Pets = splitCSV(v)
	}

	// Numeric and boolean filters coerce leniently: an unparsable value is
	// treated as if the filter were not supplied.
	filter.MinPrice = floatFilter(q.Get("min_price"))
	filter.MaxPrice = floatFilter(q.Get("max_price"))
	filter.MinBathrooms = floatFilter(q.Get("min_bathrooms"))
	filter.MinArea = floatFilter(q.Get("min_area"))
	filter.MinBedrooms = intFilter(q.Get("min_bedrooms"))
	filter.Verified = boolFilter(q.Get("verified"))
	filter.Featured = boolFilter(q.Get("featured"))

	if filter.MinPrice != nil && filter.MaxPrice != nil && *filter.MinPrice > *filter.MaxPrice {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "min_price must not exceed max_price"},
		})
		return
	}

	if v := q.Get("sort"); v != "" {
		if !domain.IsValidSortKey(v) {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "sort must be one of: created_at, views, title, rating, price"},
			})
			return
		}
		filter.SortBy = v
	}
	filter.SortDesc = q.Get("order") != "asc"

	properties, total, err := h.service.SearchProperties(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, pagination.NewResult(properties, total, params))
}

// GetProperty handles GET /api/v1/properties/{id}
func (h *PropertyHandler) GetProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	detail, err := h.service.GetProperty(r.Context(), id.String())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: detail})
}

// CreateProperty handles POST /api/v1/properties. It accepts plain JSON or a
// multipart form with a "payload" JSON part plus "primary_image" and "images"
// file parts.
func (h *PropertyHandler) CreateProperty(w http.ResponseWriter, r *http.Request) {
	var req CreatePropertyRequest
	var primary *service.ImageUpload
	var images []service.ImageUpload

	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxImageUploadSize)
		if err := r.ParseMultipartForm(maxImageUploadSize); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "failed to parse multipart form: " + err.Error()},
			})
			return
		}
		if err := json.Unmarshal([]byte(r.FormValue("payload")), &req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid payload part: " + err.Error()},
			})
			return
		}

		var err error
		primary, images, err = collectImageUploads(r)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()},
			})
			return
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
			})
			return
		}
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := &service.CreatePropertyInput{
		Title:         req.Title,
		Description:   req.Description,
		Address:       req.Address,
		City:          req.City,
		State:         req.State,
		ZipCode:       req.ZipCode,
		Price:         req.Price,
		Bedrooms:      req.Bedrooms,
		Bathrooms:     req.Bathrooms,
		Area:          req.Area,
		PropertyType:  req.PropertyType,
		Status:        req.Status,
		IsNew:         req.IsNew,
		IsFeatured:    req.IsFeatured,
		IsVerified:    req.IsVerified,
		ParkingSpaces: req.ParkingSpaces,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Amenities:     req.Amenities,
		Pets:          req.Pets,
		PrimaryImage:  primary,
		Images:        images,
	}

	if callerID := middleware.UserIDFromContext(r.Context()); callerID != "" {
		input.HostID = &callerID
	}

	detail, err := h.service.CreateProperty(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: detail})
}

// UpdateProperty handles PUT /api/v1/properties/{id}. Multipart requests may
// carry a replacement "primary_image" file part.
func (h *PropertyHandler) UpdateProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdatePropertyRequest
	var primary *service.ImageUpload

	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxImageUploadSize)
		if err := r.ParseMultipartForm(maxImageUploadSize); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "failed to parse multipart form: " + err.Error()},
			})
			return
		}
		if payload := r.FormValue("payload"); payload != "" {
			if err := json.Unmarshal([]byte(payload), &req); err != nil {
				httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid payload part: " + err.Error()},
				})
				return
			}
		}

		var err error
		primary, _, err = collectImageUploads(r)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()},
			})
			return
		}
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
			})
			return
		}
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := &service.UpdatePropertyInput{
		Title:         req.Title,
		Description:   req.Description,
		Address:       req.Address,
		City:          req.City,
		State:         req.State,
		ZipCode:       req.ZipCode,
		Price:         req.Price,
		Bedrooms:      req.Bedrooms,
		Bathrooms:     req.Bathrooms,
		Area:          req.Area,
		PropertyType:  req.PropertyType,
		Status:        req.Status,
		IsNew:         req.IsNew,
		IsFeatured:    req.IsFeatured,
		IsVerified:    req.IsVerified,
		ParkingSpaces: req.ParkingSpaces,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		Amenities:     req.Amenities,
		Pets:          req.Pets,
		PrimaryImage:  primary,
	}

	detail, err := h.service.UpdateProperty(
		r.Context(),
		middleware.UserIDFromContext(r.Context()),
		middleware.RoleFromContext(r.Context()),
		id.String(),
		input,
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: detail})
}

// DeleteProperty handles DELETE /api/v1/properties/{id}
func (h *PropertyHandler) DeleteProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	err := h.service.DeleteProperty(
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

// ArchiveProperty handles POST /api/v1/properties/{id}/archive
func (h *PropertyHandler) ArchiveProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req ArchivePropertyRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
			})
			return
		}
	}

	err := h.service.ArchiveProperty(
		r.Context(),
		middleware.UserIDFromContext(r.Context()),
		middleware.RoleFromContext(r.Context()),
		id.String(),
		req.Reason,
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"id": id.String(), "status": "archived"}})
}

// RestoreProperty handles POST /api/v1/properties/{id}/restore
func (h *PropertyHandler) RestoreProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req RestorePropertyRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
			})
			return
		}
	}

	err := h.service.RestoreProperty(
		r.Context(),
		middleware.UserIDFromContext(r.Context()),
		middleware.RoleFromContext(r.Context()),
		id.String(),
		req.Status,
	)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"id": id.String(), "status": "restored"}})
}

// --- Helpers ---

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// collectImageUploads pulls the primary_image and images file parts out of an
// already-parsed multipart form.
func collectImageUploads(r *http.Request) (*service.ImageUpload, []service.ImageUpload, error) {
	var primary *service.ImageUpload
	if file, header, err := r.FormFile("primary_image"); err == nil {
		primary = &service.ImageUpload{
			Data:        file,
			ContentType: partContentType(header.Header.Get("Content-Type")),
			Size:        header.Size,
		}
	}

	var images []service.ImageUpload
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["images"] {
			file, err := header.Open()
			if err != nil {
				return nil, nil, err
			}
			images = append(images, service.ImageUpload{
				Data:        file,
				ContentType: partContentType(header.Header.Get("Content-Type")),
				Size:        header.Size,
			})
		}
	}

	return primary, images, nil
}

func partContentType(ct string) string {
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func floatFilter(raw string) *float64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func intFilter(raw string) *int {
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &v
}

func boolFilter(raw string) *bool {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &v
}
