package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ulasari/RentalGo/internal/domain"
	"github.com/ulasari/RentalGo/internal/event"
	"github.com/ulasari/RentalGo/internal/geo"
	"github.com/ulasari/RentalGo/internal/repository"
	"github.com/ulasari/RentalGo/internal/storage"
	apperrors "github.com/ulasari/RentalGo/pkg/errors"
)

const tempKeyPrefix = "tmp/"

// ImageUpload carries the binary content of a property image.
type ImageUpload struct {
	Data        io.Reader
	ContentType string
	Size        int64
}

// PropertyService implements the business logic for property operations.
type PropertyService struct {
	repo     repository.PropertyRepository
	bookings repository.BookingRepository
	storage  storage.Storage
	geocoder geo.Geocoder
	producer *event.Producer
	logger   *slog.Logger
}

// NewPropertyService creates a new property service. The geocoder may be nil,
// in which case addresses are never resolved to coordinates.
func NewPropertyService(
	repo repository.PropertyRepository,
	bookings repository.BookingRepository,
	store storage.Storage,
	geocoder geo.Geocoder,
	producer *event.Producer,
	logger *slog.Logger,
) *PropertyService {
	return &PropertyService{
		repo:     repo,
		bookings: bookings,
		storage:  store,
		geocoder: geocoder,
		producer: producer,
		logger:   logger,
	}
}

// CreatePropertyInput holds the parameters for creating a property.
type CreatePropertyInput struct {
	HostID        *string
	Title         string
	Description   string
	Address       string
	City          string
	State         string
	ZipCode       string
	Price         float64
	Bedrooms      *int
	Bathrooms     *float64
	Area          *float64
	PropertyType  string
	Status        string
	IsNew         bool
	IsFeatured    bool
	IsVerified    bool
	ParkingSpaces int
	Latitude      *float64
	Longitude     *float64
	Amenities     []string
	Pets          []string
	PrimaryImage  *ImageUpload
	Images        []ImageUpload
}

// UpdatePropertyInput holds the partial-update parameters for a property.
// Nil fields are left unchanged; a non-nil Amenities or Pets pointer replaces
// the full satellite set.
type UpdatePropertyInput struct {
	Title         *string
	Description   *string
	Address       *string
	City          *string
	State         *string
	ZipCode       *string
	Price         *float64
	Bedrooms      *int
	Bathrooms     *float64
	Area          *float64
	PropertyType  *string
	Status        *string
	IsNew         *bool
	IsFeatured    *bool
	IsVerified    *bool
	ParkingSpaces *int
	Latitude      *float64
	Longitude     *float64
	Amenities     *[]string
	Pets          *[]string
	PrimaryImage  *ImageUpload
}

// stagedImage tracks a blob uploaded under a temporary key, pending promotion
// to its final key once the database write commits.
type stagedImage struct {
	image    domain.PropertyImage
	tempKey  string
	finalKey string
}

// CreateProperty validates the input, uploads any images, and persists the
// property with its satellite rows in one transaction. Blob upload failure
// aborts the operation; later blob promotion failures are logged only.
func (s *PropertyService) CreateProperty(ctx context.Context, input *CreatePropertyInput) (*domain.PropertyDetail, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.ValidationField("title", "is required")
	}
	if input.Price <= 0 {
		return nil, apperrors.ValidationField("price", "must be greater than zero")
	}

	status := input.Status
	if status == "" {
		status = domain.PropertyStatusForRent
	}
	if !domain.IsValidPropertyStatus(status) {
		return nil, apperrors.ValidationField("status", fmt.Sprintf("must be one of %v", domain.ValidPropertyStatuses()))
	}
	if input.PropertyType != "" && !domain.IsValidPropertyType(input.PropertyType) {
		return nil, apperrors.ValidationField("property_type", fmt.Sprintf("must be one of %v", domain.ValidPropertyTypes()))
	}
	if input.ParkingSpaces < 0 {
		return nil, apperrors.ValidationField("parking_spaces", "must not be negative")
	}

	now := time.Now().UTC()
	property := &domain.Property{
		ID:            uuid.New().String(),
		HostID:        input.HostID,
		Title:         strings.TrimSpace(input.Title),
		Description:   input.Description,
		Address:       input.Address,
		City:          input.City,
		State:         input.State,
		ZipCode:       input.ZipCode,
		Price:         input.Price,
		Bedrooms:      input.Bedrooms,
		Bathrooms:     input.Bathrooms,
		Area:          input.Area,
		PropertyType:  input.PropertyType,
		Status:        status,
		IsNew:         input.IsNew,
		IsFeatured:    input.IsFeatured,
		IsVerified:    input.IsVerified,
		ParkingSpaces: input.ParkingSpaces,
		Latitude:      input.Latitude,
		Longitude:     input.Longitude,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.geocodeIfMissing(ctx, property)

	staged, err := s.stageImages(ctx, property.ID, input.PrimaryImage, input.Images)
	if err != nil {
		return nil, err
	}

	images := make([]domain.PropertyImage, 0, len(staged))
	for _, st := range staged {
		images = append(images, st.image)
	}

	if err := s.repo.Create(ctx, property, input.Amenities, input.Pets, images); err != nil {
		s.discardStaged(ctx, staged)
		return nil, fmt.Errorf("create property: %w", err)
	}

	s.promoteStaged(ctx, staged)

	if err := s.producer.PublishPropertyCreated(ctx, property); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish property.created event",
			slog.String("property_id", property.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "property created",
		slog.String("property_id", property.ID),
		slog.String("city", property.City),
		slog.Int("images", len(images)),
	)

	return s.repo.GetByID(ctx, property.ID)
}

// GetProperty retrieves a property and bumps its view counter. A failed
// increment is logged and does not fail the read.
func (s *PropertyService) GetProperty(ctx context.Context, id string) (*domain.PropertyDetail, error) {
	if err := s.repo.IncrementViews(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "failed to increment property views",
			slog.String("property_id", id),
			slog.String("error", err.Error()),
		)
	}

	detail, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get property by id: %w", err)
	}
	return detail, nil
}

// SearchProperties returns properties matching the filter with the total count.
func (s *PropertyService) SearchProperties(ctx context.Context, filter repository.PropertyFilter) ([]domain.PropertyDetail, int, error) {
	if filter.Status != nil && !domain.IsValidPropertyStatus(*filter.Status) {
		return nil, 0, apperrors.ValidationField("status", fmt.Sprintf("must be one of %v", domain.ValidPropertyStatuses()))
	}
	if filter.SortBy != "" && !domain.IsValidSortKey(filter.SortBy) {
		return nil, 0, apperrors.ValidationField("sort", "is not a supported sort key")
	}
	filter.Page, filter.PerPage = clampPagination(filter.Page, filter.PerPage)

	properties, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("search properties: %w", err)
	}
	return properties, total, nil
}

// UpdateProperty applies a partial update. Only the property's host or an
// admin may update it. A replacement primary image evicts the old blob on a
// best-effort basis.
func (s *PropertyService) UpdateProperty(ctx context.Context, callerID, callerRole, id string, input *UpdatePropertyInput) (*domain.PropertyDetail, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get property for update: %w", err)
	}
	if err := Allow(callerID, callerRole, existing.HostID); err != nil {
		return nil, err
	}

	property := existing.Property
	applyPropertyUpdate(&property, input)
	property.UpdatedAt = time.Now().UTC()

	if property.Price <= 0 {
		return nil, apperrors.ValidationField("price", "must be greater than zero")
	}
	if !domain.IsValidPropertyStatus(property.Status) {
		return nil, apperrors.ValidationField("status", fmt.Sprintf("must be one of %v", domain.ValidPropertyStatuses()))
	}
	if property.PropertyType != "" && !domain.IsValidPropertyType(property.PropertyType) {
		return nil, apperrors.ValidationField("property_type", fmt.Sprintf("must be one of %v", domain.ValidPropertyTypes()))
	}

	sat := repository.PropertySatellites{
		Amenities: input.Amenities,
		Pets:      input.Pets,
	}

	var staged []stagedImage
	var oldPrimaryKey string
	if input.PrimaryImage != nil {
		oldPrimaryKey = s.findPrimaryKey(ctx, id)

		staged, err = s.stageImages(ctx, id, input.PrimaryImage, nil)
		if err != nil {
			return nil, err
		}
		sat.PrimaryImage = &staged[0].image
	}

	if err := s.repo.Update(ctx, &property, sat); err != nil {
		s.discardStaged(ctx, staged)
		return nil, fmt.Errorf("update property: %w", err)
	}

	s.promoteStaged(ctx, staged)

	if oldPrimaryKey != "" {
		if err := s.storage.Delete(ctx, oldPrimaryKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete replaced primary image blob",
				slog.String("property_id", id),
				slog.String("key", oldPrimaryKey),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "property updated",
		slog.String("property_id", id),
	)

	return s.repo.GetByID(ctx, id)
}

// DeleteProperty hard-deletes a property. Deletion is rejected while any
// pending or confirmed booking references it. Blob cleanup after the delete
// commits is best-effort.
func (s *PropertyService) DeleteProperty(ctx context.Context, callerID, callerRole, id string) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get property for delete: %w", err)
	}
	if err := Allow(callerID, callerRole, existing.HostID); err != nil {
		return err
	}

	active, err := s.bookings.CountActiveByProperty(ctx, id)
	if err != nil {
		return fmt.Errorf("count active bookings: %w", err)
	}
	if active > 0 {
		return apperrors.Validation(fmt.Sprintf("property has %d active bookings and cannot be deleted", active))
	}

	images, err := s.repo.ListImages(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to list images before property delete",
			slog.String("property_id", id),
			slog.String("error", err.Error()),
		)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete property: %w", err)
	}

	for _, img := range images {
		key := imageKey(id, img.ID)
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "failed to delete image blob",
				slog.String("property_id", id),
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "property deleted",
		slog.String("property_id", id),
	)
	return nil
}

// ArchiveProperty soft-deletes a property, forcing its status to unavailable.
// Archiving an archived property is a no-op.
func (s *PropertyService) ArchiveProperty(ctx context.Context, callerID, callerRole, id, reason string) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get property for archive: %w", err)
	}
	if err := Allow(callerID, callerRole, existing.HostID); err != nil {
		return err
	}
	if existing.Archived {
		return nil
	}

	if err := s.repo.Archive(ctx, id, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("archive property: %w", err)
	}

	s.logger.InfoContext(ctx, "property archived",
		slog.String("property_id", id),
		slog.String("reason", reason),
	)
	return nil
}

// RestoreProperty clears the archive flag. An empty status defaults to
// for-rent. Restoring an active property is a no-op.
func (s *PropertyService) RestoreProperty(ctx context.Context, callerID, callerRole, id, status string) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get property for restore: %w", err)
	}
	if err := Allow(callerID, callerRole, existing.HostID); err != nil {
		return err
	}
	if !existing.Archived {
		return nil
	}

	if status == "" {
		status = domain.PropertyStatusForRent
	}
	if !domain.IsValidPropertyStatus(status) {
		return apperrors.ValidationField("status", fmt.Sprintf("must be one of %v", domain.ValidPropertyStatuses()))
	}

	if err := s.repo.Restore(ctx, id, status); err != nil {
		return fmt.Errorf("restore property: %w", err)
	}

	s.logger.InfoContext(ctx, "property restored",
		slog.String("property_id", id),
		slog.String("status", status),
	)
	return nil
}

// maxPinDriftKm is the straight-line distance beyond which a caller-supplied
// map pin is considered implausible for the listing's address.
const maxPinDriftKm = 50.0

// geocodeIfMissing resolves the property address to coordinates when the
// caller supplied none, and sanity-checks a supplied pin against the geocoded
// address. Failures are logged, never fatal.
func (s *PropertyService) geocodeIfMissing(ctx context.Context, property *domain.Property) {
	if s.geocoder == nil {
		return
	}

	address := strings.TrimSpace(strings.Join([]string{property.Address, property.City, property.State, property.ZipCode}, ", "))
	if strings.Trim(address, ", ") == "" {
		return
	}

	coords, err := s.geocoder.Geocode(ctx, address)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to geocode property address",
			slog.String("property_id", property.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	if property.Latitude != nil && property.Longitude != nil {
		// The supplied pin wins; the geocoded point only flags suspect ones.
		drift := geo.HaversineKm(
			geo.Coordinates{Latitude: *property.Latitude, Longitude: *property.Longitude},
			*coords,
		)
		if drift > maxPinDriftKm {
			s.logger.WarnContext(ctx, "property pin far from geocoded address",
				slog.String("property_id", property.ID),
				slog.Float64("distance_km", drift),
			)
		}
		return
	}

	property.Latitude = &coords.Latitude
	property.Longitude = &coords.Longitude
}

// stageImages uploads the primary and additional images under temporary keys.
// The returned rows already carry the final URLs; promotion happens after the
// database write commits. Any upload failure discards what was staged so far
// and aborts.
func (s *PropertyService) stageImages(ctx context.Context, propertyID string, primary *ImageUpload, additional []ImageUpload) ([]stagedImage, error) {
	uploads := make([]*ImageUpload, 0, len(additional)+1)
	if primary != nil {
		uploads = append(uploads, primary)
	}
	for i := range additional {
		uploads = append(uploads, &additional[i])
	}

	staged := make([]stagedImage, 0, len(uploads))
	for i, upload := range uploads {
		imageID := uuid.New().String()
		tempKey := tempKeyPrefix + imageID
		finalKey := imageKey(propertyID, imageID)

		result, err := s.storage.Upload(ctx, &storage.UploadInput{
			Key:         tempKey,
			ContentType: upload.ContentType,
			Size:        upload.Size,
			Data:        upload.Data,
		})
		if err != nil {
			s.discardStaged(ctx, staged)
			return nil, fmt.Errorf("upload image to storage: %w", err)
		}

		staged = append(staged, stagedImage{
			image: domain.PropertyImage{
				ID:         imageID,
				PropertyID: propertyID,
				URL:        strings.Replace(result.URL, tempKey, finalKey, 1),
				IsPrimary:  primary != nil && i == 0,
				CreatedAt:  time.Now().UTC(),
			},
			tempKey:  tempKey,
			finalKey: finalKey,
		})
	}
	return staged, nil
}

// promoteStaged moves staged blobs to their final keys. By this point the
// database rows are committed, so a failed move is logged and left for the
// temp-prefix sweeper.
func (s *PropertyService) promoteStaged(ctx context.Context, staged []stagedImage) {
	for _, st := range staged {
		if err := s.storage.Move(ctx, st.tempKey, st.finalKey); err != nil {
			s.logger.ErrorContext(ctx, "failed to promote staged image blob",
				slog.String("temp_key", st.tempKey),
				slog.String("final_key", st.finalKey),
				slog.String("error", err.Error()),
			)
		}
	}
}

// discardStaged removes staged blobs after a failed database write.
func (s *PropertyService) discardStaged(ctx context.Context, staged []stagedImage) {
	for _, st := range staged {
		if err := s.storage.Delete(ctx, st.tempKey); err != nil {
			s.logger.WarnContext(ctx, "failed to clean up staged image blob",
				slog.String("key", st.tempKey),
				slog.String("error", err.Error()),
			)
		}
	}
}

// findPrimaryKey returns the blob key of the property's current primary
// image, or empty when there is none.
func (s *PropertyService) findPrimaryKey(ctx context.Context, propertyID string) string {
	images, err := s.repo.ListImages(ctx, propertyID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to list images before primary replacement",
			slog.String("property_id", propertyID),
			slog.String("error", err.Error()),
		)
		return ""
	}
	for _, img := range images {
		if img.IsPrimary {
			return imageKey(propertyID, img.ID)
		}
	}
	return ""
}

func imageKey(propertyID, imageID string) string {
	return fmt.Sprintf("properties/%s/%s", propertyID, imageID)
}

func applyPropertyUpdate(p *domain.Property, input *UpdatePropertyInput) {
	if input.Title != nil {
		p.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.Address != nil {
		p.Address = *input.Address
	}
	if input.City != nil {
		p.City = *input.City
	}
	if input.State != nil {
		p.State = *input.State
	}
	if input.ZipCode != nil {
		p.ZipCode = *input.ZipCode
	}
	if input.Price != nil {
		p.Price = *input.Price
	}
	if input.Bedrooms != nil {
		p.Bedrooms = input.Bedrooms
	}
	if input.Bathrooms != nil {
		p.Bathrooms = input.Bathrooms
	}
	if input.Area != nil {
		p.Area = input.Area
	}
	if input.PropertyType != nil {
		p.PropertyType = *input.PropertyType
	}
	if input.Status != nil {
		p.Status = *input.Status
	}
	if input.IsNew != nil {
		p.IsNew = *input.IsNew
	}
	if input.IsFeatured != nil {
		p.IsFeatured = *input.IsFeatured
	}
	if input.IsVerified != nil {
		p.IsVerified = *input.IsVerified
	}
	if input.ParkingSpaces != nil {
		p.ParkingSpaces = *input.ParkingSpaces
	}
	if input.Latitude != nil {
		p.Latitude = input.Latitude
	}
	if input.Longitude != nil {
		p.Longitude = input.Longitude
	}
}

// clampPagination normalizes page and per-page values.
func clampPagination(page, perPage int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}
