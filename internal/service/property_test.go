package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ulasari/RentalGo/internal/domain"
	"github.com/ulasari/RentalGo/internal/geo"
	"github.com/ulasari/RentalGo/internal/repository"
	"github.com/ulasari/RentalGo/internal/storage"
	apperrors "github.com/ulasari/RentalGo/pkg/errors"
)

func newTestPropertyService(repo *mockPropertyRepository, bookings *mockBookingRepository, store *mockStorage, geocoder geo.Geocoder) *PropertyService {
	return NewPropertyService(repo, bookings, store, geocoder, newTestProducer(), newTestLogger())
}

func testPropertyDetail(id string, hostID *string) *domain.PropertyDetail {
	return &domain.PropertyDetail{
		Property: domain.Property{
			ID:     id,
			HostID: hostID,
			Title:  "Sunny loft near the river",
			City:   "Porto",
			Price:  120.50,
			Status: domain.PropertyStatusForRent,
		},
		Amenities: []string{"wifi"},
		Pets:      []string{},
		Images:    []string{},
	}
}

func TestCreateProperty_Success(t *testing.T) {
	repo := new(mockPropertyRepository)
	svc := newTestPropertyService(repo, new(mockBookingRepository), new(mockStorage), nil)
	ctx := context.Background()

	lat, lng := 41.1579, -8.6291
	repo.On("Create", ctx, mock.AnythingOfType("*domain.Property"), []string{"wifi", "kitchen"}, []string{"cats"}, []domain.PropertyImage{}).
		Run(func(args mock.Arguments) {
			p := args.Get(1).(*domain.Property)
			assert.NotEmpty(t, p.ID)
			assert.Equal(t, "Sunny loft near the river", p.Title)
			assert.Equal(t, domain.PropertyStatusForRent, p.Status)
			assert.NotZero(t, p.CreatedAt)
		}).
		Return(nil)
	repo.On("GetByID", ctx, mock.AnythingOfType("string")).
		Return(testPropertyDetail("prop-1", nil), nil)

	input := &CreatePropertyInput{
		Title:     "Sunny loft near the river",
		City:      "Porto",
		Price:     120.50,
		Latitude:  &lat,
		Longitude: &lng,
		Amenities: []string{"wifi", "kitchen"},
		Pets:      []string{"cats"},
	}

	detail, err := svc.CreateProperty(ctx, input)

	require.NoError(t, err)
	assert.Equal(t, "prop-1", detail.ID)
	repo.AssertExpectations(t)
}

func TestCreateProperty_EmptyTitle(t *testing.T) {
	svc := newTestPropertyService(new(mockPropertyRepository), new(mockBookingRepository), new(mockStorage), nil)

	detail, err := svc.CreateProperty(context.Background(), &CreatePropertyInput{Title: "  ", Price: 100})

	assert.Nil(t, detail)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateProperty_NonPositivePrice(t *testing.T) {
	svc := newTestPropertyService(new(mockPropertyRepository), new(mockBookingRepository), new(mockStorage), nil)

	detail, err := svc.CreateProperty(context.Background(), &CreatePropertyInput{Title: "Loft", Price: 0})

	assert.Nil(t, detail)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateProperty_InvalidStatus(t *testing.T) {
	svc := newTestPropertyService(new(mockPropertyRepository), new(mockBookingRepository), new(mockStorage), nil)

	detail, err := svc.CreateProperty(context.Background(), &CreatePropertyInput{Title: "Loft", Price: 100, Status: "sold"})

	assert.Nil(t, detail)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCreateProperty_UploadsPrimaryImage(t *testing.T) {
	repo := new(mockPropertyRepository)
	store := new(mockStorage)
	svc := newTestPropertyService(repo, new(mockBookingRepository), store, nil)
	ctx := context.Background()

	store.On("Upload", ctx, mock.MatchedBy(func(in *storage.UploadInput) bool {
		return strings.HasPrefix(in.Key, "tmp/")
	})).Return(&storage.UploadResult{Key: "tmp/img", URL: "http://blobs/rentalgo/tmp/img"}, nil)
	store.On("Move", ctx,
		mock.MatchedBy(func(key string) bool { return strings.HasPrefix(key, "tmp/") }),
		mock.MatchedBy(func(key string) bool { return strings.HasPrefix(key, "properties/") }),
	).Return(nil)

	repo.On("Create", ctx, mock.AnythingOfType("*domain.Property"), []string(nil), []string(nil),
		mock.MatchedBy(func(images []domain.PropertyImage) bool {
			return len(images) == 1 && images[0].IsPrimary
		})).Return(nil)
	repo.On("GetByID", ctx, mock.AnythingOfType("string")).
		Return(testPropertyDetail("prop-1", nil), nil)

	lat, lng := 41.0, -8.0
	input := &CreatePropertyInput{
		Title:        "Loft",
		Price:        100,
		Latitude:     &lat,
		Longitude:    &lng,
		PrimaryImage: &ImageUpload{Data: strings.NewReader("jpeg bytes"), ContentType: "image/jpeg", Size: 10},
	}

	_, err := svc.CreateProperty(ctx, input)

	require.NoError(t, err)
	repo.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestCreateProperty_StoreFailureDiscardsStagedBlobs(t *testing.T) {
	repo := new(mockPropertyRepository)
	store := new(mockStorage)
	svc := newTestPropertyService(repo, new(mockBookingRepository), store, nil)
	ctx := context.Background()

	store.On("Upload", ctx, mock.AnythingOfType("*storage.UploadInput")).
		Return(&storage.UploadResult{Key: "tmp/img", URL: "http://blobs/rentalgo/tmp/img"}, nil)
	store.On("Delete", ctx, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "tmp/")
	})).Return(nil)

	repo.On("Create", ctx, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(apperrors.Internal(assert.AnError))

	lat, lng := 41.0, -8.0
	input := &CreatePropertyInput{
		Title:        "Loft",
		Price:        100,
		Latitude:     &lat,
		Longitude:    &lng,
		PrimaryImage: &ImageUpload{Data: strings.NewReader("jpeg bytes"), ContentType: "image/jpeg", Size: 10},
	}

	detail, err := svc.CreateProperty(ctx, input)

	assert.Nil(t, detail)
	assert.Error(t, err)
	store.AssertCalled(t, "Delete", ctx, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "tmp/")
	}))
}

func TestCreateProperty_GeocodesMissingCoordinates(t *testing.T) {
	repo := new(mockPropertyRepository)
	geocoder := new(mockGeocoder)
	svc := newTestPropertyService(repo, new(mockBookingRepository), new(mockStorage), geocoder)
	ctx := context.Background()

	geocoder.On("Geocode", ctx, mock.MatchedBy(func(addr string) bool {
		return strings.Contains(addr, "12 Quay Street") && strings.Contains(addr, "Porto")
	})).Return(&geo.Coordinates{Latitude: 41.1579, Longitude: -8.6291}, nil)

	repo.On("Create", ctx, mock.MatchedBy(func(p *domain.Property) bool {
		return p.Latitude != nil && *p.Latitude == 41.1579 && p.Longitude != nil
	}), []string(nil), []string(nil), []domain.PropertyImage{}).Return(nil)
	repo.On("GetByID", ctx, mock.AnythingOfType("string")).
		Return(testPropertyDetail("prop-1", nil), nil)

	input := &CreatePropertyInput{
		Title:   "Loft",
		Price:   100,
		Address: "12 Quay Street",
		City:    "Porto",
	}

	_, err := svc.CreateProperty(ctx, input)

	require.NoError(t, err)
	geocoder.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestCreateProperty_GeocodeFailureIsNotFatal(t *testing.T) {
	repo := new(mockPropertyRepository)
	geocoder := new(mockGeocoder)
	svc := newTestPropertyService(repo, new(mockBookingRepository), new(mockStorage), geocoder)
	ctx := context.Background()

	geocoder.On("Geocode", ctx, mock.AnythingOfType("string")).
		Return(nil, assert.AnError)

	repo.On("Create", ctx, mock.MatchedBy(func(p *domain.Property) bool {
		return p.Latitude == nil && p.Longitude == nil
	}), []string(nil), []string(nil), []domain.PropertyImage{}).Return(nil)
	repo.On("GetByID", ctx, mock.AnythingOfType("string")).
		Return(testPropertyDetail("prop-1", nil), nil)

	input := &CreatePropertyInput{
		Title:   "Loft",
		Price:   100,
		Address: "12 Quay Street",
		City:    "Porto",
	}

	_, err := svc.CreateProperty(ctx, input)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestCreateProperty_SuppliedPinSurvivesDriftCheck(t *testing.T) {
	repo := new(mockPropertyRepository)
	geocoder := new(mockGeocoder)
	svc := newTestPropertyService(repo, new(mockBookingRepository), new(mockStorage), geocoder)
	ctx := context.Background()

	// Geocoder places the address in Lisbon, hundreds of km from the pin.
	geocoder.On("Geocode", ctx, mock.AnythingOfType("string")).
		Return(&geo.Coordinates{Latitude: 38.7223, Longitude: -9.1393}, nil)

	lat, lng := 41.1579, -8.6291
	repo.On("Create", ctx, mock.MatchedBy(func(p *domain.Property) bool {
		return p.Latitude != nil && *p.Latitude == lat && p.Longitude != nil && *p.Longitude == lng
	}), []string(nil), []string(nil), []domain.PropertyImage{}).Return(nil)
	repo.On("GetByID", ctx, mock.AnythingOfType("string")).
		Return(testPropertyDetail("prop-1", nil), nil)

	input := &CreatePropertyInput{
		Title:     "Loft",
		Price:     100,
		Address:   "12 Quay Street",
		City:      "Porto",
		Latitude:  &lat,
		Longitude: &lng,
	}

	_, err := svc.CreateProperty(ctx, input)

	require.NoError(t, err)
	geocoder.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestGetProperty_IncrementsViews(t *testing.T) {
	repo := new(mockPropertyRepository)
	svc := newTestPropertyService(repo, new(mockBookingRepository), new(mockStorage), nil)
	ctx := context.Background()

	repo.On("IncrementViews", ctx, "prop-1").Return(nil)
	repo.On("GetByID", ctx, "prop-1").Return(testPropertyDetail("prop-1", nil), nil)

	detail, err := svc.GetProperty(ctx, "prop-1")

	require.NoError(t, err)
	assert.Equal(t, "prop-1", detail.ID)
	repo.AssertExpectations(t)
}

func TestGetProperty_IncrementFailureIsNotFatal(t *testing.T) {
	repo := new(mockPropertyRepository)
	svc := newTestPropertyService(repo, new(mockBookingRepository), new(mockStorage), nil)
	ctx := context.Background()

	repo.On("IncrementViews", ctx, "prop-1").Return(assert.AnError)
	repo.On("GetByID", ctx, "prop-1").Return(testPropertyDetail("prop-1", nil), nil)

	detail, err := svc.GetProperty(ctx, "prop-1")

	require.NoError(t, err)
	assert.NotNil(t, detail)
	repo.AssertExpectations(t)
}

func TestSearchProperties_ClampsPagination(t *testing.T) {
	repo := new(mockPropertyRepository)
	svc := newTestPropertyService(repo, new(mockBookingRepository), new(mockStorage), nil)
	ctx := context.Background()

	expected := repository.PropertyFilter{Page: 1, PerPage: 100}
	repo.On("List", ctx, expected).Return([]domain.PropertyDetail{}, 0, nil)

	_, _, err := svc.SearchProperties(ctx, repository.PropertyFilter{Page: 0, PerPage: 500})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestSearchProperties_InvalidSortKey(t *testing.T) {
	svc := newTestPropertyService(new(mockPropertyRepository), new(mockBookingRepository), new(mockStorage), nil)

	_, _, err := svc.SearchProperties(context.Background(), repository.PropertyFilter{SortBy: "bogus"})

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestUpdateProperty_Forbidden(t *testing.T) {
	repo := new(mockPropertyRepository)
	svc := newTestPropertyService(repo, new(mockBookingRepository), new(mockStorage), nil)
	ctx := context.Background()

	repo.On("GetByID", ctx, "prop-1").Return(testPropertyDetail("prop-1", strPtr("host-1")), nil)

	detail, err := svc.UpdateProperty(ctx, "other-user", domain.RoleHost, "prop-1", &UpdatePropertyInput{Title: strPtr("New title")})

	assert.Nil(t, detail)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}

func TestUpdateProperty_OwnerSuccess(t *testing.T) {
	repo := new(mockPropertyRepository)
	svc := newTestPropertyService(repo, new(mockBookingRepository), new(mockStorage), nil)
	ctx := context.Background()

	repo.On("GetByID", ctx, "prop-1").Return(testPropertyDetail("prop-1", strPtr("host-1")), nil)
	repo.On("Update", ctx, mock.MatchedBy(func(p *domain.Property) bool {
		return p.Title == "New title" && p.City == "Porto"
	}), repository.PropertySatellites{}).Return(nil)

	detail, err := svc.UpdateProperty(ctx, "host-1", domain.RoleHost, "prop-1", &UpdatePropertyInput{Title: strPtr("New title")})

	require.NoError(t, err)
	assert.NotNil(t, detail)
	repo.AssertExpectations(t)
}

func TestUpdateProperty_AdminReplacesSatellites(t *testing.T) {
	repo := new(mockPropertyRepository)
	svc := newTestPropertyService(repo, new(mockBookingRepository), new(mockStorage), nil)
	ctx := context.Background()

	amenities := []string{"pool", "gym"}
	pets := []string{}

	repo.On("GetByID", ctx, "prop-1").Return(testPropertyDetail("prop-1", strPtr("host-1")), nil)
	repo.On("Update", ctx, mock.AnythingOfType("*domain.Property"), repository.PropertySatellites{
		Amenities: &amenities,
		Pets:      &pets,
	}).Return(nil)

	_, err := svc.UpdateProperty(ctx, "admin-1", domain.RoleAdmin, "prop-1", &UpdatePropertyInput{
		Amenities: &amenities,
		Pets:      &pets,
	})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestDeleteProperty_BlockedByActiveBookings(t *testing.T) {
	repo := new(mockPropertyRepository)
	bookings := new(mockBookingRepository)
	svc := newTestPropertyService(repo, bookings, new(mockStorage), nil)
	ctx := context.Background()

	repo.On("GetByID", ctx, "prop-1").Return(testPropertyDetail("prop-1", strPtr("host-1")), nil)
	bookings.On("CountActiveByProperty", ctx, "prop-1").Return(2, nil)

	err := svc.DeleteProperty(ctx, "host-1", domain.RoleHost, "prop-1")

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDeleteProperty_SuccessCleansUpBlobs(t *testing.T) {
	repo := new(mockPropertyRepository)
	bookings := new(mockBookingRepository)
	store := new(mockStorage)
	svc := newTestPropertyService(repo, bookings, store, nil)
	ctx := context.Background()

	repo.On("GetByID", ctx, "prop-1").Return(testPropertyDetail("prop-1", strPtr("host-1")), nil)
	bookings.On("CountActiveByProperty", ctx, "prop-1").Return(0, nil)
	repo.On("ListImages", ctx, "prop-1").Return([]domain.PropertyImage{
		{ID: "img-1", PropertyID: "prop-1", IsPrimary: true},
	}, nil)
	repo.On("Delete", ctx, "prop-1").Return(nil)
	store.On("Delete", ctx, "properties/prop-1/img-1").Return(nil)

	err := svc.DeleteProperty(ctx, "host-1", domain.RoleHost, "prop-1")

	require.NoError(t, err)
	repo.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestDeleteProperty_BlobCleanupFailureIsNotFatal(t *testing.T) {
	repo := new(mockPropertyRepository)
	bookings := new(mockBookingRepository)
	store := new(mockStorage)
	svc := newTestPropertyService(repo, bookings, store, nil)
	ctx := context.Background()

	repo.On("GetByID", ctx, "prop-1").Return(testPropertyDetail("prop-1", strPtr("host-1")), nil)
	bookings.On("CountActiveByProperty", ctx, "prop-1").Return(0, nil)
	repo.On("ListImages", ctx, "prop-1").Return([]domain.PropertyImage{
		{ID: "img-1", PropertyID: "prop-1"},
	}, nil)
	repo.On("Delete", ctx, "prop-1").Return(nil)
	store.On("Delete", ctx, "properties/prop-1/img-1").Return(assert.AnError)

	err := svc.DeleteProperty(ctx, "host-1", domain.RoleHost, "prop-1")

	assert.NoError(t, err)
}

func TestArchiveProperty_Success(t *testing.T) {
	repo := new(mockPropertyRepository)
	svc := newTestPropertyService(repo, new(mockBookingRepository), new(mockStorage), nil)
	ctx := context.Background()

	repo.On("GetByID", ctx, "prop-1").Return(testPropertyDetail("prop-1", strPtr("host-1")), nil)
	repo.On("Archive", ctx, "prop-1", "renovation", mock.AnythingOfType("time.Time")).Return(nil)

	err := svc.ArchiveProperty(ctx, "host-1", domain.RoleHost, "prop-1", "renovation")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestArchiveProperty_AlreadyArchivedIsNoop(t *testing.T) {
	repo := new(mockPropertyRepository)
	svc := newTestPropertyService(repo, new(mockBookingRepository), new(mockStorage), nil)
	ctx := context.Background()

	detail := testPropertyDetail("prop-1", strPtr("host-1"))
	detail.Archived = true
	repo.On("GetByID", ctx, "prop-1").Return(detail, nil)

	err := svc.ArchiveProperty(ctx, "host-1", domain.RoleHost, "prop-1", "again")

	require.NoError(t, err)
	repo.AssertNotCalled(t, "Archive", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRestoreProperty_DefaultsToForRent(t *testing.T) {
	repo := new(mockPropertyRepository)
	svc := newTestPropertyService(repo, new(mockBookingRepository), new(mockStorage), nil)
	ctx := context.Background()

	detail := testPropertyDetail("prop-1", strPtr("host-1"))
	detail.Archived = true
	repo.On("GetByID", ctx, "prop-1").Return(detail, nil)
	repo.On("Restore", ctx, "prop-1", domain.PropertyStatusForRent).Return(nil)

	err := svc.RestoreProperty(ctx, "host-1", domain.RoleHost, "prop-1", "")

	require.NoError(t, err)
	repo.AssertExpectations(t)
}
