package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ulasari/RentalGo/internal/domain"
	"github.com/ulasari/RentalGo/internal/event"
	"github.com/ulasari/RentalGo/internal/repository"
	"github.com/ulasari/RentalGo/internal/service"
	"github.com/ulasari/RentalGo/internal/storage"
	"github.com/ulasari/RentalGo/pkg/httputil"
	pkgkafka "github.com/ulasari/RentalGo/pkg/kafka"
	"github.com/ulasari/RentalGo/pkg/middleware"
)

// --- Mock Repositories ---

type mockPropertyRepository struct {
	mock.Mock
}

func (m *mockPropertyRepository) Create(ctx context.Context, p *domain.Property, amenities, pets []string, images []domain.PropertyImage) error {
	args := m.Called(ctx, p, amenities, pets, images)
	return args.Error(0)
}

func (m *mockPropertyRepository) GetByID(ctx context.Context, id string) (*domain.PropertyDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PropertyDetail), args.Error(1)
}

func (m *mockPropertyRepository) IncrementViews(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockPropertyRepository) List(ctx context.Context, filter repository.PropertyFilter) ([]domain.PropertyDetail, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.PropertyDetail), args.Int(1), args.Error(2)
}

func (m *mockPropertyRepository) Update(ctx context.Context, p *domain.Property, sat repository.PropertySatellites) error {
	args := m.Called(ctx, p, sat)
	return args.Error(0)
}

func (m *mockPropertyRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockPropertyRepository) Archive(ctx context.Context, id, reason string, at time.Time) error {
	args := m.Called(ctx, id, reason, at)
	return args.Error(0)
}

func (m *mockPropertyRepository) Restore(ctx context.Context, id, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockPropertyRepository) ListImages(ctx context.Context, propertyID string) ([]domain.PropertyImage, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PropertyImage), args.Error(1)
}

type mockBookingRepository struct {
	mock.Mock
}

func (m *mockBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *mockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *mockBookingRepository) List(ctx context.Context, filter repository.BookingFilter) ([]domain.Booking, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Booking), args.Int(1), args.Error(2)
}

func (m *mockBookingRepository) UpdateStatus(ctx context.Context, id, status, cancelReason string) error {
	args := m.Called(ctx, id, status, cancelReason)
	return args.Error(0)
}

func (m *mockBookingRepository) SoftDelete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockBookingRepository) CountActiveByProperty(ctx context.Context, propertyID string) (int, error) {
	args := m.Called(ctx, propertyID)
	return args.Int(0), args.Error(1)
}

type mockPaymentRepository struct {
	mock.Mock
}

func (m *mockPaymentRepository) Attach(ctx context.Context, p *domain.Payment, newBooking *domain.Booking) error {
	args := m.Called(ctx, p, newBooking)
	return args.Error(0)
}

func (m *mockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *mockPaymentRepository) GetByBookingID(ctx context.Context, bookingID string) (*domain.Payment, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *mockPaymentRepository) Refund(ctx context.Context, paymentID string) error {
	args := m.Called(ctx, paymentID)
	return args.Error(0)
}

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Update(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepository) ListByProperty(ctx context.Context, propertyID string, page, perPage int) ([]domain.Review, int, error) {
	args := m.Called(ctx, propertyID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

func (m *mockReviewRepository) Like(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepository) Dislike(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepository) GetSummary(ctx context.Context, propertyID string) (*domain.ReviewSummary, error) {
	args := m.Called(ctx, propertyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewSummary), args.Error(1)
}

func (m *mockReviewRepository) RecalculateAll(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type mockFavoriteRepository struct {
	mock.Mock
}

func (m *mockFavoriteRepository) Add(ctx context.Context, userID, propertyID string) error {
	args := m.Called(ctx, userID, propertyID)
	return args.Error(0)
}

func (m *mockFavoriteRepository) Remove(ctx context.Context, userID, propertyID string) error {
	args := m.Called(ctx, userID, propertyID)
	return args.Error(0)
}

func (m *mockFavoriteRepository) ListByUser(ctx context.Context, userID string, page, perPage int) ([]domain.Property, int, error) {
	args := m.Called(ctx, userID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Property), args.Int(1), args.Error(2)
}

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Upload(ctx context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.UploadResult), args.Error(1)
}

func (m *mockStorage) Move(ctx context.Context, fromKey, toKey string) error {
	args := m.Called(ctx, fromKey, toKey)
	return args.Error(0)
}

func (m *mockStorage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockStorage) GetURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

// --- Test Helpers ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestProducer builds an event producer whose publishes fail silently in
// tests (no real broker behind it).
func newTestProducer() *event.Producer {
	logger := testLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func newTestPropertyService(repo *mockPropertyRepository, bookings *mockBookingRepository, store *mockStorage) *service.PropertyService {
	return service.NewPropertyService(repo, bookings, store, nil, newTestProducer(), testLogger())
}

func newTestBookingService(repo *mockBookingRepository, properties *mockPropertyRepository) *service.BookingService {
	return service.NewBookingService(repo, properties, newTestProducer(), testLogger())
}

func newTestPaymentService(repo *mockPaymentRepository, bookings *mockBookingRepository) *service.PaymentService {
	return service.NewPaymentService(repo, bookings, newTestProducer(), testLogger())
}

func newTestReviewService(repo *mockReviewRepository) *service.ReviewService {
	return service.NewReviewService(repo, newTestProducer(), testLogger())
}

func newTestFavoriteService(repo *mockFavoriteRepository, properties *mockPropertyRepository) *service.FavoriteService {
	return service.NewFavoriteService(repo, properties, testLogger())
}

// withIdentity injects a caller identity the way the auth middleware would.
func withIdentity(req *http.Request, userID, role string) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), userID, role))
}

// decodeResp reads the response body into an httputil.Response.
func decodeResp(t *testing.T, rec *httptest.ResponseRecorder) httputil.Response {
	t.Helper()
	var resp httputil.Response
	err := json.NewDecoder(rec.Body).Decode(&resp)
	require.NoError(t, err)
	return resp
}

func strPtr(s string) *string { return &s }
