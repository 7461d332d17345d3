package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ulasari/RentalGo/internal/domain"
	"github.com/ulasari/RentalGo/internal/service"
	"github.com/ulasari/RentalGo/pkg/health"
	"github.com/ulasari/RentalGo/pkg/middleware"
)

const serviceName = "rental-service"

// RouterDeps bundles everything the router needs.
type RouterDeps struct {
	Properties *service.PropertyService
	Bookings   *service.BookingService
	Payments   *service.PaymentService
	Reviews    *service.ReviewService
	Favorites  *service.FavoriteService

	TokenValidator middleware.TokenValidator
	Health         *health.Handler
	Logger         *slog.Logger
}

// NewRouter creates a chi router with all rental service routes registered.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(chimiddleware.Compress(5))
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(middleware.RequestLogging(deps.Logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(deps.Logger))

	// Operational endpoints
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())

	auth := middleware.Auth(deps.TokenValidator)
	optionalAuth := middleware.OptionalAuth(deps.TokenValidator)
	adminOnly := middleware.RequireRole(domain.RoleAdmin)

	// Property API endpoints
	propertyHandler := NewPropertyHandler(deps.Properties, deps.Logger)
	reviewHandler := NewReviewHandler(deps.Reviews, deps.Logger)

	r.Route("/api/v1/properties", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", propertyHandler.SearchProperties)
		r.Get("/{id}", propertyHandler.GetProperty)

		r.Get("/{id}/reviews", reviewHandler.ListReviews)
		r.Get("/{id}/reviews/summary", reviewHandler.GetReviewSummary)
		r.With(optionalAuth).Post("/{id}/reviews", reviewHandler.CreateReview)

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Post("/", propertyHandler.CreateProperty)
			r.Put("/{id}", propertyHandler.UpdateProperty)
			r.Delete("/{id}", propertyHandler.DeleteProperty)
			r.Post("/{id}/archive", propertyHandler.ArchiveProperty)
			r.Post("/{id}/restore", propertyHandler.RestoreProperty)
		})
	})

	// Review API endpoints (flat, by review id)
	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/{id}", reviewHandler.GetReview)
		r.Post("/{id}/like", reviewHandler.LikeReview)
		r.Post("/{id}/dislike", reviewHandler.DislikeReview)

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Patch("/{id}", reviewHandler.UpdateReview)
			r.Delete("/{id}", reviewHandler.DeleteReview)
		})
	})

	// Booking API endpoints
	bookingHandler := NewBookingHandler(deps.Bookings, deps.Logger)
	paymentHandler := NewPaymentHandler(deps.Payments, deps.Logger)

	r.Route("/api/v1/bookings", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Guests book without an account; a valid token still attaches the
		// caller identity to the booking.
		r.With(optionalAuth).Post("/", bookingHandler.CreateBooking)
		r.Get("/{id}", bookingHandler.GetBooking)

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Get("/", bookingHandler.ListBookings)
			r.Get("/{id}/payment", paymentHandler.GetPaymentByBooking)
			r.Patch("/{id}/status", bookingHandler.UpdateBookingStatus)
			r.Post("/{id}/cancel", bookingHandler.CancelBooking)
			r.With(adminOnly).Delete("/{id}", bookingHandler.DeleteBooking)
		})
	})

	// Payment API endpoints
	r.Route("/api/v1/payments", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.With(optionalAuth).Post("/", paymentHandler.AttachPayment)

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Get("/{id}", paymentHandler.GetPayment)
			r.Post("/{id}/refund", paymentHandler.RefundPayment)
		})
	})

	// Favorite API endpoints
	favoriteHandler := NewFavoriteHandler(deps.Favorites, deps.Logger)

	r.Route("/api/v1/favorites", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(auth)

		r.Get("/", favoriteHandler.ListFavorites)
		r.Put("/{propertyID}", favoriteHandler.AddFavorite)
		r.Delete("/{propertyID}", favoriteHandler.RemoveFavorite)
	})

	return r
}
