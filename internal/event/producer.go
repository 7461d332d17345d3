package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ulasari/RentalGo/internal/domain"
	pkgkafka "github.com/ulasari/RentalGo/pkg/kafka"
)

// Kafka topic constants for rental domain events.
const (
	TopicPropertyCreated      = "rentalgo.property.created"
	TopicBookingCreated       = "rentalgo.booking.created"
	TopicBookingStatusChanged = "rentalgo.booking.status_changed"
	TopicPaymentCompleted     = "rentalgo.payment.completed"
	TopicPaymentRefunded      = "rentalgo.payment.refunded"
	TopicReviewCreated        = "rentalgo.review.created"
)

// Aggregate type constants.
const (
	AggregateTypeProperty = "property"
	AggregateTypeBooking  = "booking"
	AggregateTypePayment  = "payment"
	AggregateTypeReview   = "review"
)

// Source identifier for events originating from this service.
const SourceRentalService = "rental-service"

// PropertyCreatedData is the payload for a property.created event.
type PropertyCreatedData struct {
	ID           string  `json:"id"`
	HostID       *string `json:"host_id,omitempty"`
	Title        string  `json:"title"`
	City         string  `json:"city"`
	PropertyType string  `json:"property_type"`
	Status       string  `json:"status"`
	Price        float64 `json:"price"`
}

// BookingCreatedData is the payload for a booking.created event.
type BookingCreatedData struct {
	ID         string  `json:"id"`
	PropertyID string  `json:"property_id"`
	UserID     *string `json:"user_id,omitempty"`
	GuestEmail string  `json:"guest_email"`
	CheckIn    string  `json:"check_in"`
	CheckOut   string  `json:"check_out"`
	TotalPrice float64 `json:"total_price"`
}

// BookingStatusChangedData is the payload for a booking.status_changed event.
type BookingStatusChangedData struct {
	ID         string `json:"id"`
	PropertyID string `json:"property_id"`
	OldStatus  string `json:"old_status"`
	NewStatus  string `json:"new_status"`
	Reason     string `json:"reason,omitempty"`
}

// PaymentData is the payload for payment.completed and payment.refunded events.
type PaymentData struct {
	ID        string  `json:"id"`
	BookingID string  `json:"booking_id"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Method    string  `json:"method"`
	Status    string  `json:"status"`
}

// ReviewCreatedData is the payload for a review.created event.
type ReviewCreatedData struct {
	ID         string  `json:"id"`
	PropertyID string  `json:"property_id"`
	ReviewerID *string `json:"reviewer_id,omitempty"`
	Rating     int     `json:"rating"`
}

// Producer publishes rental domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the rental service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishPropertyCreated publishes a property.created event.
func (p *Producer) PublishPropertyCreated(ctx context.Context, property *domain.Property) error {
	data := PropertyCreatedData{
		ID:           property.ID,
		HostID:       property.HostID,
		Title:        property.Title,
		City:         property.City,
		PropertyType: property.PropertyType,
		Status:       property.Status,
		Price:        property.Price,
	}
	return p.publish(ctx, TopicPropertyCreated, property.ID, AggregateTypeProperty, data)
}

// PublishBookingCreated publishes a booking.created event.
func (p *Producer) PublishBookingCreated(ctx context.Context, booking *domain.Booking) error {
	data := BookingCreatedData{
		ID:         booking.ID,
		PropertyID: booking.PropertyID,
		UserID:     booking.UserID,
		GuestEmail: booking.GuestEmail,
		CheckIn:    booking.CheckIn.Format("2006-01-02"),
		CheckOut:   booking.CheckOut.Format("2006-01-02"),
		TotalPrice: booking.TotalPrice,
	}
	return p.publish(ctx, TopicBookingCreated, booking.ID, AggregateTypeBooking, data)
}

// PublishBookingStatusChanged publishes a booking.status_changed event.
func (p *Producer) PublishBookingStatusChanged(ctx context.Context, booking *domain.Booking, oldStatus string) error {
	data := BookingStatusChangedData{
		ID:         booking.ID,
		PropertyID: booking.PropertyID,
		OldStatus:  oldStatus,
		NewStatus:  booking.Status,
		Reason:     booking.CancelReason,
	}
	return p.publish(ctx, TopicBookingStatusChanged, booking.ID, AggregateTypeBooking, data)
}

// PublishPaymentCompleted publishes a payment.completed event.
func (p *Producer) PublishPaymentCompleted(ctx context.Context, payment *domain.Payment) error {
	return p.publish(ctx, TopicPaymentCompleted, payment.ID, AggregateTypePayment, paymentData(payment))
}

// PublishPaymentRefunded publishes a payment.refunded event.
func (p *Producer) PublishPaymentRefunded(ctx context.Context, payment *domain.Payment) error {
	return p.publish(ctx, TopicPaymentRefunded, payment.ID, AggregateTypePayment, paymentData(payment))
}

// PublishReviewCreated publishes a review.created event.
func (p *Producer) PublishReviewCreated(ctx context.Context, review *domain.Review) error {
	data := ReviewCreatedData{
		ID:         review.ID,
		PropertyID: review.PropertyID,
		ReviewerID: review.ReviewerID,
		Rating:     review.Rating,
	}
	return p.publish(ctx, TopicReviewCreated, review.ID, AggregateTypeReview, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceRentalService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published domain event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

func paymentData(payment *domain.Payment) PaymentData {
	return PaymentData{
		ID:        payment.ID,
		BookingID: payment.BookingID,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		Method:    payment.Method,
		Status:    payment.Status,
	}
}
