package kafka

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bookingCreatedData struct {
	BookingID  string `json:"booking_id"`
	PropertyID string `json:"property_id"`
	Status     string `json:"status"`
}

func TestNewEvent(t *testing.T) {
	data := bookingCreatedData{
		BookingID:  "b-1",
		PropertyID: "p-1",
		Status:     "pending",
	}

	event, err := NewEvent("booking.created", "b-1", "booking", "rentalgo-api", data)
	require.NoError(t, err)

	assert.Equal(t, "booking.created", event.EventType)
	assert.Equal(t, "b-1", event.AggregateID)
	assert.Equal(t, "booking", event.AggregateType)
	assert.Equal(t, "rentalgo-api", event.Source)
	assert.Equal(t, 1, event.Version)
	assert.False(t, event.Timestamp.IsZero())

	_, err = uuid.Parse(event.EventID)
	assert.NoError(t, err)
}

func TestNewEvent_UnmarshalableData(t *testing.T) {
	_, err := NewEvent("booking.created", "b-1", "booking", "rentalgo-api", make(chan int))
	assert.Error(t, err)
}

func TestEvent_WithCorrelationID(t *testing.T) {
	event, err := NewEvent("review.created", "r-1", "review", "rentalgo-api", nil)
	require.NoError(t, err)

	event.WithCorrelationID("corr-123")
	assert.Equal(t, "corr-123", event.CorrelationID)
}

func TestEvent_WithMetadata(t *testing.T) {
	event, err := NewEvent("property.created", "p-1", "property", "rentalgo-api", nil)
	require.NoError(t, err)

	event.WithMetadata("region", "eu-west").WithMetadata("tenant", "default")
	assert.Equal(t, "eu-west", event.Metadata["region"])
	assert.Equal(t, "default", event.Metadata["tenant"])
}

func TestEvent_MarshalRoundTrip(t *testing.T) {
	original, err := NewEvent("payment.completed", "pay-1", "payment", "rentalgo-api", bookingCreatedData{
		BookingID: "b-9",
		Status:    "confirmed",
	})
	require.NoError(t, err)
	original.WithCorrelationID("corr-9")

	raw, err := original.Marshal()
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(raw)
	require.NoError(t, err)

	assert.Equal(t, original.EventID, decoded.EventID)
	assert.Equal(t, original.EventType, decoded.EventType)
	assert.Equal(t, original.CorrelationID, decoded.CorrelationID)

	var data bookingCreatedData
	require.NoError(t, decoded.UnmarshalPayload(&data))
	assert.Equal(t, "b-9", data.BookingID)
	assert.Equal(t, "confirmed", data.Status)
}

func TestUnmarshalEvent_InvalidJSON(t *testing.T) {
	_, err := UnmarshalEvent([]byte("{not json"))
	assert.Error(t, err)
}
