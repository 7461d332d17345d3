package domain

import (
	"time"
)

// Review represents a property review. ReviewerID is nil for anonymous
// reviews; authenticated reviewers may review a property at most once.
type Review struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	BookingID  *string   `json:"booking_id,omitempty"`
	ReviewerID *string   `json:"reviewer_id,omitempty"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	Likes      int       `json:"likes"`
	Dislikes   int       `json:"dislikes"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ReviewSummary contains aggregate review statistics for a property.
type ReviewSummary struct {
	AverageRating float64 `json:"average_rating"`
	TotalCount    int     `json:"total_count"`
}
