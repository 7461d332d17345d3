package domain

import (
	"time"
)

// Favorite marks a property saved by a user.
type Favorite struct {
	UserID     string    `json:"user_id"`
	PropertyID string    `json:"property_id"`
	CreatedAt  time.Time `json:"created_at"`
}
