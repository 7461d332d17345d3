package domain

import (
	"time"
)

// Property status constants.
const (
	PropertyStatusForRent     = "for-rent"
	PropertyStatusForSale     = "for-sale"
	PropertyStatusUnavailable = "unavailable"
)

// Property type constants.
const (
	PropertyTypeApartment = "apartment"
	PropertyTypeHouse     = "house"
	PropertyTypeCondo     = "condo"
	PropertyTypeVilla     = "villa"
	PropertyTypeStudio    = "studio"
	PropertyTypeTownhouse = "townhouse"
)

// Property represents a rental listing.
type Property struct {
	ID             string     `json:"id"`
	HostID         *string    `json:"host_id,omitempty"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Address        string     `json:"address"`
	City           string     `json:"city"`
	State          string     `json:"state"`
	ZipCode        string     `json:"zip_code"`
	Price          float64    `json:"price"`
	Bedrooms       *int       `json:"bedrooms,omitempty"`
	Bathrooms      *float64   `json:"bathrooms,omitempty"`
	Area           *float64   `json:"area,omitempty"`
	PropertyType   string     `json:"property_type"`
	Status         string     `json:"status"`
	IsNew          bool       `json:"is_new"`
	IsFeatured     bool       `json:"is_featured"`
	IsVerified     bool       `json:"is_verified"`
	ParkingSpaces  int        `json:"parking_spaces"`
	AverageRating  float64    `json:"average_rating"`
	Views          int64      `json:"views"`
	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
	Archived       bool       `json:"archived"`
	ArchivedReason string     `json:"archived_reason,omitempty"`
	ArchivedAt     *time.Time `json:"archived_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// PropertyImage represents an image attached to a property. At most one image
// per property is primary.
type PropertyImage struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	URL        string    `json:"url"`
	IsPrimary  bool      `json:"is_primary"`
	CreatedAt  time.Time `json:"created_at"`
}

// HostSummary carries the denormalized host fields returned with search
// results: display name plus the host's rating aggregated across all of
// their properties.
type HostSummary struct {
	ID          string  `json:"id"`
	FullName    string  `json:"full_name"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
}

// PropertyDetail is a property annotated with its satellite rows.
type PropertyDetail struct {
	Property
	Amenities    []string     `json:"amenities"`
	Pets         []string     `json:"pets"`
	PrimaryImage *string      `json:"primary_image,omitempty"`
	Images       []string     `json:"images"`
	Host         *HostSummary `json:"host,omitempty"`
}

// ValidPropertyStatuses returns the set of valid property statuses.
func ValidPropertyStatuses() []string {
	return []string{PropertyStatusForRent, PropertyStatusForSale, PropertyStatusUnavailable}
}

// IsValidPropertyStatus checks whether the given status is valid.
func IsValidPropertyStatus(status string) bool {
	for _, s := range ValidPropertyStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// ValidPropertyTypes returns the set of valid property types.
func ValidPropertyTypes() []string {
	return []string{
		PropertyTypeApartment,
		PropertyTypeHouse,
		PropertyTypeCondo,
		PropertyTypeVilla,
		PropertyTypeStudio,
		PropertyTypeTownhouse,
	}
}

// IsValidPropertyType checks whether the given type is valid.
func IsValidPropertyType(propertyType string) bool {
	for _, t := range ValidPropertyTypes() {
		if t == propertyType {
			return true
		}
	}
	return false
}

// PropertySortKeys maps API sort keys to order-by columns.
var PropertySortKeys = map[string]string{
	"created_at": "created_at",
	"views":      "views",
	"title":      "title",
	"rating":     "average_rating",
	"price":      "price",
}

// IsValidSortKey checks whether the given sort key is supported.
func IsValidSortKey(key string) bool {
	_, ok := PropertySortKeys[key]
	return ok
}
