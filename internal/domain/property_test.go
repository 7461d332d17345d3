package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidPropertyStatus(t *testing.T) {
	assert.True(t, IsValidPropertyStatus(PropertyStatusForRent))
	assert.True(t, IsValidPropertyStatus(PropertyStatusForSale))
	assert.True(t, IsValidPropertyStatus(PropertyStatusUnavailable))
	assert.False(t, IsValidPropertyStatus("sold"))
	assert.False(t, IsValidPropertyStatus(""))
}

func TestIsValidPropertyType(t *testing.T) {
	for _, pt := range ValidPropertyTypes() {
		assert.True(t, IsValidPropertyType(pt))
	}
	assert.False(t, IsValidPropertyType("castle"))
}

func TestIsValidSortKey(t *testing.T) {
	for key := range PropertySortKeys {
		assert.True(t, IsValidSortKey(key))
	}
	assert.False(t, IsValidSortKey("bedrooms"))
	assert.False(t, IsValidSortKey(""))
}
