package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	e := NotFound("property", "abc-123")
	assert.Contains(t, e.Error(), "NOT_FOUND")
	assert.Contains(t, e.Error(), "abc-123")

	wrapped := &AppError{Code: "X", Message: "y", Err: errors.New("boom")}
	assert.Contains(t, wrapped.Error(), "boom")
}

func TestAppError_Unwrap(t *testing.T) {
	e := Conflict("duplicate review")
	assert.ErrorIs(t, e, ErrConflict)

	e2 := Validation("price must be positive")
	assert.ErrorIs(t, e2, ErrInvalidInput)
}

func TestValidationField(t *testing.T) {
	e := ValidationField("check_out_date", "must be after check_in_date")
	assert.Equal(t, http.StatusBadRequest, e.Status)
	assert.Equal(t, "must be after check_in_date", e.Fields["check_out_date"])
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{ErrNotFound, http.StatusNotFound},
		{ErrAlreadyExists, http.StatusConflict},
		{ErrConflict, http.StatusConflict},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{errors.New("unknown"), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", ErrNotFound), http.StatusNotFound},
		{Forbidden("not the host"), http.StatusForbidden},
		{Internal(errors.New("db down")), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err))
	}
}
