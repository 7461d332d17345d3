package service

import (
	"github.com/ulasari/RentalGo/internal/domain"
	apperrors "github.com/ulasari/RentalGo/pkg/errors"
)

// Allow enforces the owner-or-admin policy shared by every protected
// mutation. Admins pass unconditionally; other callers must match the
// resource owner. A nil owner means the resource has no owner, so only
// admins may touch it.
func Allow(callerID, callerRole string, ownerID *string) error {
	if callerID == "" {
		return apperrors.Unauthorized("authentication required")
	}
	if callerRole == domain.RoleAdmin {
		return nil
	}
	if ownerID != nil && *ownerID == callerID {
		return nil
	}
	return apperrors.Forbidden("caller is not the resource owner")
}
