package domain

import (
	"time"
)

// User roles.
const (
	RoleGuest = "guest"
	RoleHost  = "host"
	RoleAdmin = "admin"
)

// User represents a registered account. Identity verification happens at the
// edge; this record only carries the profile the marketplace needs.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ValidRoles returns the set of valid user roles.
func ValidRoles() []string {
	return []string{RoleGuest, RoleHost, RoleAdmin}
}

// IsValidRole checks whether the given role string is a valid user role.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles() {
		if r == role {
			return true
		}
	}
	return false
}
