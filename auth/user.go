package auth

import "strings"

// Role is a recognized user role. Roles form a closed set: any provider role
// outside it maps to RoleUnknown, which grants nothing anywhere.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
	RoleUnknown Role = "unknown"
)

// ParseRole maps a provider role string to a recognized Role.
func ParseRole(s string) Role {
	switch s {
	case "admin":
		return RoleAdmin
	case "manager":
		return RoleManager
	case "user":
		return RoleUser
	default:
		return RoleUnknown
	}
}

// ParseRoles maps provider role strings to recognized Roles, dropping the
// provider's housekeeping roles (offline_access and friends) along the way.
// The result may be empty; it is never nil.
func ParseRoles(raw []string) []Role {
	roles := make([]Role, 0, len(raw))
	for _, s := range raw {
		if isHousekeepingRole(s) {
			continue
		}
		roles = append(roles, ParseRole(s))
	}
	return roles
}

// isHousekeepingRole filters roles the provider attaches to every account.
func isHousekeepingRole(s string) bool {
	return s == "offline_access" ||
		s == "uma_authorization" ||
		strings.HasPrefix(s, "default-roles-")
}

// AuthenticatedUser is a read-only projection of a verified token or a loaded
// session. It is reconstructed per request and never persisted.
type AuthenticatedUser struct {
	// UserID is the unique subject identifier.
	UserID string

	// Username is the human-readable name, when the token carries one.
	Username string

	// Roles are the user's recognized roles. An empty set is valid and means
	// the user is restricted to records they own.
	Roles []Role

	// Department the user belongs to, if any.
	Department string
}

// HasRole checks if the user holds a specific role.
func (u *AuthenticatedUser) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
