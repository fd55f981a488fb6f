package models

import (
	"errors"
	"strings"
)

// UserRole is the closed set of actor roles.
type UserRole string

const (
	RoleAdmin     UserRole = "Admin"
	RoleCommittee UserRole = "Committee"
	RoleUser      UserRole = "User"
)

// ErrUnknownRole is returned by ParseRole for names outside the enumeration.
var ErrUnknownRole = errors.New("unknown role")

var rolesByName = map[string]UserRole{
	"admin":     RoleAdmin,
	"committee": RoleCommittee,
	"user":      RoleUser,
}

// ParseRole normalizes a role name received at the boundary. Matching ignores
// case and surrounding whitespace.
func ParseRole(raw string) (UserRole, error) {
	role, ok := rolesByName[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", ErrUnknownRole
	}
	return role, nil
}

// Valid reports whether r is one of the known roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleCommittee, RoleUser:
		return true
	}
	return false
}

// Principal is the actor behind a request. A nil *Principal is anonymous.
type Principal struct {
	UserID string
	Role   UserRole
}

// Authorize reports whether principal holds the required role. Anonymous
// principals are always denied.
func Authorize(principal *Principal, required UserRole) bool {
	if principal == nil || principal.UserID == "" {
		return false
	}
	return principal.Role == required
}

// AuthorizeAny reports whether principal holds at least one of roles.
func AuthorizeAny(principal *Principal, roles ...UserRole) bool {
	for _, role := range roles {
		if Authorize(principal, role) {
			return true
		}
	}
	return false
}

// IsAdmin is shorthand for Authorize(principal, RoleAdmin).
func (p *Principal) IsAdmin() bool {
	return Authorize(p, RoleAdmin)
}
