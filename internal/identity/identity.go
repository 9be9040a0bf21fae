// Package identity models the authenticated caller for the duration of one
// request. A Principal is constructed per-request by the auth middleware from
// stored user state and is never cached across requests, so role changes take
// effect on the caller's next request.
package identity

import "github.com/google/uuid"

// Role is the coarse authority level attached to a user account.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Principal is the authenticated caller attached to one request: identity,
// display name, role, email. The zero value is an anonymous caller.
type Principal struct {
	ID    uuid.UUID
	Name  string
	Email string
	Role  Role
}

// Anonymous reports whether the request carries no authenticated identity.
func (p Principal) Anonymous() bool {
	return p.ID == uuid.Nil
}

// IsAdmin reports whether the caller holds the ADMIN role.
func (p Principal) IsAdmin() bool {
	return !p.Anonymous() && p.Role == RoleAdmin
}

// Owns reports the ownership relation between the caller and an entity's
// creator. Anonymous callers own nothing.
func (p Principal) Owns(ownerID uuid.UUID) bool {
	return !p.Anonymous() && p.ID == ownerID
}
