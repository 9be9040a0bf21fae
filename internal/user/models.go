// Package user manages member accounts: profiles, avatars, and the
// administrative operations over accounts (listing, role changes, removal).
package user

import (
	"time"

	"github.com/google/uuid"

	"communityhub/internal/identity"
)

// User is a member account. PasswordHash never leaves the package boundary in
// serialized form.
type User struct {
	ID            uuid.UUID     `json:"id"`
	Email         string        `json:"email"`
	PasswordHash  string        `json:"-"`
	FullName      string        `json:"full_name"`
	Role          identity.Role `json:"role"`
	Phone         string        `json:"phone,omitempty"`
	City          string        `json:"city,omitempty"`
	State         string        `json:"state,omitempty"`
	District      string        `json:"district,omitempty"`
	CommunityName string        `json:"community_name,omitempty"`
	AvatarURL     string        `json:"avatar_url,omitempty"`
	IsActive      bool          `json:"is_active"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Principal projects the account into the request-scoped caller identity.
func (u User) Principal() identity.Principal {
	return identity.Principal{
		ID:    u.ID,
		Name:  u.FullName,
		Email: u.Email,
		Role:  u.Role,
	}
}
