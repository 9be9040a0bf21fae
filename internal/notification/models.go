// Package notification delivers best-effort in-app notifications. Emission is
// fire-and-forget: a notification failure never fails the action that caused
// it. Reads and mutations are owner-scoped; acting on another user's
// notification yields NotFound, never Forbidden.
package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification is one in-app message for one user. RelatedEntityID points at
// the entity that triggered it, when there is one.
type Notification struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	Message         string     `json:"message"`
	Type            string     `json:"type"`
	RelatedEntityID *uuid.UUID `json:"related_entity_id,omitempty"`
	IsRead          bool       `json:"is_read"`
	CreatedAt       time.Time  `json:"created_at"`
}
