// Package settings stores key/value preferences in two scopes: per-user
// settings a member manages for themselves, and global settings only admins
// may change. Writes are upserts keyed on (scope, key).
package settings

import (
	"time"

	"github.com/google/uuid"
)

// Setting is one key/value pair. UserID is nil for global settings.
type Setting struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Key       string     `json:"key"`
	Value     string     `json:"value"`
	IsGlobal  bool       `json:"is_global"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
