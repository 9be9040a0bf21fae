package settings

import (
	"context"

	"github.com/google/uuid"
)

// Store persists settings. Upserts update the existing row for the same
// (scope, key) rather than inserting a duplicate; the partial unique indexes
// settings_user_key_uq and settings_global_key_uq back that guarantee in
// postgres. Missing rows surface as sentinel.ErrNotFound.
type Store interface {
	UpsertUser(ctx context.Context, s Setting) (Setting, error)
	FindUser(ctx context.Context, userID uuid.UUID, key string) (Setting, error)
	ListUser(ctx context.Context, userID uuid.UUID) ([]Setting, error)
	DeleteUser(ctx context.Context, userID uuid.UUID, key string) error

	UpsertGlobal(ctx context.Context, s Setting) (Setting, error)
	FindGlobal(ctx context.Context, key string) (Setting, error)
	ListGlobal(ctx context.Context) ([]Setting, error)
	DeleteGlobal(ctx context.Context, key string) error
}
