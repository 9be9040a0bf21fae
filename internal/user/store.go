package user

import (
	"context"

	"github.com/google/uuid"

	"communityhub/internal/identity"
)

// Store persists user accounts. Create returns sentinel.ErrConflict when the
// email is already taken; lookups return sentinel.ErrNotFound for missing rows.
type Store interface {
	Create(ctx context.Context, u User) error
	FindByID(ctx context.Context, id uuid.UUID) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	Update(ctx context.Context, u User) error
	UpdateRole(ctx context.Context, id uuid.UUID, role identity.Role) (User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]User, error)
	Count(ctx context.Context) (int, error)
	CountActive(ctx context.Context) (int, error)
	CountByRole(ctx context.Context, role identity.Role) (int, error)
}
