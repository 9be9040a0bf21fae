package volunteer

import (
	"context"

	"github.com/google/uuid"

	"communityhub/internal/registry"
)

// Store persists opportunities and adapts them to the registration engine.
// Missing rows surface as sentinel.ErrNotFound.
type Store interface {
	registry.SubjectStore

	Create(ctx context.Context, op Opportunity) error
	FindByID(ctx context.Context, id uuid.UUID) (Opportunity, error)
	Update(ctx context.Context, op Opportunity) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter Filter) ([]Opportunity, error)
	Count(ctx context.Context) (int, error)
}
