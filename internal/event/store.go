package event

import (
	"context"

	"github.com/google/uuid"

	"communityhub/internal/registry"
)

// Store persists events. Implementations return sentinel.ErrNotFound for
// missing rows. The embedded registry.SubjectStore exposes the event to the
// registration engine: AdmitOne and ReleaseOne are the only writers of
// CurrentParticipants.
type Store interface {
	registry.SubjectStore

	Create(ctx context.Context, ev Event) error
	FindByID(ctx context.Context, id uuid.UUID) (Event, error)
	Update(ctx context.Context, ev Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter Filter) ([]Event, error)
	Count(ctx context.Context) (int, error)
}
