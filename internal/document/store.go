package document

import (
	"context"

	"github.com/google/uuid"
)

// Store persists document metadata. Missing rows surface as
// sentinel.ErrNotFound. RecordDownload bumps the download counter atomically.
type Store interface {
	Create(ctx context.Context, d Document) error
	FindByID(ctx context.Context, id uuid.UUID) (Document, error)
	Update(ctx context.Context, d Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter Filter) ([]Document, error)
	Count(ctx context.Context) (int, error)
	RecordDownload(ctx context.Context, id uuid.UUID) error
}
