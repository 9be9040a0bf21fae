package notification

import (
	"context"

	"github.com/google/uuid"
)

// Store persists notifications. All per-notification operations are scoped by
// owner: a (id, userID) pair that does not match returns sentinel.ErrNotFound,
// which keeps foreign notifications indistinguishable from absent ones.
type Store interface {
	Create(ctx context.Context, n Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Notification, error)
	ListUnread(ctx context.Context, userID uuid.UUID) ([]Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) (Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
}
