package discussion

import (
	"context"

	"github.com/google/uuid"
)

// Store persists threads and replies. Missing rows surface as
// sentinel.ErrNotFound. FindAndView bumps the view counter atomically with
// the read; CreateReply and DeleteReply keep the thread's reply counter in
// step with the reply set.
type Store interface {
	CreateDiscussion(ctx context.Context, d Discussion) error
	FindDiscussion(ctx context.Context, id uuid.UUID) (Discussion, error)
	FindAndView(ctx context.Context, id uuid.UUID) (Discussion, error)
	UpdateDiscussion(ctx context.Context, d Discussion) error
	DeleteDiscussion(ctx context.Context, id uuid.UUID) error
	ListDiscussions(ctx context.Context, filter Filter) ([]Discussion, error)
	CountDiscussions(ctx context.Context) (int, error)

	CreateReply(ctx context.Context, r Reply) error
	FindReply(ctx context.Context, id uuid.UUID) (Reply, error)
	UpdateReply(ctx context.Context, r Reply) error
	DeleteReply(ctx context.Context, id uuid.UUID) error
	ListReplies(ctx context.Context, discussionID uuid.UUID) ([]Reply, error)
}
