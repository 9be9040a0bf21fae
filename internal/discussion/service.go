package discussion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"communityhub/internal/audit"
	"communityhub/internal/authz"
	"communityhub/internal/identity"
	dErrors "communityhub/pkg/domain-errors"
	"communityhub/pkg/platform/sentinel"
)

// Service owns thread and reply lifecycle.
type Service struct {
	store    Store
	recorder *audit.Recorder
	logger   *slog.Logger
}

func NewService(store Store, recorder *audit.Recorder, logger *slog.Logger) (*Service, error) {
	if store == nil || recorder == nil {
		return nil, fmt.Errorf("discussion store and audit recorder are required")
	}
	return &Service{store: store, recorder: recorder, logger: logger}, nil
}

// CreateInput carries the caller-supplied fields for a new thread.
type CreateInput struct {
	Title    string
	Content  string
	Category string
}

func (in CreateInput) validate() error {
	if in.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if in.Content == "" {
		return dErrors.New(dErrors.CodeValidation, "content is required")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, caller identity.Principal, in CreateInput) (Discussion, error) {
	if caller.Anonymous() {
		return Discussion{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if authz.Decide(authz.ActionCreate, authz.KindDiscussion, caller, false) != authz.Allow {
		return Discussion{}, dErrors.New(dErrors.CodeForbidden, "not permitted to create discussions")
	}
	if err := in.validate(); err != nil {
		return Discussion{}, err
	}

	now := time.Now().UTC()
	d := Discussion{
		ID:        uuid.New(),
		Title:     in.Title,
		Content:   in.Content,
		Category:  in.Category,
		CreatedBy: caller.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateDiscussion(ctx, d); err != nil {
		return Discussion{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to create discussion")
	}

	s.recorder.Record(ctx, &caller.ID, audit.ActionCreateDiscussion, authz.KindDiscussion, d.ID, nil, d)
	return d, nil
}

// Get returns one thread and counts the view.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Discussion, error) {
	d, err := s.store.FindAndView(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Discussion{}, dErrors.New(dErrors.CodeNotFound, "discussion not found")
		}
		return Discussion{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load discussion")
	}
	return d, nil
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Discussion, error) {
	out, err := s.store.ListDiscussions(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list discussions")
	}
	return out, nil
}

// UpdateInput applies partial changes; nil fields are left untouched. Pinning
// and locking ride the same update path and the same owner-or-admin check.
type UpdateInput struct {
	Title    *string
	Content  *string
	Category *string
	IsPinned *bool
	IsLocked *bool
}

func (s *Service) Update(ctx context.Context, caller identity.Principal, id uuid.UUID, in UpdateInput) (Discussion, error) {
	before, err := s.find(ctx, id)
	if err != nil {
		return Discussion{}, err
	}
	if authz.Decide(authz.ActionUpdate, authz.KindDiscussion, caller, caller.Owns(before.CreatedBy)) != authz.Allow {
		return Discussion{}, dErrors.New(dErrors.CodeForbidden, "not permitted to update this discussion")
	}

	d := before
	if in.Title != nil {
		if *in.Title == "" {
			return Discussion{}, dErrors.New(dErrors.CodeValidation, "title is required")
		}
		d.Title = *in.Title
	}
	if in.Content != nil {
		if *in.Content == "" {
			return Discussion{}, dErrors.New(dErrors.CodeValidation, "content is required")
		}
		d.Content = *in.Content
	}
	if in.Category != nil {
		d.Category = *in.Category
	}
	if in.IsPinned != nil {
		d.IsPinned = *in.IsPinned
	}
	if in.IsLocked != nil {
		d.IsLocked = *in.IsLocked
	}
	d.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateDiscussion(ctx, d); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Discussion{}, dErrors.New(dErrors.CodeNotFound, "discussion not found")
		}
		return Discussion{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to update discussion")
	}

	s.recorder.Record(ctx, &caller.ID, audit.ActionUpdateDiscussion, authz.KindDiscussion, d.ID, before, d)
	return d, nil
}

func (s *Service) Delete(ctx context.Context, caller identity.Principal, id uuid.UUID) error {
	before, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if authz.Decide(authz.ActionDelete, authz.KindDiscussion, caller, caller.Owns(before.CreatedBy)) != authz.Allow {
		return dErrors.New(dErrors.CodeForbidden, "not permitted to delete this discussion")
	}

	if err := s.store.DeleteDiscussion(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "discussion not found")
		}
		return dErrors.Wrap(err, dErrors.CodeStorage, "failed to delete discussion")
	}

	s.recorder.Record(ctx, &caller.ID, audit.ActionDeleteDiscussion, authz.KindDiscussion, id, before, nil)
	return nil
}

// ReplyInput carries the caller-supplied fields for a new reply.
type ReplyInput struct {
	Content       string
	ParentReplyID *uuid.UUID
}

// AddReply posts a reply to an unlocked thread.
func (s *Service) AddReply(ctx context.Context, caller identity.Principal, discussionID uuid.UUID, in ReplyInput) (Reply, error) {
	if caller.Anonymous() {
		return Reply{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if in.Content == "" {
		return Reply{}, dErrors.New(dErrors.CodeValidation, "content is required")
	}

	d, err := s.find(ctx, discussionID)
	if err != nil {
		return Reply{}, err
	}
	if d.IsLocked {
		return Reply{}, dErrors.New(dErrors.CodeValidation, "discussion is locked")
	}

	now := time.Now().UTC()
	r := Reply{
		ID:            uuid.New(),
		DiscussionID:  discussionID,
		ParentReplyID: in.ParentReplyID,
		Content:       in.Content,
		CreatedBy:     caller.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateReply(ctx, r); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Reply{}, dErrors.New(dErrors.CodeNotFound, "parent reply not found")
		}
		return Reply{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to create reply")
	}
	return r, nil
}

func (s *Service) Replies(ctx context.Context, discussionID uuid.UUID) ([]Reply, error) {
	if _, err := s.find(ctx, discussionID); err != nil {
		return nil, err
	}
	out, err := s.store.ListReplies(ctx, discussionID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list replies")
	}
	return out, nil
}

func (s *Service) UpdateReply(ctx context.Context, caller identity.Principal, replyID uuid.UUID, content string) (Reply, error) {
	if content == "" {
		return Reply{}, dErrors.New(dErrors.CodeValidation, "content is required")
	}
	before, err := s.findReply(ctx, replyID)
	if err != nil {
		return Reply{}, err
	}
	if authz.Decide(authz.ActionUpdate, authz.KindReply, caller, caller.Owns(before.CreatedBy)) != authz.Allow {
		return Reply{}, dErrors.New(dErrors.CodeForbidden, "not permitted to update this reply")
	}

	r := before
	r.Content = content
	r.UpdatedAt = time.Now().UTC()
	if err := s.store.UpdateReply(ctx, r); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Reply{}, dErrors.New(dErrors.CodeNotFound, "reply not found")
		}
		return Reply{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to update reply")
	}
	return r, nil
}

func (s *Service) DeleteReply(ctx context.Context, caller identity.Principal, replyID uuid.UUID) error {
	before, err := s.findReply(ctx, replyID)
	if err != nil {
		return err
	}
	if authz.Decide(authz.ActionDelete, authz.KindReply, caller, caller.Owns(before.CreatedBy)) != authz.Allow {
		return dErrors.New(dErrors.CodeForbidden, "not permitted to delete this reply")
	}

	if err := s.store.DeleteReply(ctx, replyID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "reply not found")
		}
		return dErrors.Wrap(err, dErrors.CodeStorage, "failed to delete reply")
	}

	s.recorder.Record(ctx, &caller.ID, audit.ActionDeleteReply, authz.KindReply, replyID, before, nil)
	return nil
}

// Count reports the total number of threads. Used by the admin dashboard.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.CountDiscussions(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStorage, "failed to count discussions")
	}
	return n, nil
}

// find loads a thread without bumping the view counter.
func (s *Service) find(ctx context.Context, id uuid.UUID) (Discussion, error) {
	d, err := s.store.FindDiscussion(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Discussion{}, dErrors.New(dErrors.CodeNotFound, "discussion not found")
		}
		return Discussion{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load discussion")
	}
	return d, nil
}

func (s *Service) findReply(ctx context.Context, id uuid.UUID) (Reply, error) {
	r, err := s.store.FindReply(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Reply{}, dErrors.New(dErrors.CodeNotFound, "reply not found")
		}
		return Reply{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load reply")
	}
	return r, nil
}
