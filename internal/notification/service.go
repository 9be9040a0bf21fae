package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"communityhub/internal/identity"
	dErrors "communityhub/pkg/domain-errors"
	"communityhub/pkg/platform/sentinel"
)

// Service emits and serves notifications. It implements the registration
// engine's Notifier interface.
type Service struct {
	store  Store
	logger *slog.Logger
}

func NewService(store Store, logger *slog.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("notification store is required")
	}
	return &Service{store: store, logger: logger}, nil
}

// Notify persists a notification for userID. Failures are logged and
// swallowed: notification delivery is best-effort and must never surface into
// the triggering operation.
func (s *Service) Notify(ctx context.Context, userID uuid.UUID, message, notifType string, relatedID uuid.UUID) {
	n := Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Message:   message,
		Type:      notifType,
		CreatedAt: time.Now().UTC(),
	}
	if relatedID != uuid.Nil {
		n.RelatedEntityID = &relatedID
	}
	if err := s.store.Create(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "notification delivery failed",
			"user_id", userID,
			"type", notifType,
			"error", err,
		)
	}
}

func (s *Service) List(ctx context.Context, caller identity.Principal) ([]Notification, error) {
	if caller.Anonymous() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	out, err := s.store.ListByUser(ctx, caller.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list notifications")
	}
	return out, nil
}

func (s *Service) Unread(ctx context.Context, caller identity.Principal) ([]Notification, error) {
	if caller.Anonymous() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	out, err := s.store.ListUnread(ctx, caller.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list unread notifications")
	}
	return out, nil
}

func (s *Service) UnreadCount(ctx context.Context, caller identity.Principal) (int, error) {
	if caller.Anonymous() {
		return 0, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	n, err := s.store.CountUnread(ctx, caller.ID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStorage, "failed to count unread notifications")
	}
	return n, nil
}

// MarkRead marks one of the caller's notifications as read. A foreign or
// missing notification is NotFound either way.
func (s *Service) MarkRead(ctx context.Context, caller identity.Principal, id uuid.UUID) (Notification, error) {
	if caller.Anonymous() {
		return Notification{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	n, err := s.store.MarkRead(ctx, id, caller.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Notification{}, dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		return Notification{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to mark notification read")
	}
	return n, nil
}

func (s *Service) MarkAllRead(ctx context.Context, caller identity.Principal) error {
	if caller.Anonymous() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if err := s.store.MarkAllRead(ctx, caller.ID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorage, "failed to mark notifications read")
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, caller identity.Principal, id uuid.UUID) error {
	if caller.Anonymous() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if err := s.store.Delete(ctx, id, caller.ID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		return dErrors.Wrap(err, dErrors.CodeStorage, "failed to delete notification")
	}
	return nil
}
