package notification

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"communityhub/internal/identity"
	dErrors "communityhub/pkg/domain-errors"
)

type NotificationServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	service *Service
}

func TestNotificationServiceSuite(t *testing.T) {
	suite.Run(t, new(NotificationServiceSuite))
}

func (s *NotificationServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()

	var err error
	s.service, err = NewService(s.store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.Require().NoError(err)
}

func (s *NotificationServiceSuite) user() identity.Principal {
	return identity.Principal{ID: uuid.New(), Role: identity.RoleMember}
}

func (s *NotificationServiceSuite) TestNotifyAndList() {
	ctx := context.Background()
	owner := s.user()

	s.service.Notify(ctx, owner.ID, "Your registration was accepted.", "registration", uuid.New())
	s.service.Notify(ctx, owner.ID, "Your registration was confirmed.", "registration", uuid.New())

	list, err := s.service.List(ctx, owner)
	s.NoError(err)
	s.Len(list, 2)

	count, err := s.service.UnreadCount(ctx, owner)
	s.NoError(err)
	s.Equal(2, count)
}

func (s *NotificationServiceSuite) TestOwnerScoping() {
	ctx := context.Background()
	owner := s.user()
	stranger := s.user()

	s.service.Notify(ctx, owner.ID, "hello", "system", uuid.Nil)
	list, err := s.service.List(ctx, owner)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	id := list[0].ID

	s.Run("foreign mark-read is not found", func() {
		_, err := s.service.MarkRead(ctx, stranger, id)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("foreign delete is not found", func() {
		err := s.service.Delete(ctx, stranger, id)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("owner marks read", func() {
		n, err := s.service.MarkRead(ctx, owner, id)
		s.NoError(err)
		s.True(n.IsRead)

		count, err := s.service.UnreadCount(ctx, owner)
		s.NoError(err)
		s.Equal(0, count)
	})

	s.Run("owner deletes", func() {
		s.NoError(s.service.Delete(ctx, owner, id))
		list, err := s.service.List(ctx, owner)
		s.NoError(err)
		s.Empty(list)
	})
}

func (s *NotificationServiceSuite) TestMarkAllRead() {
	ctx := context.Background()
	owner := s.user()

	for range 3 {
		s.service.Notify(ctx, owner.ID, "ping", "system", uuid.Nil)
	}
	s.NoError(s.service.MarkAllRead(ctx, owner))

	count, err := s.service.UnreadCount(ctx, owner)
	s.NoError(err)
	s.Equal(0, count)
}

func (s *NotificationServiceSuite) TestAnonymousRejected() {
	ctx := context.Background()
	_, err := s.service.List(ctx, identity.Principal{})
	s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
}
