package discussion

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"communityhub/internal/audit"
	"communityhub/internal/identity"
	"communityhub/internal/platform/metrics"
	dErrors "communityhub/pkg/domain-errors"
)

type DiscussionServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	service *Service
}

func TestDiscussionServiceSuite(t *testing.T) {
	suite.Run(t, new(DiscussionServiceSuite))
}

func (s *DiscussionServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())

	recorder, err := audit.NewRecorder(audit.NewInMemoryStore(), logger, m)
	s.Require().NoError(err)

	s.service, err = NewService(s.store, recorder, logger)
	s.Require().NoError(err)
}

func (s *DiscussionServiceSuite) member() identity.Principal {
	return identity.Principal{ID: uuid.New(), Name: "Member", Role: identity.RoleMember}
}

func (s *DiscussionServiceSuite) admin() identity.Principal {
	return identity.Principal{ID: uuid.New(), Name: "Admin", Role: identity.RoleAdmin}
}

func (s *DiscussionServiceSuite) validInput() CreateInput {
	return CreateInput{Title: "Parking rules", Content: "Where should guests park?", Category: "General"}
}

func (s *DiscussionServiceSuite) TestCreate() {
	ctx := context.Background()

	s.Run("anonymous caller is rejected", func() {
		_, err := s.service.Create(ctx, identity.Principal{}, s.validInput())
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("missing content fails validation", func() {
		in := s.validInput()
		in.Content = ""
		_, err := s.service.Create(ctx, s.member(), in)
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("member creates an unlocked thread", func() {
		caller := s.member()
		d, err := s.service.Create(ctx, caller, s.validInput())
		s.NoError(err)
		s.Equal(caller.ID, d.CreatedBy)
		s.False(d.IsLocked)
		s.Equal(0, d.ViewCount)
	})
}

func (s *DiscussionServiceSuite) TestGetCountsViews() {
	ctx := context.Background()

	d, err := s.service.Create(ctx, s.member(), s.validInput())
	s.Require().NoError(err)

	s.Run("every read bumps the view counter", func() {
		first, err := s.service.Get(ctx, d.ID)
		s.NoError(err)
		s.Equal(1, first.ViewCount)

		second, err := s.service.Get(ctx, d.ID)
		s.NoError(err)
		s.Equal(2, second.ViewCount)
	})

	s.Run("unknown thread returns not found", func() {
		_, err := s.service.Get(ctx, uuid.New())
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *DiscussionServiceSuite) TestUpdate() {
	ctx := context.Background()

	s.Run("author updates their own thread", func() {
		caller := s.member()
		d, err := s.service.Create(ctx, caller, s.validInput())
		s.Require().NoError(err)

		title := "Guest parking rules"
		updated, err := s.service.Update(ctx, caller, d.ID, UpdateInput{Title: &title})
		s.NoError(err)
		s.Equal("Guest parking rules", updated.Title)
	})

	s.Run("unrelated member is forbidden", func() {
		d, err := s.service.Create(ctx, s.member(), s.validInput())
		s.Require().NoError(err)

		title := "Hijacked"
		_, err = s.service.Update(ctx, s.member(), d.ID, UpdateInput{Title: &title})
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
	})

	s.Run("admin pins and locks any thread", func() {
		d, err := s.service.Create(ctx, s.member(), s.validInput())
		s.Require().NoError(err)

		pinned, locked := true, true
		updated, err := s.service.Update(ctx, s.admin(), d.ID, UpdateInput{IsPinned: &pinned, IsLocked: &locked})
		s.NoError(err)
		s.True(updated.IsPinned)
		s.True(updated.IsLocked)
	})

	s.Run("update does not reset counters", func() {
		d, err := s.service.Create(ctx, s.member(), s.validInput())
		s.Require().NoError(err)

		_, err = s.service.Get(ctx, d.ID)
		s.Require().NoError(err)

		title := "Still counted"
		updated, err := s.service.Update(ctx, s.admin(), d.ID, UpdateInput{Title: &title})
		s.NoError(err)
		s.Equal(1, updated.ViewCount)
	})
}

func (s *DiscussionServiceSuite) TestDelete() {
	ctx := context.Background()

	s.Run("author deletes their own thread", func() {
		caller := s.member()
		d, err := s.service.Create(ctx, caller, s.validInput())
		s.Require().NoError(err)

		s.NoError(s.service.Delete(ctx, caller, d.ID))

		_, err = s.service.Get(ctx, d.ID)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("unrelated member is forbidden", func() {
		d, err := s.service.Create(ctx, s.member(), s.validInput())
		s.Require().NoError(err)

		err = s.service.Delete(ctx, s.member(), d.ID)
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
	})
}

func (s *DiscussionServiceSuite) TestReplies() {
	ctx := context.Background()

	s.Run("reply bumps the thread's reply count", func() {
		d, err := s.service.Create(ctx, s.member(), s.validInput())
		s.Require().NoError(err)

		_, err = s.service.AddReply(ctx, s.member(), d.ID, ReplyInput{Content: "Lot B is open"})
		s.NoError(err)

		reloaded, err := s.service.Get(ctx, d.ID)
		s.Require().NoError(err)
		s.Equal(1, reloaded.ReplyCount)
	})

	s.Run("locked thread rejects replies", func() {
		d, err := s.service.Create(ctx, s.member(), s.validInput())
		s.Require().NoError(err)

		locked := true
		_, err = s.service.Update(ctx, s.admin(), d.ID, UpdateInput{IsLocked: &locked})
		s.Require().NoError(err)

		_, err = s.service.AddReply(ctx, s.member(), d.ID, ReplyInput{Content: "too late"})
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("nested reply must reference a parent in the same thread", func() {
		first, err := s.service.Create(ctx, s.member(), s.validInput())
		s.Require().NoError(err)
		second, err := s.service.Create(ctx, s.member(), s.validInput())
		s.Require().NoError(err)

		parent, err := s.service.AddReply(ctx, s.member(), first.ID, ReplyInput{Content: "parent"})
		s.Require().NoError(err)

		child, err := s.service.AddReply(ctx, s.member(), first.ID, ReplyInput{Content: "child", ParentReplyID: &parent.ID})
		s.NoError(err)
		s.Equal(&parent.ID, child.ParentReplyID)

		_, err = s.service.AddReply(ctx, s.member(), second.ID, ReplyInput{Content: "stray", ParentReplyID: &parent.ID})
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("author edits their own reply, strangers cannot", func() {
		d, err := s.service.Create(ctx, s.member(), s.validInput())
		s.Require().NoError(err)

		author := s.member()
		reply, err := s.service.AddReply(ctx, author, d.ID, ReplyInput{Content: "draft"})
		s.Require().NoError(err)

		updated, err := s.service.UpdateReply(ctx, author, reply.ID, "final")
		s.NoError(err)
		s.Equal("final", updated.Content)

		_, err = s.service.UpdateReply(ctx, s.member(), reply.ID, "vandalism")
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
	})

	s.Run("deleting a reply decrements the count and detaches children", func() {
		d, err := s.service.Create(ctx, s.member(), s.validInput())
		s.Require().NoError(err)

		parent, err := s.service.AddReply(ctx, s.member(), d.ID, ReplyInput{Content: "parent"})
		s.Require().NoError(err)
		child, err := s.service.AddReply(ctx, s.member(), d.ID, ReplyInput{Content: "child", ParentReplyID: &parent.ID})
		s.Require().NoError(err)

		s.NoError(s.service.DeleteReply(ctx, s.admin(), parent.ID))

		reloaded, err := s.service.Get(ctx, d.ID)
		s.Require().NoError(err)
		s.Equal(1, reloaded.ReplyCount)

		replies, err := s.service.Replies(ctx, d.ID)
		s.Require().NoError(err)
		s.Require().Len(replies, 1)
		s.Equal(child.ID, replies[0].ID)
		s.Nil(replies[0].ParentReplyID)
	})
}
