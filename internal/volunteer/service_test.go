package volunteer

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"communityhub/internal/audit"
	"communityhub/internal/authz"
	"communityhub/internal/identity"
	"communityhub/internal/platform/metrics"
	"communityhub/internal/registry"
	dErrors "communityhub/pkg/domain-errors"
)

type VolunteerServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	service *Service
}

func TestVolunteerServiceSuite(t *testing.T) {
	suite.Run(t, new(VolunteerServiceSuite))
}

func (s *VolunteerServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())

	recorder, err := audit.NewRecorder(audit.NewInMemoryStore(), logger, m)
	s.Require().NoError(err)

	engine, err := registry.NewEngine(authz.KindOpportunity, s.store, registry.NewInMemoryRegistrations(),
		registry.NewSerializedTx(), recorder, logger, m)
	s.Require().NoError(err)

	s.service, err = NewService(s.store, engine, recorder, logger)
	s.Require().NoError(err)
}

func (s *VolunteerServiceSuite) member() identity.Principal {
	return identity.Principal{ID: uuid.New(), Name: "Member", Role: identity.RoleMember}
}

func (s *VolunteerServiceSuite) admin() identity.Principal {
	return identity.Principal{ID: uuid.New(), Name: "Admin", Role: identity.RoleAdmin}
}

func (s *VolunteerServiceSuite) TestCreate() {
	ctx := context.Background()

	s.Run("missing title fails validation", func() {
		_, err := s.service.Create(ctx, s.member(), CreateInput{})
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("non-positive duration fails validation", func() {
		hours := 0
		_, err := s.service.Create(ctx, s.member(), CreateInput{Title: "Food Drive", DurationHours: &hours})
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("member creates an active opportunity", func() {
		caller := s.member()
		op, err := s.service.Create(ctx, caller, CreateInput{Title: "Food Drive", Location: "Hall"})
		s.NoError(err)
		s.Equal(StatusActive, op.Status)
		s.Equal(caller.ID, op.CreatedBy)
	})
}

func (s *VolunteerServiceSuite) TestLifecycleManagement() {
	ctx := context.Background()

	s.Run("creator cannot update their own opportunity", func() {
		caller := s.member()
		op, err := s.service.Create(ctx, caller, CreateInput{Title: "Food Drive"})
		s.Require().NoError(err)

		status := StatusCompleted
		_, err = s.service.Update(ctx, caller, op.ID, UpdateInput{Status: &status})
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
	})

	s.Run("admin completes an opportunity and registrations close", func() {
		op, err := s.service.Create(ctx, s.member(), CreateInput{Title: "Food Drive"})
		s.Require().NoError(err)

		status := StatusCompleted
		_, err = s.service.Update(ctx, s.admin(), op.ID, UpdateInput{Status: &status})
		s.Require().NoError(err)

		_, err = s.service.Register(ctx, s.member(), op.ID)
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("admin deletes an opportunity", func() {
		op, err := s.service.Create(ctx, s.member(), CreateInput{Title: "Food Drive"})
		s.Require().NoError(err)

		s.True(dErrors.Is(s.service.Delete(ctx, s.member(), op.ID), dErrors.CodeForbidden))
		s.NoError(s.service.Delete(ctx, s.admin(), op.ID))
	})
}

func (s *VolunteerServiceSuite) TestRegistrationManagement() {
	ctx := context.Background()

	s.Run("duplicate signup is rejected", func() {
		op, err := s.service.Create(ctx, s.member(), CreateInput{Title: "Food Drive"})
		s.Require().NoError(err)

		caller := s.member()
		_, err = s.service.Register(ctx, caller, op.ID)
		s.Require().NoError(err)

		_, err = s.service.Register(ctx, caller, op.ID)
		s.True(dErrors.Is(err, dErrors.CodeAlreadyRegistered))
	})

	s.Run("creator confirms a volunteer with notes", func() {
		creator := s.member()
		op, err := s.service.Create(ctx, creator, CreateInput{Title: "Food Drive"})
		s.Require().NoError(err)

		reg, err := s.service.Register(ctx, s.member(), op.ID)
		s.Require().NoError(err)

		notes := "bring gloves"
		updated, err := s.service.UpdateRegistrationStatus(ctx, creator, reg.ID, registry.StatusConfirmed, &notes)
		s.NoError(err)
		s.Equal(registry.StatusConfirmed, updated.Status)
		s.Equal("bring gloves", updated.Notes)
	})

	s.Run("unrelated member cannot manage registrations", func() {
		op, err := s.service.Create(ctx, s.member(), CreateInput{Title: "Food Drive"})
		s.Require().NoError(err)

		reg, err := s.service.Register(ctx, s.member(), op.ID)
		s.Require().NoError(err)

		_, err = s.service.UpdateRegistrationStatus(ctx, s.member(), reg.ID, registry.StatusConfirmed, nil)
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
	})

	s.Run("capacity limits volunteers", func() {
		limit := 2
		op, err := s.service.Create(ctx, s.member(), CreateInput{Title: "Food Drive", MaxVolunteers: &limit})
		s.Require().NoError(err)

		_, err = s.service.Register(ctx, s.member(), op.ID)
		s.Require().NoError(err)
		_, err = s.service.Register(ctx, s.member(), op.ID)
		s.Require().NoError(err)

		_, err = s.service.Register(ctx, s.member(), op.ID)
		s.True(dErrors.Is(err, dErrors.CodeCapacityExceeded))
	})
}
