package settings

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

type SettingsServiceSuite struct {
	suite.Suite
	service *Service
}

func TestSettingsServiceSuite(t *testing.T) {
	suite.Run(t, new(SettingsServiceSuite))
}

func (s *SettingsServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())

	recorder, err := audit.NewRecorder(audit.NewInMemoryStore(), logger, m)
	s.Require().NoError(err)

	s.service, err = NewService(NewInMemoryStore(), recorder, logger)
	s.Require().NoError(err)
}

func (s *SettingsServiceSuite) member() identity.Principal {
	return identity.Principal{ID: uuid.New(), Name: "Member", Role: identity.RoleMember}
}

func (s *SettingsServiceSuite) admin() identity.Principal {
	return identity.Principal{ID: uuid.New(), Name: "Admin", Role: identity.RoleAdmin}
}

func (s *SettingsServiceSuite) TestUserScope() {
	ctx := context.Background()

	s.Run("anonymous caller is rejected", func() {
		_, err := s.service.SetUser(ctx, identity.Principal{}, "theme", "dark")
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("set then get round-trips", func() {
		caller := s.member()
		_, err := s.service.SetUser(ctx, caller, "theme", "dark")
		s.Require().NoError(err)

		got, err := s.service.GetUser(ctx, caller, "theme")
		s.NoError(err)
		s.Equal("dark", got.Value)
	})

	s.Run("second set updates in place", func() {
		caller := s.member()
		first, err := s.service.SetUser(ctx, caller, "theme", "dark")
		s.Require().NoError(err)

		second, err := s.service.SetUser(ctx, caller, "theme", "light")
		s.Require().NoError(err)
		s.Equal(first.ID, second.ID)
		s.Equal("light", second.Value)

		all, err := s.service.ListUser(ctx, caller)
		s.Require().NoError(err)
		s.Len(all, 1)
	})

	s.Run("settings are scoped per user", func() {
		alice, bob := s.member(), s.member()
		_, err := s.service.SetUser(ctx, alice, "theme", "dark")
		s.Require().NoError(err)

		_, err = s.service.GetUser(ctx, bob, "theme")
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("delete removes the key", func() {
		caller := s.member()
		_, err := s.service.SetUser(ctx, caller, "theme", "dark")
		s.Require().NoError(err)

		s.NoError(s.service.DeleteUser(ctx, caller, "theme"))

		_, err = s.service.GetUser(ctx, caller, "theme")
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *SettingsServiceSuite) TestGlobalScope() {
	ctx := context.Background()

	s.Run("member cannot write globals", func() {
		_, err := s.service.SetGlobal(ctx, s.member(), "banner", "welcome")
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
	})

	s.Run("admin writes, anyone reads", func() {
		_, err := s.service.SetGlobal(ctx, s.admin(), "banner", "welcome")
		s.Require().NoError(err)

		got, err := s.service.GetGlobal(ctx, "banner")
		s.NoError(err)
		s.Equal("welcome", got.Value)
		s.True(got.IsGlobal)
	})

	s.Run("admin update replaces the value, not the row", func() {
		first, err := s.service.SetGlobal(ctx, s.admin(), "banner", "welcome")
		s.Require().NoError(err)

		second, err := s.service.SetGlobal(ctx, s.admin(), "banner", "closed for maintenance")
		s.Require().NoError(err)
		s.Equal(first.ID, second.ID)

		all, err := s.service.ListGlobal(ctx)
		s.Require().NoError(err)
		s.Len(all, 1)
	})

	s.Run("member cannot delete globals", func() {
		_, err := s.service.SetGlobal(ctx, s.admin(), "banner", "welcome")
		s.Require().NoError(err)

		err = s.service.DeleteGlobal(ctx, s.member(), "banner")
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
	})

	s.Run("admin deletes a global", func() {
		_, err := s.service.SetGlobal(ctx, s.admin(), "banner", "welcome")
		s.Require().NoError(err)

		s.NoError(s.service.DeleteGlobal(ctx, s.admin(), "banner"))

		_, err = s.service.GetGlobal(ctx, "banner")
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}
