package user

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"communityhub/internal/audit"
	"communityhub/internal/identity"
	"communityhub/internal/platform/metrics"
	dErrors "communityhub/pkg/domain-errors"
)

type UserServiceSuite struct {
	suite.Suite
	store    *InMemoryStore
	auditLog *audit.InMemoryStore
	notified []uuid.UUID
	service  *Service
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceSuite))
}

type notifierFunc func(ctx context.Context, userID uuid.UUID, message, notifType string, relatedID uuid.UUID)

func (f notifierFunc) Notify(ctx context.Context, userID uuid.UUID, message, notifType string, relatedID uuid.UUID) {
	f(ctx, userID, message, notifType, relatedID)
}

func (s *UserServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.auditLog = audit.NewInMemoryStore()
	s.notified = nil

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder, err := audit.NewRecorder(s.auditLog, logger, metrics.New(prometheus.NewRegistry()))
	s.Require().NoError(err)

	s.service, err = NewService(s.store, nil, recorder, logger,
		WithNotifier(notifierFunc(func(_ context.Context, userID uuid.UUID, _, _ string, _ uuid.UUID) {
			s.notified = append(s.notified, userID)
		})))
	s.Require().NoError(err)
}

func (s *UserServiceSuite) seedUser(role identity.Role, active bool) User {
	u := User{
		ID:        uuid.New(),
		Email:     strings.ToLower(uuid.NewString()) + "@example.org",
		FullName:  "Test User",
		Role:      role,
		IsActive:  active,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.Require().NoError(s.store.Create(context.Background(), u))
	return u
}

func (s *UserServiceSuite) TestPrincipalByID() {
	ctx := context.Background()

	s.Run("active account resolves", func() {
		u := s.seedUser(identity.RoleMember, true)
		p, err := s.service.PrincipalByID(ctx, u.ID)
		s.NoError(err)
		s.Equal(u.ID, p.ID)
		s.Equal(identity.RoleMember, p.Role)
	})

	s.Run("deactivated account is not found", func() {
		u := s.seedUser(identity.RoleMember, false)
		_, err := s.service.PrincipalByID(ctx, u.ID)
		s.Error(err)
	})
}

func (s *UserServiceSuite) TestUpdateProfile() {
	ctx := context.Background()
	u := s.seedUser(identity.RoleMember, true)

	s.Run("empty full name fails validation", func() {
		empty := ""
		_, err := s.service.UpdateProfile(ctx, u.Principal(), ProfileInput{FullName: &empty})
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("partial update keeps untouched fields", func() {
		city := "Springfield"
		updated, err := s.service.UpdateProfile(ctx, u.Principal(), ProfileInput{City: &city})
		s.NoError(err)
		s.Equal("Springfield", updated.City)
		s.Equal(u.FullName, updated.FullName)
	})
}

func (s *UserServiceSuite) TestRoleManagement() {
	ctx := context.Background()
	admin := s.seedUser(identity.RoleAdmin, true)
	member := s.seedUser(identity.RoleMember, true)

	s.Run("member cannot change roles", func() {
		_, err := s.service.UpdateRole(ctx, member.Principal(), admin.ID, identity.RoleMember)
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
	})

	s.Run("unknown role fails validation", func() {
		_, err := s.service.UpdateRole(ctx, admin.Principal(), member.ID, identity.Role("OVERLORD"))
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("admin promotes a member and the member is notified", func() {
		updated, err := s.service.UpdateRole(ctx, admin.Principal(), member.ID, identity.RoleAdmin)
		s.NoError(err)
		s.Equal(identity.RoleAdmin, updated.Role)
		s.Contains(s.notified, member.ID)
	})
}

func (s *UserServiceSuite) TestDeleteUser() {
	ctx := context.Background()
	admin := s.seedUser(identity.RoleAdmin, true)
	member := s.seedUser(identity.RoleMember, true)

	s.Run("member cannot delete accounts", func() {
		err := s.service.DeleteUser(ctx, member.Principal(), admin.ID)
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
	})

	s.Run("admin deletes an account", func() {
		s.NoError(s.service.DeleteUser(ctx, admin.Principal(), member.ID))
		_, err := s.service.GetUser(ctx, admin.Principal(), member.ID)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("deleting twice is not found", func() {
		err := s.service.DeleteUser(ctx, admin.Principal(), member.ID)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *UserServiceSuite) TestStats() {
	ctx := context.Background()
	s.seedUser(identity.RoleAdmin, true)
	s.seedUser(identity.RoleMember, true)
	s.seedUser(identity.RoleMember, false)

	counts, err := s.service.Stats(ctx)
	s.NoError(err)
	s.Equal(3, counts.Total)
	s.Equal(2, counts.Active)
	s.Equal(1, counts.Admins)
	s.Equal(2, counts.Members)
}
