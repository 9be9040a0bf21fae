// Package admin is the administrative surface: the dashboard aggregate,
// account administration, and audit trail review. Everything here requires
// the ADMIN role.
package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"communityhub/internal/audit"
	"communityhub/internal/authz"
	"communityhub/internal/identity"
	"communityhub/internal/user"
	dErrors "communityhub/pkg/domain-errors"
)

// Counter reports how many entities a feature holds. Each feature service
// satisfies it with its Count method.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// Service aggregates the feature services for the admin surface.
type Service struct {
	users       *user.Service
	recorder    *audit.Recorder
	events      Counter
	volunteers  Counter
	discussions Counter
	documents   Counter
	logger      *slog.Logger
}

func NewService(users *user.Service, recorder *audit.Recorder, events, volunteers, discussions, documents Counter, logger *slog.Logger) (*Service, error) {
	if users == nil || recorder == nil {
		return nil, fmt.Errorf("user service and audit recorder are required")
	}
	return &Service{
		users:       users,
		recorder:    recorder,
		events:      events,
		volunteers:  volunteers,
		discussions: discussions,
		documents:   documents,
		logger:      logger,
	}, nil
}

// Dashboard is the admin landing aggregate.
type Dashboard struct {
	Users       user.Counts `json:"users"`
	Events      int         `json:"events"`
	Volunteers  int         `json:"volunteer_opportunities"`
	Discussions int         `json:"discussions"`
	Documents   int         `json:"documents"`
}

// Stats gathers the dashboard counts. The per-feature counts run
// concurrently; each is an independent read.
func (s *Service) Stats(ctx context.Context, caller identity.Principal) (Dashboard, error) {
	if err := s.requireAdmin(caller); err != nil {
		return Dashboard{}, err
	}

	var dash Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.users.Stats(gctx)
		dash.Users = counts
		return err
	})
	g.Go(func() error { return s.count(gctx, s.events, &dash.Events) })
	g.Go(func() error { return s.count(gctx, s.volunteers, &dash.Volunteers) })
	g.Go(func() error { return s.count(gctx, s.discussions, &dash.Discussions) })
	g.Go(func() error { return s.count(gctx, s.documents, &dash.Documents) })

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return dash, nil
}

func (s *Service) count(ctx context.Context, c Counter, dst *int) error {
	if c == nil {
		return nil
	}
	n, err := c.Count(ctx)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

// ListUsers returns every account.
func (s *Service) ListUsers(ctx context.Context, caller identity.Principal) ([]user.User, error) {
	return s.users.ListUsers(ctx, caller)
}

// GetUser returns one account.
func (s *Service) GetUser(ctx context.Context, caller identity.Principal, id uuid.UUID) (user.User, error) {
	return s.users.GetUser(ctx, caller, id)
}

// UpdateUserRole promotes or demotes an account.
func (s *Service) UpdateUserRole(ctx context.Context, caller identity.Principal, id uuid.UUID, role identity.Role) (user.User, error) {
	if caller.ID == id {
		return user.User{}, dErrors.New(dErrors.CodeValidation, "cannot change your own role")
	}
	return s.users.UpdateRole(ctx, caller, id, role)
}

// DeleteUser removes an account permanently.
func (s *Service) DeleteUser(ctx context.Context, caller identity.Principal, id uuid.UUID) error {
	if caller.ID == id {
		return dErrors.New(dErrors.CodeValidation, "cannot delete your own account")
	}
	return s.users.DeleteUser(ctx, caller, id)
}

// RecentAuditLogs returns the newest audit records.
func (s *Service) RecentAuditLogs(ctx context.Context, caller identity.Principal, limit int) ([]audit.Record, error) {
	if err := s.requireAdmin(caller); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	records, err := s.recorder.ListRecent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list audit records")
	}
	return records, nil
}

// EntityAuditLogs returns the trail for one entity.
func (s *Service) EntityAuditLogs(ctx context.Context, caller identity.Principal, kind authz.EntityKind, entityID uuid.UUID) ([]audit.Record, error) {
	if err := s.requireAdmin(caller); err != nil {
		return nil, err
	}
	records, err := s.recorder.ListByEntity(ctx, kind, entityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list audit records")
	}
	return records, nil
}

// ActorAuditLogs returns every action performed by one actor.
func (s *Service) ActorAuditLogs(ctx context.Context, caller identity.Principal, actorID uuid.UUID) ([]audit.Record, error) {
	if err := s.requireAdmin(caller); err != nil {
		return nil, err
	}
	records, err := s.recorder.ListByActor(ctx, actorID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list audit records")
	}
	return records, nil
}

func (s *Service) requireAdmin(caller identity.Principal) error {
	if caller.Anonymous() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !caller.IsAdmin() {
		return dErrors.New(dErrors.CodeForbidden, "administrator access required")
	}
	return nil
}
