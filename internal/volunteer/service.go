package volunteer

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
	"communityhub/internal/registry"
	dErrors "communityhub/pkg/domain-errors"
	"communityhub/pkg/platform/sentinel"
)

// Service owns opportunity lifecycle; registration mechanics live in the
// shared engine.
type Service struct {
	store    Store
	engine   *registry.Engine
	recorder *audit.Recorder
	logger   *slog.Logger
}

func NewService(store Store, engine *registry.Engine, recorder *audit.Recorder, logger *slog.Logger) (*Service, error) {
	if store == nil || engine == nil || recorder == nil {
		return nil, fmt.Errorf("opportunity store, registration engine, and audit recorder are required")
	}
	return &Service{store: store, engine: engine, recorder: recorder, logger: logger}, nil
}

type CreateInput struct {
	Title         string
	Description   string
	Requirements  string
	Location      string
	DateTime      *time.Time
	DurationHours *int
	MaxVolunteers *int
}

func (in CreateInput) validate() error {
	if in.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if in.DurationHours != nil && *in.DurationHours <= 0 {
		return dErrors.New(dErrors.CodeValidation, "duration must be positive")
	}
	if in.MaxVolunteers != nil && *in.MaxVolunteers < 0 {
		return dErrors.New(dErrors.CodeValidation, "max volunteers cannot be negative")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, caller identity.Principal, in CreateInput) (Opportunity, error) {
	if caller.Anonymous() {
		return Opportunity{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if authz.Decide(authz.ActionCreate, authz.KindOpportunity, caller, false) != authz.Allow {
		return Opportunity{}, dErrors.New(dErrors.CodeForbidden, "not permitted to create opportunities")
	}
	if err := in.validate(); err != nil {
		return Opportunity{}, err
	}

	now := time.Now().UTC()
	op := Opportunity{
		ID:            uuid.New(),
		Title:         in.Title,
		Description:   in.Description,
		Requirements:  in.Requirements,
		Location:      in.Location,
		DateTime:      in.DateTime,
		DurationHours: in.DurationHours,
		MaxVolunteers: in.MaxVolunteers,
		Status:        StatusActive,
		CreatedBy:     caller.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, op); err != nil {
		return Opportunity{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to create opportunity")
	}

	s.recorder.Record(ctx, &caller.ID, audit.ActionCreateOpportunity, authz.KindOpportunity, op.ID, nil, op)
	return op, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Opportunity, error) {
	op, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Opportunity{}, dErrors.New(dErrors.CodeNotFound, "opportunity not found")
		}
		return Opportunity{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load opportunity")
	}
	return op, nil
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Opportunity, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown opportunity status")
	}
	ops, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list opportunities")
	}
	return ops, nil
}

type UpdateInput struct {
	Title         *string
	Description   *string
	Requirements  *string
	Location      *string
	DateTime      *time.Time
	DurationHours *int
	MaxVolunteers *int
	Status        *Status
}

func (s *Service) Update(ctx context.Context, caller identity.Principal, id uuid.UUID, in UpdateInput) (Opportunity, error) {
	before, err := s.Get(ctx, id)
	if err != nil {
		return Opportunity{}, err
	}
	if authz.Decide(authz.ActionUpdate, authz.KindOpportunity, caller, caller.Owns(before.CreatedBy)) != authz.Allow {
		return Opportunity{}, dErrors.New(dErrors.CodeForbidden, "not permitted to update opportunities")
	}

	op := before
	if in.Title != nil {
		if *in.Title == "" {
			return Opportunity{}, dErrors.New(dErrors.CodeValidation, "title is required")
		}
		op.Title = *in.Title
	}
	if in.Description != nil {
		op.Description = *in.Description
	}
	if in.Requirements != nil {
		op.Requirements = *in.Requirements
	}
	if in.Location != nil {
		op.Location = *in.Location
	}
	if in.DateTime != nil {
		op.DateTime = in.DateTime
	}
	if in.DurationHours != nil {
		if *in.DurationHours <= 0 {
			return Opportunity{}, dErrors.New(dErrors.CodeValidation, "duration must be positive")
		}
		op.DurationHours = in.DurationHours
	}
	if in.MaxVolunteers != nil {
		if *in.MaxVolunteers < 0 {
			return Opportunity{}, dErrors.New(dErrors.CodeValidation, "max volunteers cannot be negative")
		}
		if *in.MaxVolunteers < op.CurrentVolunteers {
			return Opportunity{}, dErrors.New(dErrors.CodeValidation, "max volunteers below current registrations")
		}
		op.MaxVolunteers = in.MaxVolunteers
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return Opportunity{}, dErrors.New(dErrors.CodeValidation, "unknown opportunity status")
		}
		op.Status = *in.Status
	}
	op.UpdatedAt = time.Now().UTC()

	if err := s.store.Update(ctx, op); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Opportunity{}, dErrors.New(dErrors.CodeNotFound, "opportunity not found")
		}
		return Opportunity{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to update opportunity")
	}

	s.recorder.Record(ctx, &caller.ID, audit.ActionUpdateOpportunity, authz.KindOpportunity, op.ID, before, op)
	return op, nil
}

func (s *Service) Delete(ctx context.Context, caller identity.Principal, id uuid.UUID) error {
	before, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if authz.Decide(authz.ActionDelete, authz.KindOpportunity, caller, caller.Owns(before.CreatedBy)) != authz.Allow {
		return dErrors.New(dErrors.CodeForbidden, "not permitted to delete opportunities")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "opportunity not found")
		}
		return dErrors.Wrap(err, dErrors.CodeStorage, "failed to delete opportunity")
	}

	s.recorder.Record(ctx, &caller.ID, audit.ActionDeleteOpportunity, authz.KindOpportunity, id, before, nil)
	return nil
}

func (s *Service) Register(ctx context.Context, caller identity.Principal, opportunityID uuid.UUID) (registry.Registration, error) {
	return s.engine.Register(ctx, caller, opportunityID)
}

func (s *Service) Unregister(ctx context.Context, caller identity.Principal, opportunityID uuid.UUID) error {
	return s.engine.Unregister(ctx, caller, opportunityID)
}

// Volunteers lists the roster for admins and the opportunity's creator.
func (s *Service) Volunteers(ctx context.Context, caller identity.Principal, opportunityID uuid.UUID) ([]registry.Registration, error) {
	return s.engine.Roster(ctx, caller, opportunityID)
}

// UpdateRegistrationStatus lets an admin or the opportunity creator confirm or
// waitlist a volunteer and attach coordination notes.
func (s *Service) UpdateRegistrationStatus(ctx context.Context, caller identity.Principal, registrationID uuid.UUID, status registry.Status, notes *string) (registry.Registration, error) {
	return s.engine.UpdateStatus(ctx, caller, registrationID, status, notes)
}

func (s *Service) MyRegistrations(ctx context.Context, caller identity.Principal) ([]registry.Registration, error) {
	return s.engine.ListForUser(ctx, caller, caller.ID)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStorage, "failed to count opportunities")
	}
	return n, nil
}
