package event

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

// Service owns event lifecycle and delegates registration mechanics to the
// shared engine.
type Service struct {
	store    Store
	engine   *registry.Engine
	recorder *audit.Recorder
	logger   *slog.Logger
}

func NewService(store Store, engine *registry.Engine, recorder *audit.Recorder, logger *slog.Logger) (*Service, error) {
	if store == nil || engine == nil || recorder == nil {
		return nil, fmt.Errorf("event store, registration engine, and audit recorder are required")
	}
	return &Service{store: store, engine: engine, recorder: recorder, logger: logger}, nil
}

// CreateInput carries the caller-supplied fields for a new event.
type CreateInput struct {
	Title                string
	Description          string
	EventDate            time.Time
	EndDate              *time.Time
	Location             string
	MaxParticipants      *int
	ImageURL             string
	RegistrationRequired bool
}

func (in CreateInput) validate() error {
	if in.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if in.EventDate.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "event date is required")
	}
	if in.EndDate != nil && in.EndDate.Before(in.EventDate) {
		return dErrors.New(dErrors.CodeValidation, "end date precedes event date")
	}
	if in.MaxParticipants != nil && *in.MaxParticipants < 0 {
		return dErrors.New(dErrors.CodeValidation, "max participants cannot be negative")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, caller identity.Principal, in CreateInput) (Event, error) {
	if caller.Anonymous() {
		return Event{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if authz.Decide(authz.ActionCreate, authz.KindEvent, caller, false) != authz.Allow {
		return Event{}, dErrors.New(dErrors.CodeForbidden, "not permitted to create events")
	}
	if err := in.validate(); err != nil {
		return Event{}, err
	}

	now := time.Now().UTC()
	ev := Event{
		ID:                   uuid.New(),
		Title:                in.Title,
		Description:          in.Description,
		EventDate:            in.EventDate,
		EndDate:              in.EndDate,
		Location:             in.Location,
		MaxParticipants:      in.MaxParticipants,
		Status:               StatusUpcoming,
		ImageURL:             in.ImageURL,
		RegistrationRequired: in.RegistrationRequired,
		CreatedBy:            caller.ID,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.store.Create(ctx, ev); err != nil {
		return Event{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to create event")
	}

	s.recorder.Record(ctx, &caller.ID, audit.ActionCreateEvent, authz.KindEvent, ev.ID, nil, ev)
	return ev, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Event, error) {
	ev, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Event{}, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return Event{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load event")
	}
	return ev, nil
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Event, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown event status")
	}
	events, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list events")
	}
	return events, nil
}

// UpdateInput applies partial changes; nil fields are left untouched.
type UpdateInput struct {
	Title                *string
	Description          *string
	EventDate            *time.Time
	EndDate              *time.Time
	Location             *string
	MaxParticipants      *int
	Status               *Status
	ImageURL             *string
	RegistrationRequired *bool
}

func (s *Service) Update(ctx context.Context, caller identity.Principal, id uuid.UUID, in UpdateInput) (Event, error) {
	before, err := s.Get(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if authz.Decide(authz.ActionUpdate, authz.KindEvent, caller, caller.Owns(before.CreatedBy)) != authz.Allow {
		return Event{}, dErrors.New(dErrors.CodeForbidden, "not permitted to update events")
	}

	ev := before
	if in.Title != nil {
		if *in.Title == "" {
			return Event{}, dErrors.New(dErrors.CodeValidation, "title is required")
		}
		ev.Title = *in.Title
	}
	if in.Description != nil {
		ev.Description = *in.Description
	}
	if in.EventDate != nil {
		ev.EventDate = *in.EventDate
	}
	if in.EndDate != nil {
		ev.EndDate = in.EndDate
	}
	if in.Location != nil {
		ev.Location = *in.Location
	}
	if in.MaxParticipants != nil {
		if *in.MaxParticipants < 0 {
			return Event{}, dErrors.New(dErrors.CodeValidation, "max participants cannot be negative")
		}
		if *in.MaxParticipants < ev.CurrentParticipants {
			return Event{}, dErrors.New(dErrors.CodeValidation, "max participants below current registrations")
		}
		ev.MaxParticipants = in.MaxParticipants
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return Event{}, dErrors.New(dErrors.CodeValidation, "unknown event status")
		}
		ev.Status = *in.Status
	}
	if in.ImageURL != nil {
		ev.ImageURL = *in.ImageURL
	}
	if in.RegistrationRequired != nil {
		ev.RegistrationRequired = *in.RegistrationRequired
	}
	ev.UpdatedAt = time.Now().UTC()

	if err := s.store.Update(ctx, ev); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Event{}, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return Event{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to update event")
	}

	s.recorder.Record(ctx, &caller.ID, audit.ActionUpdateEvent, authz.KindEvent, ev.ID, before, ev)
	return ev, nil
}

func (s *Service) Delete(ctx context.Context, caller identity.Principal, id uuid.UUID) error {
	before, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if authz.Decide(authz.ActionDelete, authz.KindEvent, caller, caller.Owns(before.CreatedBy)) != authz.Allow {
		return dErrors.New(dErrors.CodeForbidden, "not permitted to delete events")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return dErrors.Wrap(err, dErrors.CodeStorage, "failed to delete event")
	}

	s.recorder.Record(ctx, &caller.ID, audit.ActionDeleteEvent, authz.KindEvent, id, before, nil)
	return nil
}

// Register admits the caller onto the event through the shared engine.
func (s *Service) Register(ctx context.Context, caller identity.Principal, eventID uuid.UUID) (registry.Registration, error) {
	return s.engine.Register(ctx, caller, eventID)
}

// Unregister cancels the caller's active registration.
func (s *Service) Unregister(ctx context.Context, caller identity.Principal, eventID uuid.UUID) error {
	return s.engine.Unregister(ctx, caller, eventID)
}

// Participants lists the event roster for admins and the event's creator.
func (s *Service) Participants(ctx context.Context, caller identity.Principal, eventID uuid.UUID) ([]registry.Registration, error) {
	return s.engine.Roster(ctx, caller, eventID)
}

// UpdateRegistrationStatus is a management action on one registration.
func (s *Service) UpdateRegistrationStatus(ctx context.Context, caller identity.Principal, registrationID uuid.UUID, status registry.Status, notes *string) (registry.Registration, error) {
	return s.engine.UpdateStatus(ctx, caller, registrationID, status, notes)
}

// MyRegistrations lists the caller's own event registrations.
func (s *Service) MyRegistrations(ctx context.Context, caller identity.Principal) ([]registry.Registration, error) {
	return s.engine.ListForUser(ctx, caller, caller.ID)
}

// Count reports the total number of events. Used by the admin dashboard.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeStorage, "failed to count events")
	}
	return n, nil
}
