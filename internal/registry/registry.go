// Package registry is the capacity-bounded registration engine shared by
// events and volunteer opportunities. It admits or rejects registration
// attempts against an optional occupancy ceiling and keeps the denormalized
// occupancy counter consistent with the registration set under concurrent
// callers.
//
// Concurrency contract: the occupancy counter is mutated exclusively through
// the store's conditional-update primitives (AdmitOne / ReleaseOne) inside a
// single transaction with the registration row change. Two racing register
// calls for the last slot serialize at the storage layer; exactly one wins,
// the other fails with CodeCapacityExceeded.
package registry

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
	"communityhub/internal/platform/metrics"
	dErrors "communityhub/pkg/domain-errors"
	"communityhub/pkg/platform/sentinel"
)

// Status is the lifecycle state of a registration.
type Status string

const (
	StatusRegistered Status = "REGISTERED"
	StatusConfirmed  Status = "CONFIRMED"
	StatusCancelled  Status = "CANCELLED"
	StatusWaitlisted Status = "WAITLISTED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusRegistered, StatusConfirmed, StatusCancelled, StatusWaitlisted:
		return true
	}
	return false
}

// Registration links one actor to one registrable subject. RegisteredAt is
// immutable once set. Rows are never hard-deleted: unregistration tags them
// CANCELLED so participation history survives for the audit trail.
type Registration struct {
	ID           uuid.UUID
	SubjectID    uuid.UUID
	UserID       uuid.UUID
	Status       Status
	Notes        string
	RegisteredAt time.Time
}

// Subject is the registrable view the engine needs: identity, ownership,
// capacity ceiling (nil = unbounded), current occupancy, and whether the
// lifecycle status still admits registrations.
type Subject struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Title     string
	Capacity  *int
	Occupancy int
	Open      bool
}

// SubjectStore adapts a registrable entity (event, opportunity) to the engine.
type SubjectStore interface {
	FindSubject(ctx context.Context, id uuid.UUID) (Subject, error)

	// AdmitOne atomically increments occupancy, guarded by the capacity
	// ceiling, equivalent to:
	//
	//   UPDATE subjects SET occupancy = occupancy + 1
	//   WHERE id = $1 AND (capacity IS NULL OR occupancy < capacity)
	//
	// Zero rows affected means the subject is full: sentinel.ErrCapacityExceeded.
	AdmitOne(ctx context.Context, id uuid.UUID) error

	// ReleaseOne atomically decrements occupancy with a floor guard
	// (WHERE occupancy > 0). Zero rows affected means the counter and the
	// registration set disagree: sentinel.ErrIntegrity.
	ReleaseOne(ctx context.Context, id uuid.UUID) error
}

// RegistrationStore persists registrations for one subject kind. A partial
// unique index over (subject, user) excluding CANCELLED rows is the source of
// truth for the at-most-one-active invariant; Create surfaces its violation
// as sentinel.ErrConflict.
type RegistrationStore interface {
	Create(ctx context.Context, reg Registration) error
	FindActive(ctx context.Context, subjectID, userID uuid.UUID) (Registration, error)
	FindByID(ctx context.Context, id uuid.UUID) (Registration, error)

	// UpdateStatus changes a registration's status, refusing to touch rows
	// already CANCELLED: cancelled rows are history, never written again.
	// Zero rows affected surfaces as sentinel.ErrNotFound, which keeps the
	// refusal effective under racing transactions.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, notes *string) (Registration, error)
	ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]Registration, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Registration, error)
}

// TxRunner executes fn inside one storage transaction.
type TxRunner interface {
	RunTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier fires a best-effort side notification. Implementations must never
// block or fail the calling operation.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, message, notifType string, relatedID uuid.UUID)
}

// Engine enforces "register at most once per (subject, actor) pair, subject to
// an optional maximum-occupancy limit" for one subject kind.
type Engine struct {
	kind     authz.EntityKind
	subjects SubjectStore
	regs     RegistrationStore
	txr      TxRunner
	recorder *audit.Recorder
	notifier Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithNotifier attaches a best-effort notification emitter.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

func NewEngine(kind authz.EntityKind, subjects SubjectStore, regs RegistrationStore, txr TxRunner,
	recorder *audit.Recorder, logger *slog.Logger, m *metrics.Metrics, opts ...Option) (*Engine, error) {
	if subjects == nil || regs == nil || txr == nil {
		return nil, fmt.Errorf("subject store, registration store, and tx runner are required")
	}
	e := &Engine{
		kind:     kind,
		subjects: subjects,
		regs:     regs,
		txr:      txr,
		recorder: recorder,
		logger:   logger,
		metrics:  m,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Register admits the caller onto the subject's roster. The admission check,
// counter increment, and registration insert commit together or not at all.
func (e *Engine) Register(ctx context.Context, caller identity.Principal, subjectID uuid.UUID) (Registration, error) {
	if caller.Anonymous() {
		return Registration{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if authz.Decide(authz.ActionRegister, e.kind, caller, false) != authz.Allow {
		return Registration{}, dErrors.New(dErrors.CodeForbidden, "registration not permitted")
	}

	var reg Registration
	err := e.txr.RunTx(ctx, func(ctx context.Context) error {
		subject, err := e.subjects.FindSubject(ctx, subjectID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "registration target not found")
			}
			return dErrors.Wrap(err, dErrors.CodeStorage, "failed to load registration target")
		}
		if !subject.Open {
			return dErrors.New(dErrors.CodeValidation, "registration is closed")
		}

		// Fast path; the partial unique index below is the source of truth.
		if _, err := e.regs.FindActive(ctx, subjectID, caller.ID); err == nil {
			return dErrors.New(dErrors.CodeAlreadyRegistered, "already registered")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeStorage, "failed to check existing registration")
		}

		if err := e.subjects.AdmitOne(ctx, subjectID); err != nil {
			if errors.Is(err, sentinel.ErrCapacityExceeded) {
				return dErrors.New(dErrors.CodeCapacityExceeded, "no remaining capacity")
			}
			return dErrors.Wrap(err, dErrors.CodeStorage, "failed to admit registration")
		}

		reg = Registration{
			ID:           uuid.New(),
			SubjectID:    subjectID,
			UserID:       caller.ID,
			Status:       StatusRegistered,
			RegisteredAt: time.Now().UTC(),
		}
		if err := e.regs.Create(ctx, reg); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				// Lost a race with the caller's own concurrent request; the
				// rollback undoes the increment.
				return dErrors.New(dErrors.CodeAlreadyRegistered, "already registered")
			}
			return dErrors.Wrap(err, dErrors.CodeStorage, "failed to create registration")
		}
		return nil
	})
	if err != nil {
		e.countRejection(err)
		return Registration{}, err
	}

	e.metrics.RegistrationsTotal.WithLabelValues(string(e.kind), "registered").Inc()
	e.recorder.Record(ctx, &caller.ID, audit.ActionRegister, e.kind, subjectID, nil, reg)
	e.notify(ctx, caller.ID, "Your registration was accepted.", subjectID)
	return reg, nil
}

// Unregister cancels the caller's active registration and releases its slot.
// The registration row is preserved with status CANCELLED.
func (e *Engine) Unregister(ctx context.Context, caller identity.Principal, subjectID uuid.UUID) error {
	if caller.Anonymous() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	var before, after Registration
	err := e.txr.RunTx(ctx, func(ctx context.Context) error {
		reg, err := e.regs.FindActive(ctx, subjectID, caller.ID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "no active registration found")
			}
			return dErrors.Wrap(err, dErrors.CodeStorage, "failed to load registration")
		}
		before = reg

		if err := e.subjects.ReleaseOne(ctx, subjectID); err != nil {
			if errors.Is(err, sentinel.ErrIntegrity) {
				// Occupancy already at zero while an active registration
				// exists: counter and record set disagree. Refuse to clamp.
				e.logger.ErrorContext(ctx, "occupancy underflow detected",
					"kind", e.kind,
					"subject_id", subjectID,
				)
				return dErrors.Wrap(err, dErrors.CodeStorage, "registration state inconsistent")
			}
			return dErrors.Wrap(err, dErrors.CodeStorage, "failed to release registration slot")
		}

		after, err = e.regs.UpdateStatus(ctx, reg.ID, StatusCancelled, nil)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				// A concurrent Unregister cancelled the row first. The
				// rollback undoes this transaction's slot release, so the
				// counter only moves once per cancellation.
				return dErrors.New(dErrors.CodeNotFound, "no active registration found")
			}
			return dErrors.Wrap(err, dErrors.CodeStorage, "failed to cancel registration")
		}
		return nil
	})
	if err != nil {
		return err
	}

	e.metrics.RegistrationsTotal.WithLabelValues(string(e.kind), "cancelled").Inc()
	e.recorder.Record(ctx, &caller.ID, audit.ActionUnregister, e.kind, subjectID, before, after)
	return nil
}

// UpdateStatus is a management action on one registration: admin or the
// creator of the subject the registration belongs to. It never touches the
// occupancy counter, so it neither sets CANCELLED (cancellation goes through
// Unregister, which releases the slot) nor accepts a registration that is
// already CANCELLED (reactivation would resurrect it past the capacity gate;
// re-entry goes through Register).
func (e *Engine) UpdateStatus(ctx context.Context, caller identity.Principal, registrationID uuid.UUID, status Status, notes *string) (Registration, error) {
	if caller.Anonymous() {
		return Registration{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if !status.Valid() || status == StatusCancelled {
		return Registration{}, dErrors.New(dErrors.CodeValidation, "invalid registration status")
	}

	reg, err := e.regs.FindByID(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Registration{}, dErrors.New(dErrors.CodeNotFound, "registration not found")
		}
		return Registration{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load registration")
	}

	subject, err := e.subjects.FindSubject(ctx, reg.SubjectID)
	if err != nil {
		return Registration{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load registration target")
	}
	if authz.Decide(authz.ActionManageStatus, authz.KindRegistration, caller, caller.Owns(subject.OwnerID)) != authz.Allow {
		e.metrics.AuthorizationDenials.WithLabelValues(string(authz.ActionManageStatus), string(e.kind)).Inc()
		return Registration{}, dErrors.New(dErrors.CodeForbidden, "not permitted to manage this registration")
	}
	if reg.Status == StatusCancelled {
		return Registration{}, dErrors.New(dErrors.CodeValidation, "cancelled registrations cannot be reactivated")
	}

	updated, err := e.regs.UpdateStatus(ctx, registrationID, status, notes)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// The row was cancelled between the load above and the update.
			return Registration{}, dErrors.New(dErrors.CodeValidation, "cancelled registrations cannot be reactivated")
		}
		return Registration{}, dErrors.Wrap(err, dErrors.CodeStorage, "failed to update registration status")
	}

	e.recorder.Record(ctx, &caller.ID, audit.ActionUpdateRegStatus, e.kind, reg.SubjectID, reg, updated)
	if status == StatusConfirmed {
		e.notify(ctx, reg.UserID, "Your registration was confirmed.", reg.SubjectID)
	}
	return updated, nil
}

// Roster lists a subject's registrations. Admins and the subject's creator only.
func (e *Engine) Roster(ctx context.Context, caller identity.Principal, subjectID uuid.UUID) ([]Registration, error) {
	subject, err := e.subjects.FindSubject(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "registration target not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to load registration target")
	}
	if authz.Decide(authz.ActionListMembers, e.kind, caller, caller.Owns(subject.OwnerID)) != authz.Allow {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to list registrations")
	}
	regs, err := e.regs.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list registrations")
	}
	return regs, nil
}

// ListForUser returns the caller's own registrations, or any user's for admins.
func (e *Engine) ListForUser(ctx context.Context, caller identity.Principal, userID uuid.UUID) ([]Registration, error) {
	if caller.Anonymous() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if userID != caller.ID && !caller.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "not permitted to view these registrations")
	}
	regs, err := e.regs.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeStorage, "failed to list registrations")
	}
	return regs, nil
}

func (e *Engine) countRejection(err error) {
	switch {
	case dErrors.Is(err, dErrors.CodeCapacityExceeded):
		e.metrics.CapacityRejections.WithLabelValues(string(e.kind)).Inc()
	case dErrors.Is(err, dErrors.CodeAlreadyRegistered):
		e.metrics.DuplicateRejections.WithLabelValues(string(e.kind)).Inc()
	}
}

func (e *Engine) notify(ctx context.Context, userID uuid.UUID, message string, relatedID uuid.UUID) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(ctx, userID, message, "registration", relatedID)
	e.metrics.NotificationsEmitted.Inc()
}
