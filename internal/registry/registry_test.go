package registry

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"communityhub/internal/audit"
	"communityhub/internal/authz"
	"communityhub/internal/identity"
	"communityhub/internal/platform/metrics"
	dErrors "communityhub/pkg/domain-errors"
	"communityhub/pkg/platform/sentinel"
)

// =============================================================================
// Registration Engine Test Suite
// =============================================================================
// Justification for unit tests: the engine carries the concurrency-sensitive
// admission logic (capacity ceiling, duplicate suppression, floor-guarded
// release) whose race behavior cannot be exercised through handler-level tests.

type EngineSuite struct {
	suite.Suite
	subjects *InMemorySubjects
	regs     *InMemoryRegistrations
	auditLog *audit.InMemoryStore
	engine   *Engine
	notified []uuid.UUID
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

type notifierFunc func(ctx context.Context, userID uuid.UUID, message, notifType string, relatedID uuid.UUID)

func (f notifierFunc) Notify(ctx context.Context, userID uuid.UUID, message, notifType string, relatedID uuid.UUID) {
	f(ctx, userID, message, notifType, relatedID)
}

func (s *EngineSuite) SetupTest() {
	s.subjects = NewInMemorySubjects()
	s.regs = NewInMemoryRegistrations()
	s.auditLog = audit.NewInMemoryStore()
	s.notified = nil

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())

	recorder, err := audit.NewRecorder(s.auditLog, logger, m)
	s.Require().NoError(err)

	var mu sync.Mutex
	notifier := notifierFunc(func(_ context.Context, userID uuid.UUID, _, _ string, _ uuid.UUID) {
		mu.Lock()
		defer mu.Unlock()
		s.notified = append(s.notified, userID)
	})

	s.engine, err = NewEngine(authz.KindEvent, s.subjects, s.regs, NewSerializedTx(),
		recorder, logger, m, WithNotifier(notifier))
	s.Require().NoError(err)
}

func (s *EngineSuite) member() identity.Principal {
	return identity.Principal{ID: uuid.New(), Name: "Member", Role: identity.RoleMember}
}

func (s *EngineSuite) admin() identity.Principal {
	return identity.Principal{ID: uuid.New(), Name: "Admin", Role: identity.RoleAdmin}
}

func (s *EngineSuite) newSubject(capacity *int, open bool) Subject {
	subject := Subject{
		ID:       uuid.New(),
		OwnerID:  uuid.New(),
		Title:    "Community Workday",
		Capacity: capacity,
		Open:     open,
	}
	s.subjects.Put(subject)
	return subject
}

func intPtr(n int) *int { return &n }

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *EngineSuite) TestNewEngine() {
	s.Run("nil stores return error", func() {
		_, err := NewEngine(authz.KindEvent, nil, s.regs, NewSerializedTx(), nil, nil, nil)
		s.Error(err)
		s.Contains(err.Error(), "required")
	})
}

// =============================================================================
// Register Tests
// =============================================================================

func (s *EngineSuite) TestRegister() {
	ctx := context.Background()

	s.Run("anonymous caller is rejected", func() {
		subject := s.newSubject(intPtr(10), true)
		_, err := s.engine.Register(ctx, identity.Principal{}, subject.ID)
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown subject returns not found", func() {
		_, err := s.engine.Register(ctx, s.member(), uuid.New())
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("closed subject rejects registration", func() {
		subject := s.newSubject(intPtr(10), false)
		_, err := s.engine.Register(ctx, s.member(), subject.ID)
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("member registers and occupancy increments", func() {
		subject := s.newSubject(intPtr(10), true)
		caller := s.member()

		reg, err := s.engine.Register(ctx, caller, subject.ID)
		s.NoError(err)
		s.Equal(StatusRegistered, reg.Status)
		s.Equal(caller.ID, reg.UserID)

		stored, err := s.subjects.FindSubject(ctx, subject.ID)
		s.NoError(err)
		s.Equal(1, stored.Occupancy)
		s.Contains(s.notified, caller.ID)
	})

	s.Run("second registration by same caller is a duplicate", func() {
		subject := s.newSubject(intPtr(10), true)
		caller := s.member()

		_, err := s.engine.Register(ctx, caller, subject.ID)
		s.Require().NoError(err)

		_, err = s.engine.Register(ctx, caller, subject.ID)
		s.True(dErrors.Is(err, dErrors.CodeAlreadyRegistered))

		stored, err := s.subjects.FindSubject(ctx, subject.ID)
		s.NoError(err)
		s.Equal(1, stored.Occupancy)
	})

	s.Run("full subject rejects with capacity exceeded", func() {
		subject := s.newSubject(intPtr(1), true)

		_, err := s.engine.Register(ctx, s.member(), subject.ID)
		s.Require().NoError(err)

		_, err = s.engine.Register(ctx, s.member(), subject.ID)
		s.True(dErrors.Is(err, dErrors.CodeCapacityExceeded))
	})

	s.Run("nil capacity admits without limit", func() {
		subject := s.newSubject(nil, true)
		for range 25 {
			_, err := s.engine.Register(ctx, s.member(), subject.ID)
			s.Require().NoError(err)
		}
		stored, err := s.subjects.FindSubject(ctx, subject.ID)
		s.NoError(err)
		s.Equal(25, stored.Occupancy)
	})
}

// =============================================================================
// Concurrency Tests
// =============================================================================

func (s *EngineSuite) TestConcurrentRegistration() {
	ctx := context.Background()

	s.Run("one slot, many callers, exactly one winner", func() {
		subject := s.newSubject(intPtr(1), true)

		const callers = 32
		results := make(chan error, callers)
		var wg sync.WaitGroup
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.engine.Register(ctx, s.member(), subject.ID)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var wins, capacityRejections int
		for err := range results {
			switch {
			case err == nil:
				wins++
			case dErrors.Is(err, dErrors.CodeCapacityExceeded):
				capacityRejections++
			default:
				s.Failf("unexpected error", "%v", err)
			}
		}
		s.Equal(1, wins)
		s.Equal(callers-1, capacityRejections)

		stored, err := s.subjects.FindSubject(ctx, subject.ID)
		s.NoError(err)
		s.Equal(1, stored.Occupancy)
		s.Equal(1, s.regs.ActiveCount(subject.ID))
	})

	s.Run("same caller racing itself registers once", func() {
		subject := s.newSubject(intPtr(10), true)
		caller := s.member()

		const attempts = 16
		results := make(chan error, attempts)
		var wg sync.WaitGroup
		for range attempts {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.engine.Register(ctx, caller, subject.ID)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var wins, duplicates int
		for err := range results {
			switch {
			case err == nil:
				wins++
			case dErrors.Is(err, dErrors.CodeAlreadyRegistered):
				duplicates++
			default:
				s.Failf("unexpected error", "%v", err)
			}
		}
		s.Equal(1, wins)
		s.Equal(attempts-1, duplicates)

		stored, err := s.subjects.FindSubject(ctx, subject.ID)
		s.NoError(err)
		s.Equal(1, stored.Occupancy)
	})

	s.Run("occupancy equals active registrations after mixed churn", func() {
		subject := s.newSubject(intPtr(8), true)

		const callers = 24
		var wg sync.WaitGroup
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				caller := s.member()
				if _, err := s.engine.Register(ctx, caller, subject.ID); err != nil {
					return
				}
				// Half the winners leave again.
				if caller.ID[0]%2 == 0 {
					s.NoError(s.engine.Unregister(ctx, caller, subject.ID))
				}
			}()
		}
		wg.Wait()

		stored, err := s.subjects.FindSubject(ctx, subject.ID)
		s.NoError(err)
		s.Equal(s.regs.ActiveCount(subject.ID), stored.Occupancy)
		s.GreaterOrEqual(stored.Occupancy, 0)
		s.LessOrEqual(stored.Occupancy, 8)
	})
}

// =============================================================================
// Unregister Tests
// =============================================================================

func (s *EngineSuite) TestUnregister() {
	ctx := context.Background()

	s.Run("no active registration returns not found", func() {
		subject := s.newSubject(intPtr(5), true)
		err := s.engine.Unregister(ctx, s.member(), subject.ID)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("cancellation releases the slot and preserves the record", func() {
		subject := s.newSubject(intPtr(1), true)
		caller := s.member()

		reg, err := s.engine.Register(ctx, caller, subject.ID)
		s.Require().NoError(err)

		s.NoError(s.engine.Unregister(ctx, caller, subject.ID))

		stored, err := s.subjects.FindSubject(ctx, subject.ID)
		s.NoError(err)
		s.Equal(0, stored.Occupancy)

		cancelled, err := s.regs.FindByID(ctx, reg.ID)
		s.NoError(err)
		s.Equal(StatusCancelled, cancelled.Status)
	})

	s.Run("cancelled slot can be taken by another caller", func() {
		subject := s.newSubject(intPtr(1), true)
		first := s.member()

		_, err := s.engine.Register(ctx, first, subject.ID)
		s.Require().NoError(err)
		s.Require().NoError(s.engine.Unregister(ctx, first, subject.ID))

		_, err = s.engine.Register(ctx, s.member(), subject.ID)
		s.NoError(err)
	})

	s.Run("unregistering twice returns not found", func() {
		subject := s.newSubject(intPtr(5), true)
		caller := s.member()

		_, err := s.engine.Register(ctx, caller, subject.ID)
		s.Require().NoError(err)
		s.Require().NoError(s.engine.Unregister(ctx, caller, subject.ID))

		err = s.engine.Unregister(ctx, caller, subject.ID)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))

		stored, err := s.subjects.FindSubject(ctx, subject.ID)
		s.NoError(err)
		s.Equal(0, stored.Occupancy)
	})

	s.Run("floor guard refuses to clamp a desynced counter", func() {
		// Subject claims zero occupancy while an active registration exists.
		subject := Subject{ID: uuid.New(), OwnerID: uuid.New(), Capacity: intPtr(5), Open: true}
		s.subjects.Put(subject)
		caller := s.member()
		s.Require().NoError(s.regs.Create(ctx, Registration{
			ID: uuid.New(), SubjectID: subject.ID, UserID: caller.ID, Status: StatusRegistered,
		}))

		err := s.engine.Unregister(ctx, caller, subject.ID)
		s.True(dErrors.Is(err, dErrors.CodeStorage))

		stored, err := s.subjects.FindSubject(ctx, subject.ID)
		s.NoError(err)
		s.Equal(0, stored.Occupancy)
	})
}

// =============================================================================
// Status Management Tests
// =============================================================================

func (s *EngineSuite) TestUpdateStatus() {
	ctx := context.Background()

	s.Run("admin confirms a registration", func() {
		subject := s.newSubject(intPtr(5), true)
		reg, err := s.engine.Register(ctx, s.member(), subject.ID)
		s.Require().NoError(err)

		updated, err := s.engine.UpdateStatus(ctx, s.admin(), reg.ID, StatusConfirmed, nil)
		s.NoError(err)
		s.Equal(StatusConfirmed, updated.Status)
		s.Contains(s.notified, reg.UserID)
	})

	s.Run("subject creator manages its registrations", func() {
		owner := s.member()
		subject := Subject{ID: uuid.New(), OwnerID: owner.ID, Capacity: intPtr(5), Open: true}
		s.subjects.Put(subject)

		reg, err := s.engine.Register(ctx, s.member(), subject.ID)
		s.Require().NoError(err)

		notes := "confirmed by phone"
		updated, err := s.engine.UpdateStatus(ctx, owner, reg.ID, StatusConfirmed, &notes)
		s.NoError(err)
		s.Equal("confirmed by phone", updated.Notes)
	})

	s.Run("unrelated member is forbidden", func() {
		subject := s.newSubject(intPtr(5), true)
		reg, err := s.engine.Register(ctx, s.member(), subject.ID)
		s.Require().NoError(err)

		_, err = s.engine.UpdateStatus(ctx, s.member(), reg.ID, StatusConfirmed, nil)
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
	})

	s.Run("cancellation is not a status update", func() {
		subject := s.newSubject(intPtr(5), true)
		reg, err := s.engine.Register(ctx, s.member(), subject.ID)
		s.Require().NoError(err)

		_, err = s.engine.UpdateStatus(ctx, s.admin(), reg.ID, StatusCancelled, nil)
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("unknown registration returns not found", func() {
		_, err := s.engine.UpdateStatus(ctx, s.admin(), uuid.New(), StatusConfirmed, nil)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("cancelled registration cannot be reactivated", func() {
		subject := s.newSubject(intPtr(1), true)
		first := s.member()

		reg, err := s.engine.Register(ctx, first, subject.ID)
		s.Require().NoError(err)
		s.Require().NoError(s.engine.Unregister(ctx, first, subject.ID))

		_, err = s.engine.UpdateStatus(ctx, s.admin(), reg.ID, StatusConfirmed, nil)
		s.True(dErrors.Is(err, dErrors.CodeValidation))

		// The freed slot belongs to the next caller; the cancelled row is
		// history and never re-enters the active set.
		_, err = s.engine.Register(ctx, s.member(), subject.ID)
		s.NoError(err)

		stored, err := s.subjects.FindSubject(ctx, subject.ID)
		s.NoError(err)
		s.Equal(1, stored.Occupancy)
		s.Equal(1, s.regs.ActiveCount(subject.ID))

		cancelled, err := s.regs.FindByID(ctx, reg.ID)
		s.NoError(err)
		s.Equal(StatusCancelled, cancelled.Status)
	})

	s.Run("store refuses any write to a cancelled row", func() {
		subject := s.newSubject(intPtr(5), true)
		caller := s.member()

		reg, err := s.engine.Register(ctx, caller, subject.ID)
		s.Require().NoError(err)
		s.Require().NoError(s.engine.Unregister(ctx, caller, subject.ID))

		// A racing cancel that loses must see zero rows, not a second
		// idempotent write; the engine maps this to a lost race and rolls
		// the slot release back.
		_, err = s.regs.UpdateStatus(ctx, reg.ID, StatusCancelled, nil)
		s.ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.regs.UpdateStatus(ctx, reg.ID, StatusConfirmed, nil)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

// =============================================================================
// Listing Tests
// =============================================================================

func (s *EngineSuite) TestRoster() {
	ctx := context.Background()

	s.Run("subject creator sees the roster", func() {
		owner := s.member()
		subject := Subject{ID: uuid.New(), OwnerID: owner.ID, Capacity: intPtr(5), Open: true}
		s.subjects.Put(subject)

		_, err := s.engine.Register(ctx, s.member(), subject.ID)
		s.Require().NoError(err)

		roster, err := s.engine.Roster(ctx, owner, subject.ID)
		s.NoError(err)
		s.Len(roster, 1)
	})

	s.Run("unrelated member is forbidden", func() {
		subject := s.newSubject(intPtr(5), true)
		_, err := s.engine.Roster(ctx, s.member(), subject.ID)
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
	})
}

func (s *EngineSuite) TestListForUser() {
	ctx := context.Background()

	s.Run("caller lists their own registrations including cancelled", func() {
		caller := s.member()
		first := s.newSubject(intPtr(5), true)
		second := s.newSubject(intPtr(5), true)

		_, err := s.engine.Register(ctx, caller, first.ID)
		s.Require().NoError(err)
		_, err = s.engine.Register(ctx, caller, second.ID)
		s.Require().NoError(err)
		s.Require().NoError(s.engine.Unregister(ctx, caller, second.ID))

		regs, err := s.engine.ListForUser(ctx, caller, caller.ID)
		s.NoError(err)
		s.Len(regs, 2)
	})

	s.Run("member cannot list another user's registrations", func() {
		_, err := s.engine.ListForUser(ctx, s.member(), uuid.New())
		s.True(dErrors.Is(err, dErrors.CodeForbidden))
	})

	s.Run("admin lists any user's registrations", func() {
		caller := s.member()
		subject := s.newSubject(intPtr(5), true)
		_, err := s.engine.Register(ctx, caller, subject.ID)
		s.Require().NoError(err)

		regs, err := s.engine.ListForUser(ctx, s.admin(), caller.ID)
		s.NoError(err)
		s.Len(regs, 1)
	})
}
