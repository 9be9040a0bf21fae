package registry

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"communityhub/pkg/platform/sentinel"
)

// InMemorySubjects is a SubjectStore over a plain map for tests and local
// development. AdmitOne and ReleaseOne are individually atomic under the
// store mutex, mirroring the conditional UPDATE the postgres stores run.
type InMemorySubjects struct {
	mu       sync.Mutex
	subjects map[uuid.UUID]Subject
}

func NewInMemorySubjects() *InMemorySubjects {
	return &InMemorySubjects{subjects: make(map[uuid.UUID]Subject)}
}

// Put inserts or replaces a subject.
func (s *InMemorySubjects) Put(subject Subject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects[subject.ID] = subject
}

func (s *InMemorySubjects) FindSubject(_ context.Context, id uuid.UUID) (Subject, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subject, ok := s.subjects[id]
	if !ok {
		return Subject{}, sentinel.ErrNotFound
	}
	return subject, nil
}

func (s *InMemorySubjects) AdmitOne(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	subject, ok := s.subjects[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if subject.Capacity != nil && subject.Occupancy >= *subject.Capacity {
		return sentinel.ErrCapacityExceeded
	}
	subject.Occupancy++
	s.subjects[id] = subject
	return nil
}

func (s *InMemorySubjects) ReleaseOne(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	subject, ok := s.subjects[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if subject.Occupancy <= 0 {
		return sentinel.ErrIntegrity
	}
	subject.Occupancy--
	s.subjects[id] = subject
	return nil
}

// InMemoryRegistrations is a RegistrationStore over a slice. The active
// uniqueness constraint is enforced on Create the way the partial unique
// index does in postgres.
type InMemoryRegistrations struct {
	mu   sync.Mutex
	regs map[uuid.UUID]Registration
}

func NewInMemoryRegistrations() *InMemoryRegistrations {
	return &InMemoryRegistrations{regs: make(map[uuid.UUID]Registration)}
}

func (s *InMemoryRegistrations) Create(_ context.Context, reg Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.regs {
		if r.SubjectID == reg.SubjectID && r.UserID == reg.UserID && r.Status != StatusCancelled {
			return sentinel.ErrConflict
		}
	}
	s.regs[reg.ID] = reg
	return nil
}

func (s *InMemoryRegistrations) FindActive(_ context.Context, subjectID, userID uuid.UUID) (Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.regs {
		if r.SubjectID == subjectID && r.UserID == userID && r.Status != StatusCancelled {
			return r, nil
		}
	}
	return Registration{}, sentinel.ErrNotFound
}

func (s *InMemoryRegistrations) FindByID(_ context.Context, id uuid.UUID) (Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regs[id]
	if !ok {
		return Registration{}, sentinel.ErrNotFound
	}
	return r, nil
}

func (s *InMemoryRegistrations) UpdateStatus(_ context.Context, id uuid.UUID, status Status, notes *string) (Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.regs[id]
	if !ok || r.Status == StatusCancelled {
		// Cancelled rows are immutable history, matching the conditional
		// UPDATE the postgres store runs.
		return Registration{}, sentinel.ErrNotFound
	}
	r.Status = status
	if notes != nil {
		r.Notes = *notes
	}
	s.regs[id] = r
	return r, nil
}

func (s *InMemoryRegistrations) ListBySubject(_ context.Context, subjectID uuid.UUID) ([]Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Registration
	for _, r := range s.regs {
		if r.SubjectID == subjectID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *InMemoryRegistrations) ListByUser(_ context.Context, userID uuid.UUID) ([]Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Registration
	for _, r := range s.regs {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

// ActiveCount reports active (non-cancelled) registrations for a subject.
// Test helper for the occupancy invariant.
func (s *InMemoryRegistrations) ActiveCount(subjectID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.regs {
		if r.SubjectID == subjectID && r.Status != StatusCancelled {
			n++
		}
	}
	return n
}

// SerializedTx is a TxRunner for the in-memory stores: one mutex serializes
// each transaction body, standing in for the row locks that serialize racing
// transactions in postgres. There is no rollback; the memory stores order
// their mutations so the guarded step runs last.
type SerializedTx struct {
	mu sync.Mutex
}

func NewSerializedTx() *SerializedTx {
	return &SerializedTx{}
}

func (t *SerializedTx) RunTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}
