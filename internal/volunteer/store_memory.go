package volunteer

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"communityhub/internal/registry"
	"communityhub/pkg/platform/sentinel"
)

// InMemoryStore keeps opportunities in a map for tests and local development.
type InMemoryStore struct {
	mu            sync.Mutex
	opportunities map[uuid.UUID]Opportunity
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{opportunities: make(map[uuid.UUID]Opportunity)}
}

func (s *InMemoryStore) Create(_ context.Context, op Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.opportunities[op.ID]; exists {
		return sentinel.ErrConflict
	}
	s.opportunities[op.ID] = op
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.opportunities[id]
	if !ok {
		return Opportunity{}, sentinel.ErrNotFound
	}
	return op, nil
}

func (s *InMemoryStore) Update(_ context.Context, op Opportunity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.opportunities[op.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	op.CurrentVolunteers = current.CurrentVolunteers
	s.opportunities[op.ID] = op
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.opportunities[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.opportunities, id)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Opportunity
	for _, op := range s.opportunities {
		if matches(op, filter) {
			out = append(out, op)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.opportunities), nil
}

func matches(op Opportunity, filter Filter) bool {
	if filter.Title != "" && !strings.Contains(strings.ToLower(op.Title), strings.ToLower(filter.Title)) {
		return false
	}
	if filter.Location != "" && !strings.Contains(strings.ToLower(op.Location), strings.ToLower(filter.Location)) {
		return false
	}
	if filter.Status != "" && op.Status != filter.Status {
		return false
	}
	return true
}

func (s *InMemoryStore) FindSubject(ctx context.Context, id uuid.UUID) (registry.Subject, error) {
	op, err := s.FindByID(ctx, id)
	if err != nil {
		return registry.Subject{}, err
	}
	return registry.Subject{
		ID:        op.ID,
		OwnerID:   op.CreatedBy,
		Title:     op.Title,
		Capacity:  op.MaxVolunteers,
		Occupancy: op.CurrentVolunteers,
		Open:      op.AcceptsRegistrations(),
	}, nil
}

func (s *InMemoryStore) AdmitOne(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.opportunities[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if op.MaxVolunteers != nil && op.CurrentVolunteers >= *op.MaxVolunteers {
		return sentinel.ErrCapacityExceeded
	}
	op.CurrentVolunteers++
	s.opportunities[id] = op
	return nil
}

func (s *InMemoryStore) ReleaseOne(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	op, ok := s.opportunities[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if op.CurrentVolunteers <= 0 {
		return sentinel.ErrIntegrity
	}
	op.CurrentVolunteers--
	s.opportunities[id] = op
	return nil
}
