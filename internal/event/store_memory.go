package event

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"communityhub/internal/registry"
	"communityhub/pkg/platform/sentinel"
)

// InMemoryStore keeps events in a map for tests and local development. The
// subject-store primitives mutate the participant counter atomically under
// the store mutex, matching the conditional UPDATE semantics of postgres.
type InMemoryStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[uuid.UUID]Event)}
}

func (s *InMemoryStore) Create(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[ev.ID]; exists {
		return sentinel.ErrConflict
	}
	s.events[ev.ID] = ev
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return Event{}, sentinel.ErrNotFound
	}
	return ev, nil
}

func (s *InMemoryStore) Update(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.events[ev.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	// The counter belongs to AdmitOne/ReleaseOne, not to metadata updates.
	ev.CurrentParticipants = current.CurrentParticipants
	s.events[ev.ID] = ev
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.events, id)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Event
	for _, ev := range s.events {
		if matches(ev, filter) {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EventDate.Before(out[j].EventDate)
	})
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events), nil
}

func matches(ev Event, filter Filter) bool {
	if filter.Title != "" && !strings.Contains(strings.ToLower(ev.Title), strings.ToLower(filter.Title)) {
		return false
	}
	if filter.Location != "" && !strings.Contains(strings.ToLower(ev.Location), strings.ToLower(filter.Location)) {
		return false
	}
	if filter.Status != "" && ev.Status != filter.Status {
		return false
	}
	return true
}

// FindSubject adapts the event to the registration engine's view.
func (s *InMemoryStore) FindSubject(ctx context.Context, id uuid.UUID) (registry.Subject, error) {
	ev, err := s.FindByID(ctx, id)
	if err != nil {
		return registry.Subject{}, err
	}
	return registry.Subject{
		ID:        ev.ID,
		OwnerID:   ev.CreatedBy,
		Title:     ev.Title,
		Capacity:  ev.MaxParticipants,
		Occupancy: ev.CurrentParticipants,
		Open:      ev.AcceptsRegistrations(),
	}, nil
}

func (s *InMemoryStore) AdmitOne(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if ev.MaxParticipants != nil && ev.CurrentParticipants >= *ev.MaxParticipants {
		return sentinel.ErrCapacityExceeded
	}
	ev.CurrentParticipants++
	s.events[id] = ev
	return nil
}

func (s *InMemoryStore) ReleaseOne(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	if ev.CurrentParticipants <= 0 {
		return sentinel.ErrIntegrity
	}
	ev.CurrentParticipants--
	s.events[id] = ev
	return nil
}
