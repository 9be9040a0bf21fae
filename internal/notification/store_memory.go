package notification

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"communityhub/pkg/platform/sentinel"
)

// InMemoryStore keeps notifications in memory for tests and local development.
type InMemoryStore struct {
	mu            sync.RWMutex
	notifications map[uuid.UUID]Notification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{notifications: make(map[uuid.UUID]Notification)}
}

func (s *InMemoryStore) Create(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.ID] = n
	return nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID uuid.UUID) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(n Notification) bool { return n.UserID == userID }), nil
}

func (s *InMemoryStore) ListUnread(_ context.Context, userID uuid.UUID) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(n Notification) bool { return n.UserID == userID && !n.IsRead }), nil
}

func (s *InMemoryStore) CountUnread(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *InMemoryStore) MarkRead(_ context.Context, id, userID uuid.UUID) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return Notification{}, sentinel.ErrNotFound
	}
	n.IsRead = true
	s.notifications[id] = n
	return n, nil
}

func (s *InMemoryStore) MarkAllRead(_ context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, n := range s.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			s.notifications[id] = n
		}
	}
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return sentinel.ErrNotFound
	}
	delete(s.notifications, id)
	return nil
}

func (s *InMemoryStore) collect(keep func(Notification) bool) []Notification {
	var out []Notification
	for _, n := range s.notifications {
		if keep(n) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
