package document

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"communityhub/internal/authz"
	"communityhub/pkg/platform/sentinel"
)

// InMemoryStore keeps document metadata in memory for tests and local
// development.
type InMemoryStore struct {
	mu   sync.Mutex
	docs map[uuid.UUID]Document
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{docs: make(map[uuid.UUID]Document)}
}

func (s *InMemoryStore) Create(_ context.Context, d Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[d.ID] = d
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return Document{}, sentinel.ErrNotFound
	}
	return d, nil
}

func (s *InMemoryStore) Update(_ context.Context, d Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.docs[d.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	// The download counter belongs to RecordDownload, not to metadata updates.
	d.DownloadCount = current.DownloadCount
	s.docs[d.ID] = d
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter Filter) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Document
	for _, d := range s.docs {
		if !levelAllowed(d.AccessLevel, filter.Levels) {
			continue
		}
		if filter.Title != "" && !strings.Contains(strings.ToLower(d.Title), strings.ToLower(filter.Title)) {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(d.Category, filter.Category) {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs), nil
}

func (s *InMemoryStore) RecordDownload(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	d.DownloadCount++
	s.docs[id] = d
	return nil
}

func levelAllowed(level authz.AccessLevel, allowed []authz.AccessLevel) bool {
	for _, l := range allowed {
		if l == level {
			return true
		}
	}
	return false
}
