package settings

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"communityhub/pkg/platform/sentinel"
)

type userKey struct {
	userID uuid.UUID
	key    string
}

// InMemoryStore keeps settings in memory for tests and local development.
type InMemoryStore struct {
	mu     sync.Mutex
	user   map[userKey]Setting
	global map[string]Setting
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		user:   make(map[userKey]Setting),
		global: make(map[string]Setting),
	}
}

func (st *InMemoryStore) UpsertUser(_ context.Context, s Setting) (Setting, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	k := userKey{userID: *s.UserID, key: s.Key}
	if existing, ok := st.user[k]; ok {
		existing.Value = s.Value
		existing.UpdatedAt = s.UpdatedAt
		st.user[k] = existing
		return existing, nil
	}
	st.user[k] = s
	return s, nil
}

func (st *InMemoryStore) FindUser(_ context.Context, userID uuid.UUID, key string) (Setting, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.user[userKey{userID: userID, key: key}]
	if !ok {
		return Setting{}, sentinel.ErrNotFound
	}
	return s, nil
}

func (st *InMemoryStore) ListUser(_ context.Context, userID uuid.UUID) ([]Setting, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	var out []Setting
	for k, s := range st.user {
		if k.userID == userID {
			out = append(out, s)
		}
	}
	sortByKey(out)
	return out, nil
}

func (st *InMemoryStore) DeleteUser(_ context.Context, userID uuid.UUID, key string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	k := userKey{userID: userID, key: key}
	if _, ok := st.user[k]; !ok {
		return sentinel.ErrNotFound
	}
	delete(st.user, k)
	return nil
}

func (st *InMemoryStore) UpsertGlobal(_ context.Context, s Setting) (Setting, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if existing, ok := st.global[s.Key]; ok {
		existing.Value = s.Value
		existing.UpdatedAt = s.UpdatedAt
		st.global[s.Key] = existing
		return existing, nil
	}
	st.global[s.Key] = s
	return s, nil
}

func (st *InMemoryStore) FindGlobal(_ context.Context, key string) (Setting, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.global[key]
	if !ok {
		return Setting{}, sentinel.ErrNotFound
	}
	return s, nil
}

func (st *InMemoryStore) ListGlobal(_ context.Context) ([]Setting, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	var out []Setting
	for _, s := range st.global {
		out = append(out, s)
	}
	sortByKey(out)
	return out, nil
}

func (st *InMemoryStore) DeleteGlobal(_ context.Context, key string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.global[key]; !ok {
		return sentinel.ErrNotFound
	}
	delete(st.global, key)
	return nil
}

func sortByKey(out []Setting) {
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
}
