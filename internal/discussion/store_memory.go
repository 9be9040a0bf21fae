package discussion

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"communityhub/pkg/platform/sentinel"
)

// InMemoryStore keeps threads and replies in memory for tests and local
// development.
type InMemoryStore struct {
	mu          sync.Mutex
	discussions map[uuid.UUID]Discussion
	replies     map[uuid.UUID]Reply
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		discussions: make(map[uuid.UUID]Discussion),
		replies:     make(map[uuid.UUID]Reply),
	}
}

func (s *InMemoryStore) CreateDiscussion(_ context.Context, d Discussion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discussions[d.ID] = d
	return nil
}

func (s *InMemoryStore) FindDiscussion(_ context.Context, id uuid.UUID) (Discussion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.discussions[id]
	if !ok {
		return Discussion{}, sentinel.ErrNotFound
	}
	return d, nil
}

func (s *InMemoryStore) FindAndView(_ context.Context, id uuid.UUID) (Discussion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.discussions[id]
	if !ok {
		return Discussion{}, sentinel.ErrNotFound
	}
	d.ViewCount++
	s.discussions[id] = d
	return d, nil
}

func (s *InMemoryStore) UpdateDiscussion(_ context.Context, d Discussion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.discussions[d.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	// Counters belong to the store, not to metadata updates.
	d.ViewCount = current.ViewCount
	d.ReplyCount = current.ReplyCount
	s.discussions[d.ID] = d
	return nil
}

func (s *InMemoryStore) DeleteDiscussion(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.discussions[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.discussions, id)
	for rid, r := range s.replies {
		if r.DiscussionID == id {
			delete(s.replies, rid)
		}
	}
	return nil
}

func (s *InMemoryStore) ListDiscussions(_ context.Context, filter Filter) ([]Discussion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Discussion
	for _, d := range s.discussions {
		if filter.Title != "" && !strings.Contains(strings.ToLower(d.Title), strings.ToLower(filter.Title)) {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(d.Category, filter.Category) {
			continue
		}
		out = append(out, d)
	}
	// Pinned threads first, then newest.
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsPinned != out[j].IsPinned {
			return out[i].IsPinned
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryStore) CountDiscussions(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.discussions), nil
}

func (s *InMemoryStore) CreateReply(_ context.Context, r Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.discussions[r.DiscussionID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if r.ParentReplyID != nil {
		parent, ok := s.replies[*r.ParentReplyID]
		if !ok || parent.DiscussionID != r.DiscussionID {
			return sentinel.ErrNotFound
		}
	}
	s.replies[r.ID] = r
	d.ReplyCount++
	s.discussions[d.ID] = d
	return nil
}

func (s *InMemoryStore) FindReply(_ context.Context, id uuid.UUID) (Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.replies[id]
	if !ok {
		return Reply{}, sentinel.ErrNotFound
	}
	return r, nil
}

func (s *InMemoryStore) UpdateReply(_ context.Context, r Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.replies[r.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.replies[r.ID] = r
	return nil
}

func (s *InMemoryStore) DeleteReply(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.replies[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	delete(s.replies, id)
	// Detach children the way ON DELETE SET NULL does.
	for cid, child := range s.replies {
		if child.ParentReplyID != nil && *child.ParentReplyID == id {
			child.ParentReplyID = nil
			s.replies[cid] = child
		}
	}
	if d, ok := s.discussions[r.DiscussionID]; ok && d.ReplyCount > 0 {
		d.ReplyCount--
		s.discussions[d.ID] = d
	}
	return nil
}

func (s *InMemoryStore) ListReplies(_ context.Context, discussionID uuid.UUID) ([]Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Reply
	for _, r := range s.replies {
		if r.DiscussionID == discussionID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
