// Package discussion manages community discussion threads and their replies.
// Authors and admins manage threads; locking stops new replies, pinning is
// presentation metadata.
package discussion

import (
	"time"

	"github.com/google/uuid"
)

// Discussion is one thread. ViewCount and ReplyCount are denormalized
// counters maintained by the store.
type Discussion struct {
	ID         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Category   string    `json:"category,omitempty"`
	IsPinned   bool      `json:"is_pinned"`
	IsLocked   bool      `json:"is_locked"`
	ViewCount  int       `json:"view_count"`
	ReplyCount int       `json:"reply_count"`
	CreatedBy  uuid.UUID `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Reply is one message in a thread, optionally nested under a parent reply.
type Reply struct {
	ID            uuid.UUID  `json:"id"`
	DiscussionID  uuid.UUID  `json:"discussion_id"`
	ParentReplyID *uuid.UUID `json:"parent_reply_id,omitempty"`
	Content       string     `json:"content"`
	CreatedBy     uuid.UUID  `json:"created_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Filter narrows thread listings; zero values match everything.
type Filter struct {
	Title    string
	Category string
}
