// Package audit appends a tamper-evident trail of who did what, to what, with
// what before/after state. Recording is best-effort and asynchronous: a failed
// append is reported to the operational log and counted, never surfaced to the
// caller and never able to roll back the business operation it describes.
package audit

import (
	"time"

	"github.com/google/uuid"

	"communityhub/internal/authz"
)

// Actions recorded across the application. Kept as one list so the audit
// vocabulary stays greppable.
const (
	ActionCreateEvent       = "CREATE_EVENT"
	ActionUpdateEvent       = "UPDATE_EVENT"
	ActionDeleteEvent       = "DELETE_EVENT"
	ActionCreateOpportunity = "CREATE_OPPORTUNITY"
	ActionUpdateOpportunity = "UPDATE_OPPORTUNITY"
	ActionDeleteOpportunity = "DELETE_OPPORTUNITY"
	ActionRegister          = "REGISTER"
	ActionUnregister        = "UNREGISTER"
	ActionUpdateRegStatus   = "UPDATE_REGISTRATION_STATUS"
	ActionCreateDiscussion  = "CREATE_DISCUSSION"
	ActionUpdateDiscussion  = "UPDATE_DISCUSSION"
	ActionDeleteDiscussion  = "DELETE_DISCUSSION"
	ActionDeleteReply       = "DELETE_REPLY"
	ActionUploadDocument    = "UPLOAD_DOCUMENT"
	ActionUpdateDocument    = "UPDATE_DOCUMENT"
	ActionDeleteDocument    = "DELETE_DOCUMENT"
	ActionUpdateUserRole    = "UPDATE_USER_ROLE"
	ActionDeleteUser        = "DELETE_USER"
	ActionUpdateGlobalSet   = "UPDATE_GLOBAL_SETTINGS"
)

// Record is one append-only audit fact. Entity references are weak (kind + id,
// no foreign key) so records survive deletion of the entity they describe.
// A nil ActorID marks a system action.
type Record struct {
	ID         uuid.UUID
	ActorID    *uuid.UUID
	Action     string
	EntityKind authz.EntityKind
	EntityID   uuid.UUID
	OldValues  *string // canonical JSON snapshot, nil when unavailable
	NewValues  *string
	IPAddress  string
	UserAgent  string
	ClientInfo string // parsed browser/OS summary, empty for non-browser callers
	CreatedAt  time.Time
}
