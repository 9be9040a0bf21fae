// Package authz is the single declarative authorization matrix. Every mutating
// or access-sensitive operation asks Decide before touching storage, so the
// whole permission surface is auditable and testable as one unit instead of
// being scattered across service methods.
package authz

import "communityhub/internal/identity"

// Action names a category of operation performed against an entity.
type Action string

const (
	ActionCreate       Action = "create"
	ActionRead         Action = "read"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionRegister     Action = "register"
	ActionUnregister   Action = "unregister"
	ActionManageStatus Action = "manage_status" // registration status changes
	ActionListMembers  Action = "list_members"  // participant / registration rosters
)

// EntityKind names the entity class an action targets.
type EntityKind string

const (
	KindEvent        EntityKind = "Event"
	KindOpportunity  EntityKind = "VolunteerOpportunity"
	KindRegistration EntityKind = "Registration"
	KindDiscussion   EntityKind = "Discussion"
	KindReply        EntityKind = "DiscussionReply"
	KindDocument     EntityKind = "Document"
	KindUser         EntityKind = "User"
	KindAuditLog     EntityKind = "AuditLog"
	KindSettings     EntityKind = "Settings"
	KindNotification EntityKind = "Notification"
)

// Decision is the outcome of a single matrix lookup.
type Decision int

const (
	Deny Decision = iota
	Allow
)

// Decide resolves whether a caller with the given role may perform action on
// an entity of the given kind, given the ownership relation. It is a pure
// function with no side effects.
//
// The matrix, condensed:
//   - admins may do anything;
//   - owners manage their own discussions, replies, documents, and the
//     registrations attached to subjects they created;
//   - plain members create, read, and self-register;
//   - anonymous callers only read public content (graded document access is
//     decided separately by CanReadDocument).
func Decide(action Action, kind EntityKind, caller identity.Principal, isOwner bool) Decision {
	if caller.IsAdmin() {
		return Allow
	}

	if caller.Anonymous() {
		if action == ActionRead && readableAnonymously(kind) {
			return Allow
		}
		return Deny
	}

	switch action {
	case ActionRead:
		return Allow
	case ActionCreate:
		// Any authenticated member may create content. Events and volunteer
		// opportunities included: ownership gates management, not creation.
		return Allow
	case ActionRegister, ActionUnregister:
		if kind == KindEvent || kind == KindOpportunity {
			return Allow
		}
		return Deny
	case ActionUpdate, ActionDelete:
		switch kind {
		case KindDiscussion, KindReply, KindDocument:
			if isOwner {
				return Allow
			}
		case KindEvent, KindOpportunity:
			// Management of events and opportunities is admin-only; creators
			// do not retain update/delete rights over them.
			return Deny
		}
		return Deny
	case ActionManageStatus:
		// Registration status changes: admin or the creator of the subject
		// the registration belongs to.
		if kind == KindRegistration && isOwner {
			return Allow
		}
		return Deny
	case ActionListMembers:
		if (kind == KindEvent || kind == KindOpportunity) && isOwner {
			return Allow
		}
		return Deny
	default:
		return Deny
	}
}

func readableAnonymously(kind EntityKind) bool {
	switch kind {
	case KindEvent, KindOpportunity, KindDiscussion, KindReply, KindDocument:
		return true
	default:
		return false
	}
}

// AccessLevel is a document visibility tier. Levels form a lattice:
// PUBLIC ⊂ MEMBER ⊂ COMMITTEE ⊂ ADMIN.
type AccessLevel string

const (
	LevelPublic    AccessLevel = "PUBLIC"
	LevelMember    AccessLevel = "MEMBER"
	LevelCommittee AccessLevel = "COMMITTEE"
	LevelAdmin     AccessLevel = "ADMIN"
)

// Valid reports whether l is a known access level.
func (l AccessLevel) Valid() bool {
	switch l {
	case LevelPublic, LevelMember, LevelCommittee, LevelAdmin:
		return true
	}
	return false
}

// AccessibleLevels returns the set of document levels a caller may read.
// The sets are monotonically inclusive up the lattice.
func AccessibleLevels(caller identity.Principal) []AccessLevel {
	switch {
	case caller.IsAdmin():
		return []AccessLevel{LevelPublic, LevelMember, LevelCommittee, LevelAdmin}
	case !caller.Anonymous():
		return []AccessLevel{LevelPublic, LevelMember}
	default:
		return []AccessLevel{LevelPublic}
	}
}

// CanReadDocument reports whether the caller's accessible set contains the
// document's level. Callers outside the set must receive NotFound rather than
// Forbidden: access-level denial must not reveal the document's existence.
func CanReadDocument(caller identity.Principal, level AccessLevel) bool {
	for _, l := range AccessibleLevels(caller) {
		if l == level {
			return true
		}
	}
	return false
}
