// Package event manages community events and their capacity-bounded
// registrations. Lifecycle management (update, delete, status) is
// administrator territory; any authenticated member may create events and
// register for open ones.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Status is the event lifecycle state.
type Status string

const (
	StatusUpcoming  Status = "UPCOMING"
	StatusOngoing   Status = "ONGOING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusOngoing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Event is a scheduled community gathering. MaxParticipants nil means
// unbounded; CurrentParticipants is maintained exclusively by the
// registration engine's conditional updates.
type Event struct {
	ID                   uuid.UUID  `json:"id"`
	Title                string     `json:"title"`
	Description          string     `json:"description,omitempty"`
	EventDate            time.Time  `json:"event_date"`
	EndDate              *time.Time `json:"end_date,omitempty"`
	Location             string     `json:"location,omitempty"`
	MaxParticipants      *int       `json:"max_participants,omitempty"`
	CurrentParticipants  int        `json:"current_participants"`
	Status               Status     `json:"status"`
	ImageURL             string     `json:"image_url,omitempty"`
	RegistrationRequired bool       `json:"registration_required"`
	CreatedBy            uuid.UUID  `json:"created_by"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// AcceptsRegistrations reports whether the lifecycle state still admits new
// registrations. Completed and cancelled events are closed.
func (e Event) AcceptsRegistrations() bool {
	return e.Status == StatusUpcoming || e.Status == StatusOngoing
}

// Filter narrows event listings. Zero values match everything; Title and
// Location match case-insensitive substrings.
type Filter struct {
	Title    string
	Location string
	Status   Status
}
