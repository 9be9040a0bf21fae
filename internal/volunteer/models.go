// Package volunteer manages volunteer opportunities and their registrations,
// backed by the same capacity engine as events.
package volunteer

import (
	"time"

	"github.com/google/uuid"
)

// Status is the opportunity lifecycle state.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusFilled    Status = "FILLED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusFilled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Opportunity is a call for volunteers. MaxVolunteers nil means unbounded;
// CurrentVolunteers is owned by the registration engine.
type Opportunity struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	Requirements      string     `json:"requirements,omitempty"`
	Location          string     `json:"location,omitempty"`
	DateTime          *time.Time `json:"date_time,omitempty"`
	DurationHours     *int       `json:"duration_hours,omitempty"`
	MaxVolunteers     *int       `json:"max_volunteers,omitempty"`
	CurrentVolunteers int        `json:"current_volunteers"`
	Status            Status     `json:"status"`
	CreatedBy         uuid.UUID  `json:"created_by"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// AcceptsRegistrations reports whether new volunteers may still sign up.
func (o Opportunity) AcceptsRegistrations() bool {
	return o.Status == StatusActive
}

// Filter narrows opportunity listings; zero values match everything.
type Filter struct {
	Title    string
	Location string
	Status   Status
}
