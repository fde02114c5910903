// Package domain holds the call entity and its lifecycle state machine.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the call lifecycle state.
type Status string

const (
	StatusDialing   Status = "dialing"
	StatusRinging   Status = "ringing"
	StatusConnected Status = "connected"
	StatusEnded     Status = "ended"
	StatusMissed    Status = "missed"
)

// transitions is the complete lifecycle table. Terminal states have no
// outgoing edges; everything absent is rejected.
var transitions = map[Status]map[Status]bool{
	StatusDialing: {
		StatusRinging:   true,
		StatusConnected: true,
		StatusMissed:    true,
	},
	StatusRinging: {
		StatusConnected: true,
		StatusMissed:    true,
	},
	StatusConnected: {
		StatusEnded: true,
	},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// IsTerminal reports whether the status ends the lifecycle.
func IsTerminal(s Status) bool {
	return s == StatusEnded || s == StatusMissed
}

// Call is one phone call, optionally linked to a contact's attendance.
type Call struct {
	ID              uuid.UUID
	ContactID       *uuid.UUID
	AgentID         uuid.UUID
	SectorID        *uuid.UUID
	Number          string
	Status          Status
	StartedAt       time.Time
	ConnectedAt     *time.Time
	FinishedAt      *time.Time
	DurationSeconds *int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Duration returns the total call time, from the start of dialing, recorded
// when the call entered a terminal state. A missed call has zero duration.
func (c Call) Duration() time.Duration {
	if c.DurationSeconds == nil {
		return 0
	}
	return time.Duration(*c.DurationSeconds) * time.Second
}

// Note is a free-text annotation attached to a call. Notes never affect the
// lifecycle state.
type Note struct {
	ID        uuid.UUID
	CallID    uuid.UUID
	AuthorID  uuid.UUID
	Body      string
	CreatedAt time.Time
}
