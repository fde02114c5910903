// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"atendimento_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Attendance Domain Events
// =============================================================================

// ContactReceived is published when a new contact enters the system
// (or a completed contact re-opens for a new attendance cycle).
type ContactReceived struct {
	BaseEvent
	ContactID uuid.UUID  `json:"contactId"`
	SectorID  *uuid.UUID `json:"sectorId,omitempty"`
	Status    string     `json:"status"`
	Cycle     int        `json:"cycle"`
}

func (e ContactReceived) EventName() string { return "attendance.contact.received" }

// AttendanceStarted is published when a contact is assigned to an agent.
type AttendanceStarted struct {
	BaseEvent
	ContactID uuid.UUID  `json:"contactId"`
	AgentID   uuid.UUID  `json:"agentId"`
	SectorID  *uuid.UUID `json:"sectorId,omitempty"`
	ActorID   *uuid.UUID `json:"actorId,omitempty"` // nil when system-attributed (auto-distribution)
}

func (e AttendanceStarted) EventName() string { return "attendance.started" }

// AttendanceTransferred is published when a committed transfer changes
// the owner, sector or queue placement of a contact.
type AttendanceTransferred struct {
	BaseEvent
	ContactID      uuid.UUID  `json:"contactId"`
	TransferID     uuid.UUID  `json:"transferId"`
	PreviousAgent  *uuid.UUID `json:"previousAgent,omitempty"`
	PreviousSector *uuid.UUID `json:"previousSector,omitempty"`
	NewAgent       *uuid.UUID `json:"newAgent,omitempty"`
	NewSector      *uuid.UUID `json:"newSector,omitempty"`
	Reason         string     `json:"reason"`
	ActorID        uuid.UUID  `json:"actorId"`
	NewStatus      string     `json:"newStatus"`
}

func (e AttendanceTransferred) EventName() string { return "attendance.transferred" }

// AttendanceCompleted is published when an attendance cycle finishes.
type AttendanceCompleted struct {
	BaseEvent
	ContactID uuid.UUID  `json:"contactId"`
	AgentID   *uuid.UUID `json:"agentId,omitempty"`
	ActorID   uuid.UUID  `json:"actorId"`
	Cycle     int        `json:"cycle"`
}

func (e AttendanceCompleted) EventName() string { return "attendance.completed" }

// ContactMessageReceived is published on every inbound message. It drives
// the no-response SLA clock and the unread counter shown to agents.
type ContactMessageReceived struct {
	BaseEvent
	ContactID   uuid.UUID `json:"contactId"`
	Status      string    `json:"status"`
	UnreadCount int       `json:"unreadCount"`
}

func (e ContactMessageReceived) EventName() string { return "attendance.contact.message_received" }

// ContactRenamed is published when a contact's display name changes (audited).
type ContactRenamed struct {
	BaseEvent
	ContactID uuid.UUID `json:"contactId"`
	OldName   string    `json:"oldName"`
	NewName   string    `json:"newName"`
	ActorID   uuid.UUID `json:"actorId"`
}

func (e ContactRenamed) EventName() string { return "attendance.contact.renamed" }

// =============================================================================
// Call Domain Events
// =============================================================================

// CallStarted is published when a call is created in the dialing state.
type CallStarted struct {
	BaseEvent
	CallID    uuid.UUID  `json:"callId"`
	ContactID *uuid.UUID `json:"contactId,omitempty"`
	AgentID   uuid.UUID  `json:"agentId"`
	SectorID  *uuid.UUID `json:"sectorId,omitempty"`
	Number    string     `json:"number"`
}

func (e CallStarted) EventName() string { return "calls.started" }

// CallStatusChanged is published on every non-terminal call transition.
type CallStatusChanged struct {
	BaseEvent
	CallID    uuid.UUID `json:"callId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
}

func (e CallStatusChanged) EventName() string { return "calls.status_changed" }

// CallFinished is published once, when a call enters a terminal state.
type CallFinished struct {
	BaseEvent
	CallID          uuid.UUID  `json:"callId"`
	ContactID       *uuid.UUID `json:"contactId,omitempty"`
	Status          string     `json:"status"` // ended or missed
	DurationSeconds int64      `json:"durationSeconds"`
}

func (e CallFinished) EventName() string { return "calls.finished" }

// =============================================================================
// SLA Domain Events
// =============================================================================

// SLAAlertRaised is published when a contact crosses an alert threshold.
// Tick-driven and therefore system-attributed: it carries no actor.
type SLAAlertRaised struct {
	BaseEvent
	ContactID uuid.UUID  `json:"contactId"`
	Kind      string     `json:"kind"` // queue_wait or no_response
	AgentID   *uuid.UUID `json:"agentId,omitempty"`
	SectorID  *uuid.UUID `json:"sectorId,omitempty"`
}

func (e SLAAlertRaised) EventName() string { return "sla.alert.raised" }

// SLAAlertCleared is published when a previously alerted contact drops
// back under its threshold.
type SLAAlertCleared struct {
	BaseEvent
	ContactID uuid.UUID `json:"contactId"`
	Kind      string    `json:"kind"`
}

func (e SLAAlertCleared) EventName() string { return "sla.alert.cleared" }
