// Package agents provides read access to human operators and their presence.
// Agent administration and the presence subsystem itself are out of core
// scope; routing only reads them.
package agents

import (
	"time"

	"github.com/google/uuid"
)

// Role is the agent's console role.
type Role string

const (
	RoleAgent        Role = "agent"
	RoleCoordination Role = "coordination"
	RoleManager      Role = "manager"
)

// Presence is the agent's current availability, owned by the presence subsystem.
type Presence string

const (
	PresenceOnline Presence = "online"
	PresenceBusy   Presence = "busy"
	PresenceOnCall Presence = "on_call"
	PresenceAway   Presence = "away"
)

// Agent is a human operator.
type Agent struct {
	ID          uuid.UUID
	DisplayName string
	Role        Role
	SectorID    *uuid.UUID
	CreatedAt   time.Time // seniority: earlier is more senior
}
