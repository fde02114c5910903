// Package domain provides core business rules for the attendance bounded context.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle status of a contact's current attendance cycle.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

var knownStatuses = map[Status]struct{}{
	StatusQueued:     {},
	StatusInProgress: {},
	StatusCompleted:  {},
}

// IsKnownStatus reports whether the status is part of the lifecycle vocabulary.
func IsKnownStatus(s Status) bool {
	_, ok := knownStatuses[s]
	return ok
}

// Contact is a person being served, tracked through one attendance cycle.
type Contact struct {
	ID            uuid.UUID
	DisplayName   string
	Phone         string // immutable once created
	SectorID      *uuid.UUID
	OwnerID       *uuid.UUID
	Status        Status
	Cycle         int // attendance cycle counter; re-contact opens a new cycle
	ArrivedAt     time.Time
	LastInboundAt *time.Time
	UnreadCount   int
	CompletedAt   *time.Time
	Version       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ValidateOwnership checks the owner/status invariant:
// owner != nil iff status == in_progress.
// Returns a non-empty reason string when the combination is invalid.
func (c Contact) ValidateOwnership() string {
	if c.OwnerID != nil && c.Status != StatusInProgress {
		return "an owned contact must be in_progress"
	}
	if c.OwnerID == nil && c.Status == StatusInProgress {
		return "an in_progress contact must have an owner"
	}
	return ""
}

// QueueWait returns how long the contact has been waiting in the queue.
// A missing arrival timestamp degrades to zero wait rather than erroring.
func (c Contact) QueueWait(now time.Time) time.Duration {
	if c.Status != StatusQueued || c.ArrivedAt.IsZero() {
		return 0
	}
	if wait := now.Sub(c.ArrivedAt); wait > 0 {
		return wait
	}
	return 0
}

// TimeWithoutResponse returns how long the contact has waited for an agent
// reply since its last inbound message. Zero when not in progress or when no
// inbound message has been recorded yet.
func (c Contact) TimeWithoutResponse(now time.Time) time.Duration {
	if c.Status != StatusInProgress || c.LastInboundAt == nil || c.LastInboundAt.IsZero() {
		return 0
	}
	if wait := now.Sub(*c.LastInboundAt); wait > 0 {
		return wait
	}
	return 0
}
