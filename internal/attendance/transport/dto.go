// Package transport defines the request and response DTOs for the
// attendance HTTP surface.
package transport

import (
	"time"

	"atendimento_backend/internal/attendance/domain"
	"atendimento_backend/internal/attendance/queue"
	"atendimento_backend/internal/attendance/repository"

	"github.com/google/uuid"
)

// ReceiveContactRequest registers a new inbound contact.
type ReceiveContactRequest struct {
	DisplayName string     `json:"displayName" validate:"required,min=1,max=200"`
	Phone       string     `json:"phone" validate:"required,min=3,max=32"`
	SectorID    *uuid.UUID `json:"sectorId,omitempty"`
}

// RenameContactRequest updates the display name (audited).
type RenameContactRequest struct {
	DisplayName string `json:"displayName" validate:"required,min=1,max=200"`
}

// InboundMessageRequest records an inbound message from the contact.
type InboundMessageRequest struct {
	At *time.Time `json:"at,omitempty"`
}

// AssignRequest hands a queued contact to an agent.
type AssignRequest struct {
	AgentID uuid.UUID `json:"agentId" validate:"required"`
}

// BeginTransferRequest is step 1 of the transfer protocol.
type BeginTransferRequest struct {
	Kind     string     `json:"kind" validate:"required,oneof=agent sector own_queue general_pool"`
	AgentID  *uuid.UUID `json:"agentId,omitempty"`
	SectorID *uuid.UUID `json:"sectorId,omitempty"`
}

// Destination converts the request into the domain destination.
func (r BeginTransferRequest) Destination() domain.Destination {
	return domain.Destination{
		Kind:     domain.DestinationKind(r.Kind),
		AgentID:  r.AgentID,
		SectorID: r.SectorID,
	}
}

// CommitTransferRequest is step 2: the mandatory justification.
type CommitTransferRequest struct {
	Reason string  `json:"reason" validate:"required"`
	Note   *string `json:"note,omitempty" validate:"omitempty,max=1000"`
}

// PendingTransferResponse is returned by step 1. The token must be echoed
// back on commit.
type PendingTransferResponse struct {
	Token     uuid.UUID `json:"token"`
	ContactID uuid.UUID `json:"contactId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewPendingTransferResponse maps the domain pending transfer.
func NewPendingTransferResponse(pt domain.PendingTransfer) PendingTransferResponse {
	return PendingTransferResponse{
		Token:     pt.Token,
		ContactID: pt.ContactID,
		ExpiresAt: pt.ExpiresAt,
	}
}

// ContactResponse is the canonical contact representation.
type ContactResponse struct {
	ID            uuid.UUID  `json:"id"`
	DisplayName   string     `json:"displayName"`
	Phone         string     `json:"phone"`
	SectorID      *uuid.UUID `json:"sectorId,omitempty"`
	OwnerID       *uuid.UUID `json:"ownerId,omitempty"`
	Status        string     `json:"status"`
	Cycle         int        `json:"cycle"`
	ArrivedAt     time.Time  `json:"arrivedAt"`
	LastInboundAt *time.Time `json:"lastInboundAt,omitempty"`
	UnreadCount   int        `json:"unreadCount"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// NewContactResponse maps a domain contact.
func NewContactResponse(c domain.Contact) ContactResponse {
	return ContactResponse{
		ID:            c.ID,
		DisplayName:   c.DisplayName,
		Phone:         c.Phone,
		SectorID:      c.SectorID,
		OwnerID:       c.OwnerID,
		Status:        string(c.Status),
		Cycle:         c.Cycle,
		ArrivedAt:     c.ArrivedAt,
		LastInboundAt: c.LastInboundAt,
		UnreadCount:   c.UnreadCount,
		CompletedAt:   c.CompletedAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

// TransferRecordResponse is one entry of the transfer audit trail.
type TransferRecordResponse struct {
	ID             uuid.UUID  `json:"id"`
	ContactID      uuid.UUID  `json:"contactId"`
	PreviousAgent  *uuid.UUID `json:"previousAgent,omitempty"`
	PreviousSector *uuid.UUID `json:"previousSector,omitempty"`
	NewAgent       *uuid.UUID `json:"newAgent,omitempty"`
	NewSector      *uuid.UUID `json:"newSector,omitempty"`
	Destination    string     `json:"destination"`
	Reason         string     `json:"reason"`
	Note           *string    `json:"note,omitempty"`
	ActorID        uuid.UUID  `json:"actorId"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// NewTransferRecordResponse maps a domain transfer record.
func NewTransferRecordResponse(rec domain.TransferRecord) TransferRecordResponse {
	return TransferRecordResponse{
		ID:             rec.ID,
		ContactID:      rec.ContactID,
		PreviousAgent:  rec.PreviousAgent,
		PreviousSector: rec.PreviousSector,
		NewAgent:       rec.NewAgent,
		NewSector:      rec.NewSector,
		Destination:    string(rec.Destination),
		Reason:         string(rec.Reason),
		Note:           rec.Note,
		ActorID:        rec.ActorID,
		CreatedAt:      rec.CreatedAt,
	}
}

// QueueEntryResponse is one queued contact in a sector snapshot.
type QueueEntryResponse struct {
	ContactID   uuid.UUID  `json:"contactId"`
	SectorID    *uuid.UUID `json:"sectorId,omitempty"`
	ArrivedAt   time.Time  `json:"arrivedAt"`
	WaitSeconds int64      `json:"waitSeconds"`
	InAlert     bool       `json:"inAlert"`
}

// NewQueueEntryResponses maps an ordered queue snapshot.
func NewQueueEntryResponses(snapshots []queue.Snapshot) []QueueEntryResponse {
	out := make([]QueueEntryResponse, 0, len(snapshots))
	for _, s := range snapshots {
		out = append(out, QueueEntryResponse{
			ContactID:   s.ContactID,
			SectorID:    s.SectorID,
			ArrivedAt:   s.ArrivedAt,
			WaitSeconds: int64(s.Wait.Seconds()),
			InAlert:     s.InAlert,
		})
	}
	return out
}

// WorkloadResponse summarizes an agent's current load.
type WorkloadResponse struct {
	AgentID            uuid.UUID  `json:"agentId"`
	InProgress         int        `json:"inProgress"`
	CompletedToday     int        `json:"completedToday"`
	AvgHandleSeconds   float64    `json:"avgHandleSeconds"`
	OldestOwnedArrival *time.Time `json:"oldestOwnedArrival,omitempty"`
}

// NewWorkloadResponse maps the repository workload summary.
func NewWorkloadResponse(w repository.Workload) WorkloadResponse {
	return WorkloadResponse{
		AgentID:            w.AgentID,
		InProgress:         w.InProgress,
		CompletedToday:     w.CompletedToday,
		AvgHandleSeconds:   w.AvgHandleSeconds,
		OldestOwnedArrival: w.OldestOwnedArrival,
	}
}
