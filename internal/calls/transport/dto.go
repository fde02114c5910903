// Package transport defines the request and response DTOs for the calls surface.
package transport

import (
	"time"

	"atendimento_backend/internal/calls/domain"

	"github.com/google/uuid"
)

// StartCallRequest creates a call in the dialing state.
type StartCallRequest struct {
	ContactID *uuid.UUID `json:"contactId,omitempty"`
	SectorID  *uuid.UUID `json:"sectorId,omitempty"`
	Number    string     `json:"number" validate:"required,min=3,max=32"`
}

// AdvanceCallRequest moves the call to the next lifecycle state.
type AdvanceCallRequest struct {
	Status string `json:"status" validate:"required,oneof=ringing connected ended missed"`
}

// NoteRequest attaches a free-text note to the call.
type NoteRequest struct {
	Body string `json:"body" validate:"required,min=1,max=2000"`
}

// CallResponse is the canonical call representation.
type CallResponse struct {
	ID              uuid.UUID  `json:"id"`
	ContactID       *uuid.UUID `json:"contactId,omitempty"`
	AgentID         uuid.UUID  `json:"agentId"`
	SectorID        *uuid.UUID `json:"sectorId,omitempty"`
	Number          string     `json:"number"`
	Status          string     `json:"status"`
	StartedAt       time.Time  `json:"startedAt"`
	ConnectedAt     *time.Time `json:"connectedAt,omitempty"`
	FinishedAt      *time.Time `json:"finishedAt,omitempty"`
	DurationSeconds *int64     `json:"durationSeconds,omitempty"`
}

// NewCallResponse maps a domain call.
func NewCallResponse(c domain.Call) CallResponse {
	return CallResponse{
		ID:              c.ID,
		ContactID:       c.ContactID,
		AgentID:         c.AgentID,
		SectorID:        c.SectorID,
		Number:          c.Number,
		Status:          string(c.Status),
		StartedAt:       c.StartedAt,
		ConnectedAt:     c.ConnectedAt,
		FinishedAt:      c.FinishedAt,
		DurationSeconds: c.DurationSeconds,
	}
}

// NewCallResponses maps a call list.
func NewCallResponses(calls []domain.Call) []CallResponse {
	out := make([]CallResponse, 0, len(calls))
	for _, c := range calls {
		out = append(out, NewCallResponse(c))
	}
	return out
}

// NoteResponse is one call annotation.
type NoteResponse struct {
	ID        uuid.UUID `json:"id"`
	CallID    uuid.UUID `json:"callId"`
	AuthorID  uuid.UUID `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewNoteResponse maps a domain note.
func NewNoteResponse(n domain.Note) NoteResponse {
	return NoteResponse{
		ID:        n.ID,
		CallID:    n.CallID,
		AuthorID:  n.AuthorID,
		Body:      n.Body,
		CreatedAt: n.CreatedAt,
	}
}
