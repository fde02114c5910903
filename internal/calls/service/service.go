// Package service implements the call lifecycle controller.
package service

import (
	"context"
	"strings"
	"time"

	"atendimento_backend/internal/calls/domain"
	"atendimento_backend/internal/calls/repository"
	"atendimento_backend/internal/events"
	"atendimento_backend/platform/apperr"
	"atendimento_backend/platform/logger"
	"atendimento_backend/platform/phone"

	"github.com/google/uuid"
)

// ContactChecker verifies a linked contact exists. Implemented by the
// attendance service.
type ContactChecker interface {
	Exists(ctx context.Context, contactID uuid.UUID) error
}

// Store is the call persistence contract. Satisfied by repository.Repository.
type Store interface {
	Create(ctx context.Context, p repository.CreateParams) (domain.Call, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Call, error)
	Advance(ctx context.Context, id uuid.UUID, from, to domain.Status,
		connectedAt, finishedAt *time.Time, durationSeconds *int64) (domain.Call, error)
	AddNote(ctx context.Context, callID, authorID uuid.UUID, body string) (domain.Note, error)
	ListNotes(ctx context.Context, callID uuid.UUID) ([]domain.Note, error)
	ListByContact(ctx context.Context, contactID uuid.UUID) ([]domain.Call, error)
}

type Service struct {
	store    Store
	contacts ContactChecker
	bus      events.Bus
	log      *logger.Logger
}

func New(store Store, contacts ContactChecker, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, contacts: contacts, bus: bus, log: log}
}

// StartParams describes an outgoing call.
type StartParams struct {
	ContactID *uuid.UUID
	AgentID   uuid.UUID
	SectorID  *uuid.UUID
	Number    string
}

// Start creates a call in the dialing state.
func (s *Service) Start(ctx context.Context, p StartParams) (domain.Call, error) {
	if strings.TrimSpace(p.Number) == "" {
		return domain.Call{}, apperr.Validation("a call requires a number")
	}
	if p.ContactID != nil {
		if err := s.contacts.Exists(ctx, *p.ContactID); err != nil {
			return domain.Call{}, err
		}
	}

	p.Number = phone.NormalizeE164(p.Number)
	call, err := s.store.Create(ctx, repository.CreateParams{
		ContactID: p.ContactID,
		AgentID:   p.AgentID,
		SectorID:  p.SectorID,
		Number:    p.Number,
	})
	if err != nil {
		return domain.Call{}, err
	}

	s.log.CallEvent("started", call.ID.String(), string(call.Status))
	s.bus.Publish(ctx, events.CallStarted{
		BaseEvent: events.NewBaseEvent(),
		CallID:    call.ID,
		ContactID: call.ContactID,
		AgentID:   call.AgentID,
		SectorID:  call.SectorID,
		Number:    call.Number,
	})
	return call, nil
}

// Advance moves the call to the requested lifecycle state. Illegal steps are
// rejected; the duration is written exactly once, when the call enters a
// terminal state.
func (s *Service) Advance(ctx context.Context, callID uuid.UUID, to domain.Status) (domain.Call, error) {
	call, err := s.store.GetByID(ctx, callID)
	if err != nil {
		return domain.Call{}, err
	}
	if call.Status == to {
		return call, nil
	}
	if !domain.CanTransition(call.Status, to) {
		return domain.Call{}, apperr.InvalidTransition(
			"cannot move a " + string(call.Status) + " call to " + string(to))
	}

	now := time.Now()
	var connectedAt, finishedAt *time.Time
	var durationSeconds *int64
	if to == domain.StatusConnected {
		connectedAt = &now
	}
	if domain.IsTerminal(to) {
		finishedAt = &now
		// Duration covers the whole call from the moment dialing began.
		// Missed calls record zero.
		secs := int64(0)
		if to == domain.StatusEnded {
			secs = int64(now.Sub(call.StartedAt).Seconds())
		}
		durationSeconds = &secs
	}

	from := call.Status
	advanced, err := s.store.Advance(ctx, callID, from, to, connectedAt, finishedAt, durationSeconds)
	if err != nil {
		return domain.Call{}, err
	}

	s.log.CallEvent("advanced", callID.String(), string(to))
	if domain.IsTerminal(to) {
		s.bus.Publish(ctx, events.CallFinished{
			BaseEvent:       events.NewBaseEvent(),
			CallID:          advanced.ID,
			ContactID:       advanced.ContactID,
			Status:          string(advanced.Status),
			DurationSeconds: *durationSeconds,
		})
	} else {
		s.bus.Publish(ctx, events.CallStatusChanged{
			BaseEvent: events.NewBaseEvent(),
			CallID:    advanced.ID,
			OldStatus: string(from),
			NewStatus: string(to),
		})
	}
	return advanced, nil
}

// AttachNote adds a note to the call. Allowed in any state and never touches
// the lifecycle.
func (s *Service) AttachNote(ctx context.Context, callID, authorID uuid.UUID, body string) (domain.Note, error) {
	if strings.TrimSpace(body) == "" {
		return domain.Note{}, apperr.Validation("a note requires a body")
	}
	if _, err := s.store.GetByID(ctx, callID); err != nil {
		return domain.Note{}, err
	}
	return s.store.AddNote(ctx, callID, authorID, body)
}

// GetCall loads a call by id.
func (s *Service) GetCall(ctx context.Context, callID uuid.UUID) (domain.Call, error) {
	return s.store.GetByID(ctx, callID)
}

// ListNotes returns the call's notes in creation order.
func (s *Service) ListNotes(ctx context.Context, callID uuid.UUID) ([]domain.Note, error) {
	if _, err := s.store.GetByID(ctx, callID); err != nil {
		return nil, err
	}
	return s.store.ListNotes(ctx, callID)
}

// ListByContact returns the contact's call history, most recent first.
func (s *Service) ListByContact(ctx context.Context, contactID uuid.UUID) ([]domain.Call, error) {
	if err := s.contacts.Exists(ctx, contactID); err != nil {
		return nil, err
	}
	return s.store.ListByContact(ctx, contactID)
}
