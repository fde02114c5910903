package service

import (
	"context"
	"time"

	"atendimento_backend/internal/attendance/domain"
	"atendimento_backend/internal/events"
	"atendimento_backend/platform/apperr"

	"github.com/google/uuid"
)

// BeginTransfer is step 1 of the transfer protocol: the caller selects a
// destination. Nothing is persisted and no entity lock is held — the returned
// token lives in the caller's session until the justification arrives. An
// abandoned selection simply expires.
func (s *Service) BeginTransfer(ctx context.Context, contactID uuid.UUID, dest domain.Destination, actorID uuid.UUID) (domain.PendingTransfer, error) {
	if reason := dest.Validate(); reason != "" {
		return domain.PendingTransfer{}, apperr.Validation(reason)
	}

	contact, err := s.store.GetContact(ctx, contactID)
	if err != nil {
		return domain.PendingTransfer{}, err
	}
	if contact.Status != domain.StatusInProgress {
		return domain.PendingTransfer{}, apperr.InvalidTransition("only an in-progress attendance can be transferred")
	}

	switch dest.Kind {
	case domain.DestinationAgent:
		if *dest.AgentID == actorID {
			return domain.PendingTransfer{}, apperr.Validation("cannot transfer a contact to yourself")
		}
		if _, err := s.agents.GetByID(ctx, *dest.AgentID); err != nil {
			return domain.PendingTransfer{}, err
		}
	case domain.DestinationSector:
		sector, err := s.sectors.GetByID(ctx, *dest.SectorID)
		if err != nil {
			return domain.PendingTransfer{}, err
		}
		if !sector.AcceptsChat {
			return domain.PendingTransfer{}, apperr.Validation("destination sector does not accept chat contacts")
		}
	case domain.DestinationOwnQueue:
		if contact.SectorID == nil {
			return domain.PendingTransfer{}, apperr.Validation("contact has no sector; use the general pool destination")
		}
	}

	now := time.Now()
	pt := domain.PendingTransfer{
		Token:       uuid.New(),
		ContactID:   contactID,
		Destination: dest,
		ActorID:     actorID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(pendingTransferTTL),
	}
	s.pending.put(pt)
	return pt, nil
}

// CommitTransfer is step 2: the justification arrives and the hand-off is
// committed atomically with its audit record. A missing or unknown reason
// code fails without mutating anything.
func (s *Service) CommitTransfer(ctx context.Context, contactID, token uuid.UUID, reason domain.Reason, note *string) (domain.Contact, error) {
	if reason == "" {
		return domain.Contact{}, apperr.MissingJustification("a transfer requires a justification code")
	}
	if !domain.IsKnownReason(reason) {
		return domain.Contact{}, apperr.MissingJustification("unknown transfer justification code")
	}

	pt, ok := s.pending.take(token)
	if !ok || pt.ContactID != contactID {
		return domain.Contact{}, apperr.NotFound("no pending transfer for this token")
	}
	if pt.Expired(time.Now()) {
		return domain.Contact{}, apperr.NotFound("the pending transfer has expired; select a destination again")
	}

	unlock := s.locks.acquire(contactID)
	defer unlock()

	contact, err := s.store.GetContact(ctx, contactID)
	if err != nil {
		return domain.Contact{}, err
	}
	committed, rec, err := s.applyTransfer(ctx, contact, pt, reason, note)
	if apperr.Is(err, apperr.KindConflict) {
		// One retry with a fresh read; the selection may still be valid.
		contact, err = s.store.GetContact(ctx, contactID)
		if err != nil {
			return domain.Contact{}, err
		}
		committed, rec, err = s.applyTransfer(ctx, contact, pt, reason, note)
	}
	if err != nil {
		return domain.Contact{}, err
	}

	if committed.Status == domain.StatusQueued {
		if err := s.index.Enqueue(committed); err != nil {
			s.log.Error("transfer enqueue failed", "error", err, "contactId", contactID)
		}
	}

	s.log.RoutingEvent("transferred", contactID.String(), pt.ActorID.String())
	s.bus.Publish(ctx, events.AttendanceTransferred{
		BaseEvent:      events.NewBaseEvent(),
		ContactID:      committed.ID,
		TransferID:     rec.ID,
		PreviousAgent:  rec.PreviousAgent,
		PreviousSector: rec.PreviousSector,
		NewAgent:       rec.NewAgent,
		NewSector:      rec.NewSector,
		Reason:         string(reason),
		ActorID:        pt.ActorID,
		NewStatus:      string(committed.Status),
	})
	return committed, nil
}

// AbandonTransfer discards a step-1 selection. Nothing was written, so there
// is nothing to compensate.
func (s *Service) AbandonTransfer(token uuid.UUID) error {
	if !s.pending.drop(token) {
		return apperr.NotFound("no pending transfer for this token")
	}
	return nil
}

// applyTransfer computes the post-transfer placement and persists contact and
// audit record in one transaction.
func (s *Service) applyTransfer(ctx context.Context, contact domain.Contact, pt domain.PendingTransfer,
	reason domain.Reason, note *string) (domain.Contact, domain.TransferRecord, error) {
	if contact.Status != domain.StatusInProgress {
		return domain.Contact{}, domain.TransferRecord{}, apperr.InvalidTransition("only an in-progress attendance can be transferred")
	}

	rec := domain.TransferRecord{
		ContactID:      contact.ID,
		PreviousAgent:  contact.OwnerID,
		PreviousSector: contact.SectorID,
		Destination:    pt.Destination.Kind,
		Reason:         reason,
		Note:           note,
		ActorID:        pt.ActorID,
	}

	switch pt.Destination.Kind {
	case domain.DestinationAgent:
		// Re-owned without re-entering a queue.
		contact.OwnerID = pt.Destination.AgentID
	case domain.DestinationSector:
		contact.Status = domain.StatusQueued
		contact.SectorID = pt.Destination.SectorID
		contact.OwnerID = nil
	case domain.DestinationOwnQueue:
		contact.Status = domain.StatusQueued
		contact.OwnerID = nil
	case domain.DestinationGeneralPool:
		contact.Status = domain.StatusQueued
		contact.SectorID = nil
		contact.OwnerID = nil
	}
	rec.NewAgent = contact.OwnerID
	rec.NewSector = contact.SectorID

	return s.store.SaveContactWithTransfer(ctx, contact, rec)
}
