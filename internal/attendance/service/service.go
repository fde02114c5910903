// Package service implements the routing engine: contact lifecycle
// transitions, the two-step transfer protocol and auto-distribution.
package service

import (
	"context"
	"time"

	"atendimento_backend/internal/attendance/domain"
	"atendimento_backend/internal/attendance/queue"
	"atendimento_backend/internal/attendance/repository"
	"atendimento_backend/internal/config"
	"atendimento_backend/internal/events"
	"atendimento_backend/platform/apperr"
	"atendimento_backend/platform/logger"
	"atendimento_backend/platform/phone"

	"github.com/google/uuid"
)

// PromotionTrigger is the agent action that may promote a queued contact to
// in_progress, matched against the configured entry rule.
type PromotionTrigger string

const (
	TriggerOpen         PromotionTrigger = "open"
	TriggerFirstMessage PromotionTrigger = "first_message"
	TriggerDistribution PromotionTrigger = "distribution"
)

// Service is the routing engine. All mutations to a contact are serialized by
// a per-contact lock; different contacts proceed in parallel.
type Service struct {
	store    Store
	index    *queue.Index
	sectors  SectorReader
	agents   AgentDirectory
	presence PresenceReader
	alerts   AlertSource
	bus      events.Bus
	cfg      *config.Config
	log      *logger.Logger

	locks    *contactLocks
	pending  *pendingTransfers
	balancer *balancer
}

// New creates the routing engine.
func New(store Store, index *queue.Index, sectorReader SectorReader, agentDir AgentDirectory,
	presenceReader PresenceReader, alerts AlertSource, bus events.Bus, cfg *config.Config, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		index:    index,
		sectors:  sectorReader,
		agents:   agentDir,
		presence: presenceReader,
		alerts:   alerts,
		bus:      bus,
		cfg:      cfg,
		log:      log,
		locks:    newContactLocks(),
		pending:  newPendingTransfers(),
		balancer: newBalancer(),
	}
}

// RebuildQueueIndex reloads the in-memory queue view from the store.
// Called at startup; the index carries no durable state of its own.
func (s *Service) RebuildQueueIndex(ctx context.Context) error {
	queued, err := s.store.ListQueuedContacts(ctx)
	if err != nil {
		return err
	}
	s.index.Rebuild(queued)
	return nil
}

// ReceiveContactParams describes a new inbound contact.
type ReceiveContactParams struct {
	DisplayName string
	Phone       string
	SectorID    *uuid.UUID
}

// ReceiveContact registers a new contact and routes it: auto-distributed
// sectors (and the auto entry rule) try to assign an online agent right away,
// everything else waits in the sector queue.
func (s *Service) ReceiveContact(ctx context.Context, p ReceiveContactParams) (domain.Contact, error) {
	autoDistribute := s.cfg.EntryRule == config.EntryRuleAuto
	if p.SectorID != nil {
		sector, err := s.sectors.GetByID(ctx, *p.SectorID)
		if err != nil {
			return domain.Contact{}, err
		}
		if !sector.AcceptsChat {
			return domain.Contact{}, apperr.Validation("sector does not accept chat contacts")
		}
		// The sector flag overrides the global entry rule for its own arrivals.
		autoDistribute = autoDistribute || sector.AutoDistribute
	}

	contact, err := s.store.CreateContact(ctx, repository.CreateContactParams{
		DisplayName: p.DisplayName,
		Phone:       phone.NormalizeE164(p.Phone),
		SectorID:    p.SectorID,
	})
	if err != nil {
		return domain.Contact{}, err
	}

	s.publishReceived(ctx, contact)

	if autoDistribute {
		if assigned, ok := s.tryAutoAssign(ctx, contact); ok {
			return assigned, nil
		}
	}

	if err := s.index.Enqueue(contact); err != nil {
		return domain.Contact{}, err
	}
	return contact, nil
}

// tryAutoAssign picks an agent by the configured balancing strategy and
// assigns system-attributed. Falls back to the queue when no agent is online.
func (s *Service) tryAutoAssign(ctx context.Context, contact domain.Contact) (domain.Contact, bool) {
	agent, err := s.balancer.pick(ctx, s, contact.SectorID)
	if err != nil || agent == nil {
		if err != nil {
			s.log.Error("auto-distribution agent selection failed", "error", err, "contactId", contact.ID)
		}
		return domain.Contact{}, false
	}

	assigned, err := s.Assign(ctx, contact.ID, agent.ID, nil)
	if err != nil {
		s.log.Error("auto-distribution assign failed", "error", err, "contactId", contact.ID, "agentId", agent.ID)
		return domain.Contact{}, false
	}
	return assigned, true
}

// Assign promotes a queued contact to in_progress owned by the agent.
// A nil actor marks a system-attributed assignment (auto-distribution).
func (s *Service) Assign(ctx context.Context, contactID, agentID uuid.UUID, actorID *uuid.UUID) (domain.Contact, error) {
	if _, err := s.agents.GetByID(ctx, agentID); err != nil {
		return domain.Contact{}, err
	}

	unlock := s.locks.acquire(contactID)
	defer unlock()

	contact, err := s.mutate(ctx, contactID, func(c *domain.Contact) error {
		if c.Status != domain.StatusQueued {
			return apperr.NotQueued("this contact already has an owner or is completed")
		}
		c.Status = domain.StatusInProgress
		c.OwnerID = &agentID
		return nil
	})
	if err != nil {
		return domain.Contact{}, err
	}

	s.index.Dequeue(contactID)
	s.log.RoutingEvent("assigned", contactID.String(), actorLabel(actorID))
	s.bus.Publish(ctx, events.AttendanceStarted{
		BaseEvent: events.NewBaseEvent(),
		ContactID: contact.ID,
		AgentID:   agentID,
		SectorID:  contact.SectorID,
		ActorID:   actorID,
	})
	return contact, nil
}

// OpenConversation records that the agent opened the contact's conversation.
// Promotes queued contacts when the entry rule is on_open; always clears the
// unread counter.
func (s *Service) OpenConversation(ctx context.Context, contactID, agentID uuid.UUID) (domain.Contact, error) {
	return s.promoteOn(ctx, TriggerOpen, contactID, agentID)
}

// SendFirstMessage records an outbound message by the agent. Promotes queued
// contacts when the entry rule is on_first_message.
func (s *Service) SendFirstMessage(ctx context.Context, contactID, agentID uuid.UUID) (domain.Contact, error) {
	return s.promoteOn(ctx, TriggerFirstMessage, contactID, agentID)
}

// promoteOn is the single promotion path for every entry-rule variant: the
// trigger either matches the configured rule and assigns, or leaves the
// contact where it is.
func (s *Service) promoteOn(ctx context.Context, trigger PromotionTrigger, contactID, agentID uuid.UUID) (domain.Contact, error) {
	rule := s.cfg.EntryRule
	promote := (trigger == TriggerOpen && rule == config.EntryRuleOnOpen) ||
		(trigger == TriggerFirstMessage && rule == config.EntryRuleOnFirstMessage) ||
		trigger == TriggerDistribution

	unlock := s.locks.acquire(contactID)
	defer unlock()

	var promoted bool
	contact, err := s.mutate(ctx, contactID, func(c *domain.Contact) error {
		promoted = false
		if trigger == TriggerOpen {
			c.UnreadCount = 0
		}
		if promote && c.Status == domain.StatusQueued {
			c.Status = domain.StatusInProgress
			c.OwnerID = &agentID
			promoted = true
		}
		return nil
	})
	if err != nil {
		return domain.Contact{}, err
	}

	// The pre-mutation status decides whether this call performed the
	// promotion. Dequeue is idempotent, so a drifted index cannot suppress
	// the assignment event.
	if promoted {
		s.index.Dequeue(contactID)
		s.log.RoutingEvent("assigned", contactID.String(), agentID.String())
		s.bus.Publish(ctx, events.AttendanceStarted{
			BaseEvent: events.NewBaseEvent(),
			ContactID: contact.ID,
			AgentID:   agentID,
			SectorID:  contact.SectorID,
			ActorID:   &agentID,
		})
	}
	return contact, nil
}

// RecordInboundMessage updates the no-response clock and unread counter. An
// inbound message on a completed contact opens a new attendance cycle.
func (s *Service) RecordInboundMessage(ctx context.Context, contactID uuid.UUID, at time.Time) (domain.Contact, error) {
	if at.IsZero() {
		at = time.Now()
	}

	unlock := s.locks.acquire(contactID)
	defer unlock()

	var reopened bool
	contact, err := s.mutate(ctx, contactID, func(c *domain.Contact) error {
		reopened = false
		t := at
		c.LastInboundAt = &t
		c.UnreadCount++
		if c.Status == domain.StatusCompleted {
			c.Status = domain.StatusQueued
			c.Cycle++
			c.ArrivedAt = at
			c.CompletedAt = nil
			c.OwnerID = nil
			reopened = true
		}
		return nil
	})
	if err != nil {
		return domain.Contact{}, err
	}

	if reopened {
		if err := s.index.Enqueue(contact); err != nil {
			// Already queued can only mean the index drifted; rebuild on next start.
			s.log.Error("re-contact enqueue failed", "error", err, "contactId", contactID)
		}
		s.publishReceived(ctx, contact)
	}

	s.bus.Publish(ctx, events.ContactMessageReceived{
		BaseEvent:   events.NewBaseEvent(),
		ContactID:   contact.ID,
		Status:      string(contact.Status),
		UnreadCount: contact.UnreadCount,
	})
	return contact, nil
}

// Complete finishes the contact's attendance cycle. Idempotent: completing an
// already-completed contact is a no-op, since a call and its UI may race to
// finalize.
func (s *Service) Complete(ctx context.Context, contactID, actorID uuid.UUID) (domain.Contact, error) {
	unlock := s.locks.acquire(contactID)
	defer unlock()

	var alreadyDone bool
	var previousOwner *uuid.UUID
	contact, err := s.mutate(ctx, contactID, func(c *domain.Contact) error {
		alreadyDone = c.Status == domain.StatusCompleted
		if alreadyDone {
			return nil
		}
		if c.Status != domain.StatusInProgress {
			return apperr.InvalidTransition("only an in-progress attendance can be completed")
		}
		previousOwner = c.OwnerID
		now := time.Now()
		c.Status = domain.StatusCompleted
		c.CompletedAt = &now
		c.OwnerID = nil
		return nil
	})
	if err != nil {
		return domain.Contact{}, err
	}
	if alreadyDone {
		return contact, nil
	}

	if err := s.store.RecordCompletion(ctx, contact, actorID); err != nil {
		s.log.DatabaseError("record completion", err)
	}
	s.log.RoutingEvent("completed", contactID.String(), actorID.String())
	s.bus.Publish(ctx, events.AttendanceCompleted{
		BaseEvent: events.NewBaseEvent(),
		ContactID: contact.ID,
		AgentID:   previousOwner,
		ActorID:   actorID,
		Cycle:     contact.Cycle,
	})
	return contact, nil
}

// Rename updates the contact's display name and audits the change.
func (s *Service) Rename(ctx context.Context, contactID uuid.UUID, newName string, actorID uuid.UUID) (domain.Contact, error) {
	unlock := s.locks.acquire(contactID)
	defer unlock()

	var oldName string
	contact, err := s.mutate(ctx, contactID, func(c *domain.Contact) error {
		oldName = c.DisplayName
		c.DisplayName = newName
		return nil
	})
	if err != nil {
		return domain.Contact{}, err
	}
	if oldName == newName {
		return contact, nil
	}

	if err := s.store.RecordNameChange(ctx, contactID, oldName, newName, actorID); err != nil {
		s.log.DatabaseError("record name change", err)
	}
	s.bus.Publish(ctx, events.ContactRenamed{
		BaseEvent: events.NewBaseEvent(),
		ContactID: contactID,
		OldName:   oldName,
		NewName:   newName,
		ActorID:   actorID,
	})
	return contact, nil
}

// GetContact loads a contact by id.
func (s *Service) GetContact(ctx context.Context, contactID uuid.UUID) (domain.Contact, error) {
	return s.store.GetContact(ctx, contactID)
}

// ListTransfers returns the contact's transfer audit trail.
func (s *Service) ListTransfers(ctx context.Context, contactID uuid.UUID) ([]domain.TransferRecord, error) {
	if _, err := s.store.GetContact(ctx, contactID); err != nil {
		return nil, err
	}
	return s.store.ListTransfers(ctx, contactID)
}

// QueueSnapshot returns the ordered queue for a sector (nil = general pool),
// with alert flags from the SLA monitor.
func (s *Service) QueueSnapshot(sectorID *uuid.UUID, order queue.Order) []queue.Snapshot {
	alerted := make(map[uuid.UUID]bool)
	for id := range s.alerts.Alerts() {
		alerted[id] = true
	}
	return s.index.SnapshotSector(sectorID, order, time.Now(), alerted)
}

// AgentWorkload summarizes the agent's current load.
func (s *Service) AgentWorkload(ctx context.Context, agentID uuid.UUID) (repository.Workload, error) {
	if _, err := s.agents.GetByID(ctx, agentID); err != nil {
		return repository.Workload{}, err
	}
	return s.store.AgentWorkload(ctx, agentID)
}

// mutate loads the contact, applies fn and saves. A store conflict is retried
// once with a fresh read before surfacing. Callers hold the contact lock.
func (s *Service) mutate(ctx context.Context, contactID uuid.UUID, fn func(*domain.Contact) error) (domain.Contact, error) {
	for attempt := 0; ; attempt++ {
		contact, err := s.store.GetContact(ctx, contactID)
		if err != nil {
			return domain.Contact{}, err
		}
		if err := fn(&contact); err != nil {
			return domain.Contact{}, err
		}

		saved, err := s.store.SaveContact(ctx, contact)
		if err != nil {
			if apperr.Is(err, apperr.KindConflict) && attempt == 0 {
				continue
			}
			return domain.Contact{}, err
		}
		return saved, nil
	}
}

func (s *Service) publishReceived(ctx context.Context, contact domain.Contact) {
	s.bus.Publish(ctx, events.ContactReceived{
		BaseEvent: events.NewBaseEvent(),
		ContactID: contact.ID,
		SectorID:  contact.SectorID,
		Status:    string(contact.Status),
		Cycle:     contact.Cycle,
	})
}

func actorLabel(actorID *uuid.UUID) string {
	if actorID == nil {
		return "system"
	}
	return actorID.String()
}
