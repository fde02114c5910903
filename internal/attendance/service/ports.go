package service

import (
	"context"

	"atendimento_backend/internal/agents"
	"atendimento_backend/internal/attendance/domain"
	"atendimento_backend/internal/attendance/repository"
	"atendimento_backend/internal/attendance/sla"
	sectorsrepo "atendimento_backend/internal/sectors/repository"

	"github.com/google/uuid"
)

// Store is the contact record store contract. Satisfied by
// repository.Repository; tests substitute an in-memory fake.
type Store interface {
	CreateContact(ctx context.Context, p repository.CreateContactParams) (domain.Contact, error)
	GetContact(ctx context.Context, id uuid.UUID) (domain.Contact, error)
	SaveContact(ctx context.Context, c domain.Contact) (domain.Contact, error)
	SaveContactWithTransfer(ctx context.Context, c domain.Contact, rec domain.TransferRecord) (domain.Contact, domain.TransferRecord, error)
	ListQueuedContacts(ctx context.Context) ([]domain.Contact, error)
	ListTransfers(ctx context.Context, contactID uuid.UUID) ([]domain.TransferRecord, error)
	RecordNameChange(ctx context.Context, contactID uuid.UUID, oldName, newName string, actorID uuid.UUID) error
	RecordCompletion(ctx context.Context, c domain.Contact, actorID uuid.UUID) error
	AgentWorkload(ctx context.Context, agentID uuid.UUID) (repository.Workload, error)
	CountInProgressByAgent(ctx context.Context) (map[uuid.UUID]int, error)
	AgentAverageHandleSeconds(ctx context.Context) (map[uuid.UUID]float64, error)
}

// SectorReader resolves routing destination buckets.
type SectorReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (sectorsrepo.Sector, error)
}

// AgentDirectory resolves agents for validation and balancing.
type AgentDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (agents.Agent, error)
	ListBySector(ctx context.Context, sectorID *uuid.UUID) ([]agents.Agent, error)
}

// PresenceReader reads agent availability (owned by the presence subsystem).
type PresenceReader interface {
	Status(ctx context.Context, agentID uuid.UUID) (agents.Presence, error)
}

// AlertSource exposes the SLA monitor's current alert flags for snapshots.
type AlertSource interface {
	Alerts() map[uuid.UUID]sla.Alert
	InAlert(contactID uuid.UUID) bool
}
