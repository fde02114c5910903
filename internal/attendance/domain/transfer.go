package domain

import (
	"time"

	"github.com/google/uuid"
)

// Reason is a transfer justification code from the fixed enumerated set.
type Reason string

const (
	ReasonNecessitaEspecialista Reason = "necessita_especialista"
	ReasonForaDoEscopoDoSetor   Reason = "fora_do_escopo_do_setor"
	ReasonSolicitacaoDoPaciente Reason = "solicitacao_do_paciente"
	ReasonAusenciaDoAtendente   Reason = "ausencia_do_atendente"
	ReasonBalanceamentoDeFila   Reason = "balanceamento_de_fila"
	ReasonOutro                 Reason = "outro"
)

var knownReasons = map[Reason]struct{}{
	ReasonNecessitaEspecialista: {},
	ReasonForaDoEscopoDoSetor:   {},
	ReasonSolicitacaoDoPaciente: {},
	ReasonAusenciaDoAtendente:   {},
	ReasonBalanceamentoDeFila:   {},
	ReasonOutro:                 {},
}

// IsKnownReason reports whether the code belongs to the enumerated set.
func IsKnownReason(r Reason) bool {
	_, ok := knownReasons[r]
	return ok
}

// DestinationKind identifies where a transfer sends a contact.
type DestinationKind string

const (
	// DestinationAgent re-owns the contact without re-entering a queue.
	DestinationAgent DestinationKind = "agent"
	// DestinationSector sends the contact to another sector's queue.
	DestinationSector DestinationKind = "sector"
	// DestinationOwnQueue returns the contact to its current sector's queue.
	DestinationOwnQueue DestinationKind = "own_queue"
	// DestinationGeneralPool clears both owner and sector.
	DestinationGeneralPool DestinationKind = "general_pool"
)

// Destination is the target selected in step 1 of the transfer protocol.
type Destination struct {
	Kind     DestinationKind
	AgentID  *uuid.UUID // set when Kind == DestinationAgent
	SectorID *uuid.UUID // set when Kind == DestinationSector
}

// Validate returns a non-empty reason string when the destination is malformed.
func (d Destination) Validate() string {
	switch d.Kind {
	case DestinationAgent:
		if d.AgentID == nil {
			return "agent destination requires an agent id"
		}
	case DestinationSector:
		if d.SectorID == nil {
			return "sector destination requires a sector id"
		}
	case DestinationOwnQueue, DestinationGeneralPool:
		// no target id
	default:
		return "unknown destination kind"
	}
	return ""
}

// PendingTransfer is the short-lived value object produced by step 1 of the
// transfer protocol. It lives in the caller's session, never on the contact:
// abandoning it leaves no persisted effect.
type PendingTransfer struct {
	Token       uuid.UUID
	ContactID   uuid.UUID
	Destination Destination
	ActorID     uuid.UUID
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the pending transfer can no longer be committed.
func (p PendingTransfer) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// TransferRecord is an immutable audit entry appended as the last step of a
// committed transfer.
type TransferRecord struct {
	ID             uuid.UUID
	ContactID      uuid.UUID
	PreviousAgent  *uuid.UUID
	PreviousSector *uuid.UUID
	NewAgent       *uuid.UUID
	NewSector      *uuid.UUID
	Destination    DestinationKind
	Reason         Reason
	Note           *string
	ActorID        uuid.UUID
	CreatedAt      time.Time
}
