package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDestinationValidate(t *testing.T) {
	agent := uuid.New()
	sector := uuid.New()

	tests := []struct {
		name    string
		dest    Destination
		wantBad bool
	}{
		{"agent with id", Destination{Kind: DestinationAgent, AgentID: &agent}, false},
		{"agent without id", Destination{Kind: DestinationAgent}, true},
		{"sector with id", Destination{Kind: DestinationSector, SectorID: &sector}, false},
		{"sector without id", Destination{Kind: DestinationSector}, true},
		{"own queue", Destination{Kind: DestinationOwnQueue}, false},
		{"general pool", Destination{Kind: DestinationGeneralPool}, false},
		{"unknown kind", Destination{Kind: "elsewhere"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dest.Validate(); (got != "") != tt.wantBad {
				t.Fatalf("Validate() = %q, wantBad=%v", got, tt.wantBad)
			}
		})
	}
}

func TestReasonVocabularyIsClosed(t *testing.T) {
	for _, r := range []Reason{
		ReasonNecessitaEspecialista,
		ReasonForaDoEscopoDoSetor,
		ReasonSolicitacaoDoPaciente,
		ReasonAusenciaDoAtendente,
		ReasonBalanceamentoDeFila,
		ReasonOutro,
	} {
		if !IsKnownReason(r) {
			t.Fatalf("enumerated reason %q not recognized", r)
		}
	}
	if IsKnownReason("porque_sim") {
		t.Fatalf("arbitrary reason accepted")
	}
	if IsKnownReason("") {
		t.Fatalf("empty reason accepted")
	}
}

func TestPendingTransferExpired(t *testing.T) {
	now := time.Now()
	pt := PendingTransfer{ExpiresAt: now.Add(10 * time.Minute)}

	if pt.Expired(now) {
		t.Fatalf("fresh pending transfer reported expired")
	}
	if !pt.Expired(now.Add(11 * time.Minute)) {
		t.Fatalf("stale pending transfer reported valid")
	}
}
