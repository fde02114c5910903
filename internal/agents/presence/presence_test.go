package presence

import (
	"context"
	"testing"

	"atendimento_backend/internal/agents"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestReader(t *testing.T) (*Reader, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewReader(client), mr
}

func TestStatusReadsKnownPresence(t *testing.T) {
	reader, mr := newTestReader(t)
	agentID := uuid.New()

	for _, want := range []agents.Presence{
		agents.PresenceOnline, agents.PresenceBusy, agents.PresenceOnCall, agents.PresenceAway,
	} {
		mr.Set(keyPrefix+agentID.String(), string(want))
		got, err := reader.Status(context.Background(), agentID)
		if err != nil {
			t.Fatalf("status for %s: %v", want, err)
		}
		if got != want {
			t.Fatalf("status = %s, want %s", got, want)
		}
	}
}

func TestStatusDegradesMissingKeyToAway(t *testing.T) {
	reader, _ := newTestReader(t)

	got, err := reader.Status(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got != agents.PresenceAway {
		t.Fatalf("status = %s, want away", got)
	}
}

func TestStatusDegradesGarbageValueToAway(t *testing.T) {
	reader, mr := newTestReader(t)
	agentID := uuid.New()
	mr.Set(keyPrefix+agentID.String(), "sleeping")

	got, err := reader.Status(context.Background(), agentID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got != agents.PresenceAway {
		t.Fatalf("status = %s, want away", got)
	}
}
