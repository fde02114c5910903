package sla

import (
	"testing"
	"time"

	"atendimento_backend/internal/attendance/domain"

	"github.com/google/uuid"
)

var thresholds = Thresholds{
	QueueWait:  30 * time.Minute,
	NoResponse: 15 * time.Minute,
}

func TestEvaluateQueueWait(t *testing.T) {
	now := time.Now()
	sector := uuid.New()

	tests := []struct {
		name    string
		contact domain.Contact
		want    bool
	}{
		{
			name: "under threshold",
			contact: domain.Contact{
				ID: uuid.New(), SectorID: &sector,
				Status: domain.StatusQueued, ArrivedAt: now.Add(-29 * time.Minute),
			},
			want: false,
		},
		{
			name: "at threshold",
			contact: domain.Contact{
				ID: uuid.New(), SectorID: &sector,
				Status: domain.StatusQueued, ArrivedAt: now.Add(-30 * time.Minute),
			},
			want: true,
		},
		{
			name: "missing arrival degrades to zero wait",
			contact: domain.Contact{
				ID: uuid.New(), SectorID: &sector,
				Status: domain.StatusQueued,
			},
			want: false,
		},
		{
			name: "completed contacts are never evaluated",
			contact: domain.Contact{
				ID: uuid.New(), SectorID: &sector,
				Status: domain.StatusCompleted, ArrivedAt: now.Add(-2 * time.Hour),
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := Evaluate(now, []domain.Contact{tt.contact}, thresholds)
			_, got := alerts[tt.contact.ID]
			if got != tt.want {
				t.Fatalf("alert = %v, want %v", got, tt.want)
			}
			if tt.want && alerts[tt.contact.ID].Kind != AlertQueueWait {
				t.Fatalf("kind = %s, want %s", alerts[tt.contact.ID].Kind, AlertQueueWait)
			}
		})
	}
}

func TestEvaluateNoResponse(t *testing.T) {
	now := time.Now()
	agent := uuid.New()

	inbound := now.Add(-20 * time.Minute)
	owned := domain.Contact{
		ID:            uuid.New(),
		OwnerID:       &agent,
		Status:        domain.StatusInProgress,
		LastInboundAt: &inbound,
	}
	// An owned contact that never sent an inbound message has no clock to
	// measure against and must not alert.
	silent := domain.Contact{
		ID:      uuid.New(),
		OwnerID: &agent,
		Status:  domain.StatusInProgress,
	}

	alerts := Evaluate(now, []domain.Contact{owned, silent}, thresholds)

	alert, ok := alerts[owned.ID]
	if !ok {
		t.Fatalf("expected no-response alert for owned contact")
	}
	if alert.Kind != AlertNoResponse {
		t.Fatalf("kind = %s, want %s", alert.Kind, AlertNoResponse)
	}
	if alert.AgentID == nil || *alert.AgentID != agent {
		t.Fatalf("alert must carry the owning agent")
	}
	if _, ok := alerts[silent.ID]; ok {
		t.Fatalf("contact with no inbound timestamp must not alert")
	}
}

func TestEvaluateDisabledThreshold(t *testing.T) {
	now := time.Now()
	c := domain.Contact{
		ID:        uuid.New(),
		Status:    domain.StatusQueued,
		ArrivedAt: now.Add(-5 * time.Hour),
	}

	alerts := Evaluate(now, []domain.Contact{c}, Thresholds{QueueWait: 0, NoResponse: 0})
	if len(alerts) != 0 {
		t.Fatalf("zero thresholds must disable evaluation, got %d alerts", len(alerts))
	}
}

func TestTickDiffsRaisedAndCleared(t *testing.T) {
	m := NewMonitor(thresholds)
	now := time.Now()

	c := domain.Contact{
		ID:        uuid.New(),
		Status:    domain.StatusQueued,
		ArrivedAt: now.Add(-31 * time.Minute),
	}

	raised, cleared := m.Tick(now, []domain.Contact{c})
	if len(raised) != 1 || len(cleared) != 0 {
		t.Fatalf("first tick: raised=%d cleared=%d, want 1/0", len(raised), len(cleared))
	}
	if !m.InAlert(c.ID) {
		t.Fatalf("monitor lost the alert after tick")
	}

	// Same state on the next tick: no new events.
	raised, cleared = m.Tick(now.Add(time.Second), []domain.Contact{c})
	if len(raised) != 0 || len(cleared) != 0 {
		t.Fatalf("steady tick: raised=%d cleared=%d, want 0/0", len(raised), len(cleared))
	}

	// The contact got an owner: the queue-wait alert clears.
	agent := uuid.New()
	c.Status = domain.StatusInProgress
	c.OwnerID = &agent
	raised, cleared = m.Tick(now.Add(2*time.Second), []domain.Contact{c})
	if len(raised) != 0 || len(cleared) != 1 {
		t.Fatalf("clearing tick: raised=%d cleared=%d, want 0/1", len(raised), len(cleared))
	}
	if m.InAlert(c.ID) {
		t.Fatalf("alert flag survived the clearing tick")
	}
}

func TestTickRaisesAgainWhenKindChanges(t *testing.T) {
	m := NewMonitor(thresholds)
	now := time.Now()
	agent := uuid.New()

	c := domain.Contact{
		ID:        uuid.New(),
		Status:    domain.StatusQueued,
		ArrivedAt: now.Add(-40 * time.Minute),
	}
	m.Tick(now, []domain.Contact{c})

	// Assigned, but the patient has been waiting for a reply even longer.
	inbound := now.Add(-40 * time.Minute)
	c.Status = domain.StatusInProgress
	c.OwnerID = &agent
	c.LastInboundAt = &inbound

	raised, cleared := m.Tick(now.Add(time.Second), []domain.Contact{c})
	if len(raised) != 1 || raised[0].Kind != AlertNoResponse {
		t.Fatalf("expected a no-response alert to replace the queue-wait one")
	}
	if len(cleared) != 0 {
		t.Fatalf("kind change must not emit a cleared event for the same contact")
	}
}
