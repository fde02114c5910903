// Package sla evaluates queued and in-progress contacts against the
// configured service-level thresholds. Evaluation is a pure function of the
// current time and stored timestamps; missing timestamps degrade to zero wait,
// so evaluation cannot fail.
package sla

import (
	"sync"
	"time"

	"atendimento_backend/internal/attendance/domain"

	"github.com/google/uuid"
)

// AlertKind distinguishes the two independently configured thresholds.
type AlertKind string

const (
	// AlertQueueWait flags contacts sitting too long in queued.
	AlertQueueWait AlertKind = "queue_wait"
	// AlertNoResponse flags owned contacts whose last inbound message has
	// waited too long for an agent reply.
	AlertNoResponse AlertKind = "no_response"
)

// Thresholds holds the configured limits.
type Thresholds struct {
	QueueWait  time.Duration
	NoResponse time.Duration
}

// Alert is the flag computed for one contact on a tick.
type Alert struct {
	ContactID uuid.UUID
	Kind      AlertKind
	AgentID   *uuid.UUID
	SectorID  *uuid.UUID
}

// Evaluate computes the alert set for the given contacts at the given instant.
func Evaluate(now time.Time, contacts []domain.Contact, t Thresholds) map[uuid.UUID]Alert {
	alerts := make(map[uuid.UUID]Alert)
	for _, c := range contacts {
		switch c.Status {
		case domain.StatusQueued:
			if t.QueueWait > 0 && c.QueueWait(now) >= t.QueueWait {
				alerts[c.ID] = Alert{ContactID: c.ID, Kind: AlertQueueWait, SectorID: c.SectorID}
			}
		case domain.StatusInProgress:
			if t.NoResponse > 0 && c.TimeWithoutResponse(now) >= t.NoResponse {
				alerts[c.ID] = Alert{ContactID: c.ID, Kind: AlertNoResponse, AgentID: c.OwnerID, SectorID: c.SectorID}
			}
		}
	}
	return alerts
}

// Monitor keeps the alert set between ticks so state changes can be diffed.
// The set is recomputed each tick and exposed via Alerts; it is never persisted.
type Monitor struct {
	mu         sync.RWMutex
	thresholds Thresholds
	current    map[uuid.UUID]Alert
}

// NewMonitor creates a monitor with the given thresholds.
func NewMonitor(t Thresholds) *Monitor {
	return &Monitor{
		thresholds: t,
		current:    make(map[uuid.UUID]Alert),
	}
}

// Tick re-evaluates the contacts and returns the alerts raised and cleared
// since the previous tick.
func (m *Monitor) Tick(now time.Time, contacts []domain.Contact) (raised, cleared []Alert) {
	next := Evaluate(now, contacts, m.thresholds)

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, alert := range next {
		if prev, ok := m.current[id]; !ok || prev.Kind != alert.Kind {
			raised = append(raised, alert)
		}
	}
	for id, alert := range m.current {
		if _, ok := next[id]; !ok {
			cleared = append(cleared, alert)
		}
	}
	m.current = next
	return raised, cleared
}

// Alerts returns the contacts currently in alert, keyed by contact id.
func (m *Monitor) Alerts() map[uuid.UUID]Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[uuid.UUID]Alert, len(m.current))
	for id, a := range m.current {
		out[id] = a
	}
	return out
}

// InAlert reports whether the given contact currently has an alert flag.
func (m *Monitor) InAlert(contactID uuid.UUID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.current[contactID]
	return ok
}
