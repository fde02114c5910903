package sla

import (
	"context"
	"time"

	"atendimento_backend/internal/attendance/domain"
	"atendimento_backend/internal/events"
	"atendimento_backend/platform/logger"
)

// ContactLister provides the read snapshot for SLA evaluation.
// Satisfied by the attendance repository.
type ContactLister interface {
	ListActiveContacts(ctx context.Context) ([]domain.Contact, error)
}

// Runner drives the monitor from a periodic tick. Ticks take a read-only
// snapshot and never block routing commands.
type Runner struct {
	monitor  *Monitor
	contacts ContactLister
	bus      events.Bus
	interval time.Duration
	log      *logger.Logger
}

// NewRunner creates a tick runner for the monitor.
func NewRunner(monitor *Monitor, contacts ContactLister, bus events.Bus, interval time.Duration, log *logger.Logger) *Runner {
	return &Runner{
		monitor:  monitor,
		contacts: contacts,
		bus:      bus,
		interval: interval,
		log:      log,
	}
}

// Run evaluates on every tick until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			r.evaluate(ctx, now)
		}
	}
}

func (r *Runner) evaluate(ctx context.Context, now time.Time) {
	contacts, err := r.contacts.ListActiveContacts(ctx)
	if err != nil {
		// Evaluation never fails outwardly; skip the tick and try again.
		r.log.Error("sla snapshot failed", "error", err)
		return
	}

	raised, cleared := r.monitor.Tick(now, contacts)
	for _, alert := range raised {
		r.log.SLAAlert(alert.ContactID.String(), string(alert.Kind), true)
		r.bus.Publish(ctx, events.SLAAlertRaised{
			BaseEvent: events.NewBaseEvent(),
			ContactID: alert.ContactID,
			Kind:      string(alert.Kind),
			AgentID:   alert.AgentID,
			SectorID:  alert.SectorID,
		})
	}
	for _, alert := range cleared {
		r.log.SLAAlert(alert.ContactID.String(), string(alert.Kind), false)
		r.bus.Publish(ctx, events.SLAAlertCleared{
			BaseEvent: events.NewBaseEvent(),
			ContactID: alert.ContactID,
			Kind:      string(alert.Kind),
		})
	}
}
