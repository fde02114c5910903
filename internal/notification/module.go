// Package notification fans domain events out to console subscribers (SSE)
// and to the external webhook outbox. Domain modules publish events and never
// know about delivery; this module inverts that dependency.
package notification

import (
	"context"

	"atendimento_backend/internal/events"
	apphttp "atendimento_backend/internal/http"
	"atendimento_backend/internal/notification/outbox"
	"atendimento_backend/internal/notification/sse"
	"atendimento_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// External webhook vocabulary. These names are the published contract and do
// not follow the internal event names.
const (
	WebhookNovoPaciente             = "novo_paciente"
	WebhookInicioAtendimento        = "inicio_atendimento"
	WebhookTransferenciaAtendimento = "transferencia_atendimento"
	WebhookFimAtendimento           = "fim_atendimento"
	WebhookLigacaoIniciada          = "ligacao_iniciada"
	WebhookLigacaoFinalizada        = "ligacao_finalizada"
)

// outboxInserter is the slice of the outbox repository this module needs.
type outboxInserter interface {
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error)
}

// Module is the notification module implementing http.Module for the SSE stream.
type Module struct {
	sse    *sse.Service
	outbox outboxInserter
	log    *logger.Logger
}

// New creates the notification module.
func New(pool *pgxpool.Pool, log *logger.Logger) *Module {
	return &Module{
		sse:    sse.New(),
		outbox: outbox.New(pool),
		log:    log,
	}
}

// SSE returns the fan-out service so tests and the composition root can reach it.
func (m *Module) SSE() *sse.Service {
	return m.sse
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// RegisterRoutes mounts the SSE stream on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/events/stream", m.sse.Handler())
}

// RegisterHandlers subscribes to the domain events this module relays.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.ContactReceived{}.EventName(), events.HandlerFunc(m.onContactReceived))
	bus.Subscribe(events.AttendanceStarted{}.EventName(), events.HandlerFunc(m.onAttendanceStarted))
	bus.Subscribe(events.AttendanceTransferred{}.EventName(), events.HandlerFunc(m.onAttendanceTransferred))
	bus.Subscribe(events.AttendanceCompleted{}.EventName(), events.HandlerFunc(m.onAttendanceCompleted))
	bus.Subscribe(events.ContactMessageReceived{}.EventName(), events.HandlerFunc(m.onMessageReceived))
	bus.Subscribe(events.CallStarted{}.EventName(), events.HandlerFunc(m.onCallStarted))
	bus.Subscribe(events.CallStatusChanged{}.EventName(), events.HandlerFunc(m.onCallStatusChanged))
	bus.Subscribe(events.CallFinished{}.EventName(), events.HandlerFunc(m.onCallFinished))
	bus.Subscribe(events.SLAAlertRaised{}.EventName(), events.HandlerFunc(m.onSLAAlertRaised))
	bus.Subscribe(events.SLAAlertCleared{}.EventName(), events.HandlerFunc(m.onSLAAlertCleared))
}

func (m *Module) onContactReceived(ctx context.Context, event events.Event) error {
	e, ok := event.(events.ContactReceived)
	if !ok {
		return nil
	}
	m.sse.Publish(sse.Event{
		Type:     sse.EventContactReceived,
		EntityID: e.ContactID,
		SectorID: e.SectorID,
		NewState: e.Status,
	})
	// Only a fresh contact announces a new patient; re-opened cycles are
	// status changes on a known one.
	if e.Cycle == 1 {
		m.enqueueWebhook(ctx, WebhookNovoPaciente, e.ContactID, e.Status)
	}
	return nil
}

func (m *Module) onAttendanceStarted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.AttendanceStarted)
	if !ok {
		return nil
	}
	m.sse.Publish(sse.Event{
		Type:     sse.EventContactUpdated,
		EntityID: e.ContactID,
		SectorID: e.SectorID,
		NewState: "in_progress",
	})
	m.enqueueWebhook(ctx, WebhookInicioAtendimento, e.ContactID, "in_progress")
	return nil
}

func (m *Module) onAttendanceTransferred(ctx context.Context, event events.Event) error {
	e, ok := event.(events.AttendanceTransferred)
	if !ok {
		return nil
	}
	// Both the origin and the destination sector consoles need the update.
	m.sse.Publish(sse.Event{
		Type:     sse.EventContactUpdated,
		EntityID: e.ContactID,
		SectorID: e.PreviousSector,
		NewState: e.NewStatus,
	})
	if !sameSector(e.PreviousSector, e.NewSector) {
		m.sse.Publish(sse.Event{
			Type:     sse.EventContactUpdated,
			EntityID: e.ContactID,
			SectorID: e.NewSector,
			NewState: e.NewStatus,
		})
	}
	m.enqueueWebhook(ctx, WebhookTransferenciaAtendimento, e.ContactID, e.NewStatus)
	return nil
}

func (m *Module) onAttendanceCompleted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.AttendanceCompleted)
	if !ok {
		return nil
	}
	m.sse.Publish(sse.Event{
		Type:     sse.EventContactUpdated,
		EntityID: e.ContactID,
		NewState: "completed",
	})
	m.enqueueWebhook(ctx, WebhookFimAtendimento, e.ContactID, "completed")
	return nil
}

func (m *Module) onMessageReceived(_ context.Context, event events.Event) error {
	e, ok := event.(events.ContactMessageReceived)
	if !ok {
		return nil
	}
	m.sse.Publish(sse.Event{
		Type:     sse.EventMessageReceived,
		EntityID: e.ContactID,
		NewState: e.Status,
	})
	return nil
}

func (m *Module) onCallStarted(ctx context.Context, event events.Event) error {
	e, ok := event.(events.CallStarted)
	if !ok {
		return nil
	}
	m.sse.Publish(sse.Event{
		Type:     sse.EventCallUpdated,
		EntityID: e.CallID,
		SectorID: e.SectorID,
		NewState: "dialing",
	})
	m.enqueueWebhook(ctx, WebhookLigacaoIniciada, e.CallID, "dialing")
	return nil
}

func (m *Module) onCallStatusChanged(_ context.Context, event events.Event) error {
	e, ok := event.(events.CallStatusChanged)
	if !ok {
		return nil
	}
	m.sse.Publish(sse.Event{
		Type:     sse.EventCallUpdated,
		EntityID: e.CallID,
		NewState: e.NewStatus,
	})
	return nil
}

func (m *Module) onCallFinished(ctx context.Context, event events.Event) error {
	e, ok := event.(events.CallFinished)
	if !ok {
		return nil
	}
	m.sse.Publish(sse.Event{
		Type:     sse.EventCallUpdated,
		EntityID: e.CallID,
		NewState: e.Status,
	})
	m.enqueueWebhook(ctx, WebhookLigacaoFinalizada, e.CallID, e.Status)
	return nil
}

func (m *Module) onSLAAlertRaised(_ context.Context, event events.Event) error {
	e, ok := event.(events.SLAAlertRaised)
	if !ok {
		return nil
	}
	m.sse.Publish(sse.Event{
		Type:     sse.EventSLAAlertRaised,
		EntityID: e.ContactID,
		SectorID: e.SectorID,
		NewState: e.Kind,
	})
	return nil
}

func (m *Module) onSLAAlertCleared(_ context.Context, event events.Event) error {
	e, ok := event.(events.SLAAlertCleared)
	if !ok {
		return nil
	}
	m.sse.Publish(sse.Event{
		Type:     sse.EventSLAAlertCleared,
		EntityID: e.ContactID,
		NewState: e.Kind,
	})
	return nil
}

func (m *Module) enqueueWebhook(ctx context.Context, eventType string, entityID uuid.UUID, newState string) {
	if _, err := m.outbox.Insert(ctx, outbox.InsertParams{
		EventType: eventType,
		EntityID:  entityID,
		NewState:  newState,
	}); err != nil {
		m.log.Error("webhook outbox insert failed", "error", err, "eventType", eventType, "entityId", entityID)
	}
}

func sameSector(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
