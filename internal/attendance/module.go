// Package attendance provides the queue and routing bounded context module.
// This file defines the module that encapsulates setup and route registration.
package attendance

import (
	"atendimento_backend/internal/agents/presence"
	agentsrepo "atendimento_backend/internal/agents/repository"
	"atendimento_backend/internal/attendance/handler"
	"atendimento_backend/internal/attendance/queue"
	"atendimento_backend/internal/attendance/repository"
	"atendimento_backend/internal/attendance/service"
	"atendimento_backend/internal/attendance/sla"
	"atendimento_backend/internal/config"
	"atendimento_backend/internal/events"
	apphttp "atendimento_backend/internal/http"
	sectorsrepo "atendimento_backend/internal/sectors/repository"
	"atendimento_backend/platform/logger"
	"atendimento_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the attendance bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	monitor *sla.Monitor
	repo    *repository.Repository
}

// NewModule creates and initializes the attendance module with all its dependencies.
func NewModule(pool *pgxpool.Pool, presenceReader *presence.Reader, eventBus events.Bus,
	val *validator.Validator, cfg *config.Config, log *logger.Logger) *Module {
	repo := repository.New(pool)
	index := queue.NewIndex()
	monitor := sla.NewMonitor(sla.Thresholds{
		QueueWait:  cfg.QueueWaitAlert(),
		NoResponse: cfg.NoResponseAlert(),
	})

	svc := service.New(repo, index, sectorsrepo.New(pool), agentsrepo.New(pool),
		presenceReader, monitor, eventBus, cfg, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc, monitor: monitor, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "attendance"
}

// Service returns the routing engine for composition-root wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// Monitor returns the SLA monitor for the tick runner.
func (m *Module) Monitor() *sla.Monitor {
	return m.monitor
}

// Repository returns the contact store for the tick runner's snapshots.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts attendance routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterContactRoutes(ctx.V1.Group("/contacts"))
	m.handler.RegisterQueueRoutes(ctx.V1.Group("/queues"))
	m.handler.RegisterAgentRoutes(ctx.V1.Group("/agents"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
