// Package calls provides the call lifecycle bounded context module.
package calls

import (
	"atendimento_backend/internal/calls/handler"
	"atendimento_backend/internal/calls/repository"
	"atendimento_backend/internal/calls/service"
	"atendimento_backend/internal/events"
	apphttp "atendimento_backend/internal/http"
	"atendimento_backend/platform/logger"
	"atendimento_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the calls bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the calls module.
func NewModule(pool *pgxpool.Pool, contacts service.ContactChecker, eventBus events.Bus,
	val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), contacts, eventBus, log)
	return &Module{handler: handler.New(svc, val), service: svc}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "calls"
}

// Service returns the call lifecycle controller for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts call routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterCallRoutes(ctx.V1.Group("/calls"))
	m.handler.RegisterContactRoutes(ctx.V1.Group("/contacts"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
