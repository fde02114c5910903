// Package sectors exposes the read-only sector listing for the console.
package sectors

import (
	apphttp "atendimento_backend/internal/http"
	"atendimento_backend/internal/sectors/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module wires the read-only sector routes.
type Module struct {
	handler *Handler
}

func NewModule(pool *pgxpool.Pool) *Module {
	return &Module{handler: NewHandler(repository.New(pool))}
}

func (m *Module) Name() string {
	return "sectors"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.V1.GET("/sectors", m.handler.List)
}

var _ apphttp.Module = (*Module)(nil)
