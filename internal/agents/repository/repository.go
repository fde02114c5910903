// Package repository provides read access to agents.
package repository

import (
	"context"
	"errors"

	"atendimento_backend/internal/agents"
	"atendimento_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (agents.Agent, error) {
	var a agents.Agent
	var role string
	err := r.pool.QueryRow(ctx,
		`SELECT id, display_name, role, sector_id, created_at
		 FROM agents
		 WHERE id = $1`,
		id,
	).Scan(&a.ID, &a.DisplayName, &role, &a.SectorID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return agents.Agent{}, apperr.NotFound("agent not found")
		}
		return agents.Agent{}, err
	}
	a.Role = agents.Role(role)
	return a, nil
}

// ListBySector returns the agents affiliated with a sector, most senior
// first. A nil sector lists every agent.
func (r *Repository) ListBySector(ctx context.Context, sectorID *uuid.UUID) ([]agents.Agent, error) {
	query := `SELECT id, display_name, role, sector_id, created_at
		 FROM agents
		 WHERE ($1::uuid IS NULL OR sector_id = $1)
		 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, sectorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []agents.Agent
	for rows.Next() {
		var a agents.Agent
		var role string
		if err := rows.Scan(&a.ID, &a.DisplayName, &role, &a.SectorID, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Role = agents.Role(role)
		results = append(results, a)
	}
	return results, rows.Err()
}
