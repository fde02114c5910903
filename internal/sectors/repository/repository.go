// Package repository provides read access to sectors, the routing destination
// buckets (departments). Sector administration is handled elsewhere; this core
// only reads the routing-relevant flags.
package repository

import (
	"context"
	"errors"

	"atendimento_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Sector is a routing destination bucket.
type Sector struct {
	ID             uuid.UUID
	Name           string
	AcceptsChat    bool
	AcceptsCall    bool
	AutoDistribute bool // when true, new contacts are assigned instead of queued
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Sector, error) {
	var s Sector
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, accepts_chat, accepts_call, auto_distribute
		 FROM sectors
		 WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Name, &s.AcceptsChat, &s.AcceptsCall, &s.AutoDistribute)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sector{}, apperr.NotFound("sector not found")
		}
		return Sector{}, err
	}
	return s, nil
}

func (r *Repository) List(ctx context.Context) ([]Sector, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, accepts_chat, accepts_call, auto_distribute
		 FROM sectors
		 ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Sector
	for rows.Next() {
		var s Sector
		if err := rows.Scan(&s.ID, &s.Name, &s.AcceptsChat, &s.AcceptsCall, &s.AutoDistribute); err != nil {
			return nil, err
		}
		results = append(results, s)
	}
	return results, rows.Err()
}
