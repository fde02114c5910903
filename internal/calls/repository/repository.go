// Package repository persists calls and their notes.
package repository

import (
	"context"
	"errors"
	"time"

	"atendimento_backend/internal/calls/domain"
	"atendimento_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const callColumns = `id, contact_id, agent_id, sector_id, number, status,
	started_at, connected_at, finished_at, duration_seconds, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateParams describes a new call in the dialing state.
type CreateParams struct {
	ContactID *uuid.UUID
	AgentID   uuid.UUID
	SectorID  *uuid.UUID
	Number    string
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (domain.Call, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO calls (id, contact_id, agent_id, sector_id, number, status, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, now())
		 RETURNING `+callColumns,
		uuid.New(), p.ContactID, p.AgentID, p.SectorID, p.Number, domain.StatusDialing)
	return scanCall(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Call, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+callColumns+` FROM calls WHERE id = $1`, id)
	call, err := scanCall(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Call{}, apperr.NotFound("call not found")
	}
	return call, err
}

// Advance moves the call from the expected current status to the next one.
// The status guard makes concurrent advances lose cleanly: the second writer
// matches no row and gets a Conflict.
func (r *Repository) Advance(ctx context.Context, id uuid.UUID, from, to domain.Status,
	connectedAt, finishedAt *time.Time, durationSeconds *int64) (domain.Call, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE calls
		 SET status = $3,
		     connected_at = COALESCE($4, connected_at),
		     finished_at = COALESCE($5, finished_at),
		     duration_seconds = COALESCE($6, duration_seconds),
		     updated_at = now()
		 WHERE id = $1 AND status = $2
		 RETURNING `+callColumns,
		id, from, to, connectedAt, finishedAt, durationSeconds)
	call, err := scanCall(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Call{}, apperr.Conflict("the call changed state concurrently")
	}
	return call, err
}

func (r *Repository) AddNote(ctx context.Context, callID, authorID uuid.UUID, body string) (domain.Note, error) {
	var n domain.Note
	err := r.pool.QueryRow(ctx,
		`INSERT INTO call_notes (id, call_id, author_id, body)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, call_id, author_id, body, created_at`,
		uuid.New(), callID, authorID, body).
		Scan(&n.ID, &n.CallID, &n.AuthorID, &n.Body, &n.CreatedAt)
	return n, err
}

func (r *Repository) ListNotes(ctx context.Context, callID uuid.UUID) ([]domain.Note, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, call_id, author_id, body, created_at
		 FROM call_notes WHERE call_id = $1 ORDER BY created_at`, callID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		var n domain.Note
		if err := rows.Scan(&n.ID, &n.CallID, &n.AuthorID, &n.Body, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (r *Repository) ListByContact(ctx context.Context, contactID uuid.UUID) ([]domain.Call, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+callColumns+` FROM calls WHERE contact_id = $1 ORDER BY started_at DESC`, contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calls []domain.Call
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return calls, rows.Err()
}

func scanCall(row pgx.Row) (domain.Call, error) {
	var c domain.Call
	err := row.Scan(&c.ID, &c.ContactID, &c.AgentID, &c.SectorID, &c.Number, &c.Status,
		&c.StartedAt, &c.ConnectedAt, &c.FinishedAt, &c.DurationSeconds, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
