// Package repository implements the contact record store over postgres.
// Contact rows carry a version column; Save with a stale version reports a
// conflict so the service can retry with a fresh read.
package repository

import (
	"context"
	"errors"
	"time"

	"atendimento_backend/internal/attendance/domain"
	"atendimento_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const contactColumns = `id, display_name, phone, sector_id, owner_id, status, cycle,
	arrived_at, last_inbound_at, unread_count, completed_at, version, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateContactParams holds the fields set at contact creation.
type CreateContactParams struct {
	DisplayName string
	Phone       string
	SectorID    *uuid.UUID
}

// CreateContact inserts a new contact in the queued state.
func (r *Repository) CreateContact(ctx context.Context, p CreateContactParams) (domain.Contact, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO contacts (display_name, phone, sector_id, status, cycle, arrived_at)
		 VALUES ($1, $2, $3, $4, 1, now())
		 RETURNING `+contactColumns,
		p.DisplayName, p.Phone, p.SectorID, string(domain.StatusQueued),
	)
	return scanContact(row)
}

// GetContact loads a contact by id.
func (r *Repository) GetContact(ctx context.Context, id uuid.UUID) (domain.Contact, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id)
	c, err := scanContact(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Contact{}, apperr.NotFound("contact not found")
		}
		return domain.Contact{}, err
	}
	return c, nil
}

// SaveContact persists the contact's mutable fields, guarded by the version
// the caller read. A stale version returns a Conflict error.
func (r *Repository) SaveContact(ctx context.Context, c domain.Contact) (domain.Contact, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE contacts
		 SET display_name = $2, sector_id = $3, owner_id = $4, status = $5, cycle = $6,
		     arrived_at = $7, last_inbound_at = $8, unread_count = $9, completed_at = $10,
		     version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $11
		 RETURNING `+contactColumns,
		c.ID, c.DisplayName, c.SectorID, c.OwnerID, string(c.Status), c.Cycle,
		c.ArrivedAt, c.LastInboundAt, c.UnreadCount, c.CompletedAt, c.Version,
	)
	saved, err := scanContact(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Contact{}, r.saveMiss(ctx, c.ID)
		}
		return domain.Contact{}, err
	}
	return saved, nil
}

// saveMiss distinguishes a lost version race from a missing row.
func (r *Repository) saveMiss(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM contacts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return apperr.NotFound("contact not found")
	}
	return apperr.Conflict("contact was modified concurrently")
}

// SaveContactWithTransfer persists the contact and appends the transfer
// record in one transaction: the audit entry exists exactly when the
// transfer committed.
func (r *Repository) SaveContactWithTransfer(ctx context.Context, c domain.Contact, rec domain.TransferRecord) (domain.Contact, domain.TransferRecord, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Contact{}, domain.TransferRecord{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx,
		`UPDATE contacts
		 SET sector_id = $2, owner_id = $3, status = $4,
		     version = version + 1, updated_at = now()
		 WHERE id = $1 AND version = $5
		 RETURNING `+contactColumns,
		c.ID, c.SectorID, c.OwnerID, string(c.Status), c.Version,
	)
	saved, err := scanContact(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Contact{}, domain.TransferRecord{}, r.saveMiss(ctx, c.ID)
		}
		return domain.Contact{}, domain.TransferRecord{}, err
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO transfer_records
		 (contact_id, previous_agent, previous_sector, new_agent, new_sector, destination, reason, note, actor_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at`,
		rec.ContactID, rec.PreviousAgent, rec.PreviousSector, rec.NewAgent, rec.NewSector,
		string(rec.Destination), string(rec.Reason), rec.Note, rec.ActorID,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return domain.Contact{}, domain.TransferRecord{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Contact{}, domain.TransferRecord{}, err
	}
	return saved, rec, nil
}

// ListQueuedContacts returns every queued contact, for queue index rebuilds.
func (r *Repository) ListQueuedContacts(ctx context.Context) ([]domain.Contact, error) {
	return r.listByStatuses(ctx, domain.StatusQueued)
}

// ListActiveContacts returns queued and in-progress contacts, the SLA
// monitor's evaluation snapshot.
func (r *Repository) ListActiveContacts(ctx context.Context) ([]domain.Contact, error) {
	return r.listByStatuses(ctx, domain.StatusQueued, domain.StatusInProgress)
}

func (r *Repository) listByStatuses(ctx context.Context, statuses ...domain.Status) ([]domain.Contact, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE status = ANY($1) ORDER BY arrived_at ASC`,
		values)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// ListTransfers returns a contact's transfer audit trail, newest first.
func (r *Repository) ListTransfers(ctx context.Context, contactID uuid.UUID) ([]domain.TransferRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, contact_id, previous_agent, previous_sector, new_agent, new_sector,
		        destination, reason, note, actor_id, created_at
		 FROM transfer_records
		 WHERE contact_id = $1
		 ORDER BY created_at DESC`,
		contactID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.TransferRecord
	for rows.Next() {
		var rec domain.TransferRecord
		var destination, reason string
		if err := rows.Scan(&rec.ID, &rec.ContactID, &rec.PreviousAgent, &rec.PreviousSector,
			&rec.NewAgent, &rec.NewSector, &destination, &reason, &rec.Note, &rec.ActorID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Destination = domain.DestinationKind(destination)
		rec.Reason = domain.Reason(reason)
		results = append(results, rec)
	}
	return results, rows.Err()
}

// RecordNameChange appends an audit entry for a display-name change.
func (r *Repository) RecordNameChange(ctx context.Context, contactID uuid.UUID, oldName, newName string, actorID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO contact_audit (contact_id, field, old_value, new_value, actor_id)
		 VALUES ($1, 'display_name', $2, $3, $4)`,
		contactID, oldName, newName, actorID)
	return err
}

// Workload summarizes an agent's current and historical load.
type Workload struct {
	AgentID            uuid.UUID
	InProgress         int
	CompletedToday     int
	AvgHandleSeconds   float64
	OldestOwnedArrival *time.Time
}

// AgentWorkload computes the workload summary for one agent.
func (r *Repository) AgentWorkload(ctx context.Context, agentID uuid.UUID) (Workload, error) {
	w := Workload{AgentID: agentID}
	err := r.pool.QueryRow(ctx,
		`SELECT
		   count(*) FILTER (WHERE status = 'in_progress'),
		   min(arrived_at) FILTER (WHERE status = 'in_progress')
		 FROM contacts
		 WHERE owner_id = $1`,
		agentID,
	).Scan(&w.InProgress, &w.OldestOwnedArrival)
	if err != nil {
		return Workload{}, err
	}

	err = r.pool.QueryRow(ctx,
		`SELECT count(*) FILTER (WHERE completed_at >= date_trunc('day', now())),
		        coalesce(extract(epoch FROM avg(completed_at - arrived_at)), 0)
		 FROM attendance_history
		 WHERE actor_id = $1`,
		agentID,
	).Scan(&w.CompletedToday, &w.AvgHandleSeconds)
	if err != nil {
		return Workload{}, err
	}
	return w, nil
}

// CountInProgressByAgent returns the number of in-progress contacts each
// agent currently owns. Agents owning nothing are absent from the map.
func (r *Repository) CountInProgressByAgent(ctx context.Context) (map[uuid.UUID]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT owner_id, count(*)
		 FROM contacts
		 WHERE status = 'in_progress' AND owner_id IS NOT NULL
		 GROUP BY owner_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// AgentAverageHandleSeconds returns each agent's average attendance duration
// over completed cycles, from arrival to completion.
func (r *Repository) AgentAverageHandleSeconds(ctx context.Context) (map[uuid.UUID]float64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.actor_id, extract(epoch FROM avg(a.completed_at - a.arrived_at))
		 FROM attendance_history a
		 GROUP BY a.actor_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	averages := make(map[uuid.UUID]float64)
	for rows.Next() {
		var id uuid.UUID
		var avg float64
		if err := rows.Scan(&id, &avg); err != nil {
			return nil, err
		}
		averages[id] = avg
	}
	return averages, rows.Err()
}

// RecordCompletion appends the finished cycle to attendance history. The
// history feeds the lowest-average-handle-time balancing strategy and
// reporting joins.
func (r *Repository) RecordCompletion(ctx context.Context, c domain.Contact, actorID uuid.UUID) error {
	if c.CompletedAt == nil {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attendance_history (contact_id, cycle, actor_id, arrived_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (contact_id, cycle) DO NOTHING`,
		c.ID, c.Cycle, actorID, c.ArrivedAt, *c.CompletedAt)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (domain.Contact, error) {
	var c domain.Contact
	var status string
	err := row.Scan(&c.ID, &c.DisplayName, &c.Phone, &c.SectorID, &c.OwnerID, &status, &c.Cycle,
		&c.ArrivedAt, &c.LastInboundAt, &c.UnreadCount, &c.CompletedAt, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Contact{}, err
	}
	c.Status = domain.Status(status)
	return c, nil
}
