// Package queue maintains the in-memory, per-sector view of contacts waiting
// for an agent. The index is a derived cache: the contact store stays the
// source of truth and the index can be dropped and rebuilt from it at any time.
package queue

import (
	"sort"
	"sync"
	"time"

	"atendimento_backend/internal/attendance/domain"
	"atendimento_backend/platform/apperr"

	"github.com/google/uuid"
)

// Order selects how a queue snapshot is sorted.
type Order string

const (
	// OrderAscending sorts shortest wait first.
	OrderAscending Order = "asc"
	// OrderDescending sorts longest wait first, with alerted contacts
	// pinned to the front regardless of raw wait time.
	OrderDescending Order = "desc"
)

// GeneralPool is the sector key for contacts with no sector.
var GeneralPool = uuid.Nil

// Entry is one queued contact inside a sector queue.
type Entry struct {
	ContactID uuid.UUID
	SectorID  *uuid.UUID
	ArrivedAt time.Time
}

// Snapshot is a queue entry enriched for callers: wait time and alert flag
// are computed at snapshot time, never stored.
type Snapshot struct {
	Entry
	Wait    time.Duration
	InAlert bool
}

// Index is the per-sector queue registry. All methods are safe for concurrent use.
type Index struct {
	mu         sync.RWMutex
	sectors    map[uuid.UUID]map[uuid.UUID]Entry // sector key -> contact id -> entry
	membership map[uuid.UUID]uuid.UUID           // contact id -> sector key
}

// NewIndex creates an empty queue index.
func NewIndex() *Index {
	return &Index{
		sectors:    make(map[uuid.UUID]map[uuid.UUID]Entry),
		membership: make(map[uuid.UUID]uuid.UUID),
	}
}

func sectorKey(sectorID *uuid.UUID) uuid.UUID {
	if sectorID == nil {
		return GeneralPool
	}
	return *sectorID
}

// Enqueue inserts a contact into its sector queue. A contact may sit in at
// most one queue: enqueueing a contact already present anywhere fails.
func (i *Index) Enqueue(contact domain.Contact) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, exists := i.membership[contact.ID]; exists {
		return apperr.AlreadyQueued("contact is already waiting in a queue")
	}

	key := sectorKey(contact.SectorID)
	if i.sectors[key] == nil {
		i.sectors[key] = make(map[uuid.UUID]Entry)
	}
	i.sectors[key][contact.ID] = Entry{
		ContactID: contact.ID,
		SectorID:  contact.SectorID,
		ArrivedAt: contact.ArrivedAt,
	}
	i.membership[contact.ID] = key
	return nil
}

// Dequeue removes a contact from whichever queue holds it. Removing an absent
// contact is a no-op: dequeue may race with manual removal.
func (i *Index) Dequeue(contactID uuid.UUID) {
	i.mu.Lock()
	defer i.mu.Unlock()

	key, ok := i.membership[contactID]
	if !ok {
		return
	}
	delete(i.sectors[key], contactID)
	if len(i.sectors[key]) == 0 {
		delete(i.sectors, key)
	}
	delete(i.membership, contactID)
}

// Contains reports whether the contact currently sits in any queue.
func (i *Index) Contains(contactID uuid.UUID) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.membership[contactID]
	return ok
}

// Len returns the number of contacts waiting in the given sector queue.
func (i *Index) Len(sectorID *uuid.UUID) int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.sectors[sectorKey(sectorID)])
}

// Rebuild replaces the whole index with the given queued contacts, dropping
// any previous state. Used at startup and after the store reports drift.
func (i *Index) Rebuild(contacts []domain.Contact) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.sectors = make(map[uuid.UUID]map[uuid.UUID]Entry)
	i.membership = make(map[uuid.UUID]uuid.UUID)
	for _, c := range contacts {
		if c.Status != domain.StatusQueued {
			continue
		}
		key := sectorKey(c.SectorID)
		if i.sectors[key] == nil {
			i.sectors[key] = make(map[uuid.UUID]Entry)
		}
		i.sectors[key][c.ID] = Entry{ContactID: c.ID, SectorID: c.SectorID, ArrivedAt: c.ArrivedAt}
		i.membership[c.ID] = key
	}
}

// SnapshotSector returns the ordered queue for one sector. The alerted set
// carries the SLA monitor's current flags; it only affects descending order,
// where alerted contacts sort before all others. Within each partition longer
// waits sort first (descending) or last (ascending); ties break by earlier
// arrival.
func (i *Index) SnapshotSector(sectorID *uuid.UUID, order Order, now time.Time, alerted map[uuid.UUID]bool) []Snapshot {
	i.mu.RLock()
	entries := make([]Snapshot, 0, len(i.sectors[sectorKey(sectorID)]))
	for _, e := range i.sectors[sectorKey(sectorID)] {
		wait := time.Duration(0)
		if !e.ArrivedAt.IsZero() && now.After(e.ArrivedAt) {
			wait = now.Sub(e.ArrivedAt)
		}
		entries = append(entries, Snapshot{
			Entry:   e,
			Wait:    wait,
			InAlert: alerted[e.ContactID],
		})
	}
	i.mu.RUnlock()

	switch order {
	case OrderAscending:
		sort.Slice(entries, func(a, b int) bool {
			if entries[a].Wait != entries[b].Wait {
				return entries[a].Wait < entries[b].Wait
			}
			return entries[a].ArrivedAt.Before(entries[b].ArrivedAt)
		})
	default:
		sort.Slice(entries, func(a, b int) bool {
			if entries[a].InAlert != entries[b].InAlert {
				return entries[a].InAlert
			}
			if entries[a].Wait != entries[b].Wait {
				return entries[a].Wait > entries[b].Wait
			}
			return entries[a].ArrivedAt.Before(entries[b].ArrivedAt)
		})
	}
	return entries
}
