package service

import (
	"sync"
	"time"

	"atendimento_backend/internal/attendance/domain"

	"github.com/google/uuid"
)

// pendingTransferTTL bounds how long a destination selection waits for its
// justification before it lapses.
const pendingTransferTTL = 10 * time.Minute

// pendingTransfers holds step-1 transfer selections. They live only here, in
// memory, never on the contact: no entity lock is held while the caller types
// a justification, and abandoning a selection needs no compensating action.
type pendingTransfers struct {
	mu      sync.Mutex
	pending map[uuid.UUID]domain.PendingTransfer
}

func newPendingTransfers() *pendingTransfers {
	return &pendingTransfers{pending: make(map[uuid.UUID]domain.PendingTransfer)}
}

func (p *pendingTransfers) put(pt domain.PendingTransfer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sweepLocked(time.Now())
	p.pending[pt.Token] = pt
}

// take removes and returns the pending transfer for the token.
func (p *pendingTransfers) take(token uuid.UUID) (domain.PendingTransfer, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pt, ok := p.pending[token]
	if ok {
		delete(p.pending, token)
	}
	return pt, ok
}

func (p *pendingTransfers) drop(token uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.pending[token]
	delete(p.pending, token)
	return ok
}

func (p *pendingTransfers) sweepLocked(now time.Time) {
	for token, pt := range p.pending {
		if pt.Expired(now) {
			delete(p.pending, token)
		}
	}
}
