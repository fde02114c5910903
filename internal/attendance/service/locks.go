package service

import (
	"sync"

	"github.com/google/uuid"
)

// contactLocks serializes all mutations per contact id. Different contacts
// proceed fully in parallel; two commands on the same contact are applied in
// the order they acquire the lock.
type contactLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newContactLocks() *contactLocks {
	return &contactLocks{locks: make(map[uuid.UUID]*sync.Mutex)}
}

// acquire locks the contact and returns the release function.
func (c *contactLocks) acquire(id uuid.UUID) func() {
	c.mu.Lock()
	lock, ok := c.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[id] = lock
	}
	c.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
