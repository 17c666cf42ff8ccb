package capacity

import (
	"context"
	"sync"
)

// MemoryStore keeps the ledger in a map guarded by one mutex; the lock is
// held only for the read-modify-write, mirroring the row-lock semantics of
// the Postgres repository.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryStore creates an empty in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

var _ Store = (*MemoryStore)(nil)

func key(orgID, date string) string { return orgID + "|" + date }

// Get returns the entry for (org, date).
func (m *MemoryStore) Get(_ context.Context, orgID, date string) (Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key(orgID, date)]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// Ensure creates the day's entry when absent.
func (m *MemoryStore) Ensure(_ context.Context, orgID, date string, maxCapacity, volunteers int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(orgID, date)
	if _, ok := m.entries[k]; !ok {
		m.entries[k] = Entry{
			OrganizationID: orgID,
			Date:           date,
			MaxCapacity:    maxCapacity,
			Remaining:      maxCapacity,
			Volunteers:     volunteers,
		}
	}
	return nil
}

// TryReserve checks and decrements under the lock.
func (m *MemoryStore) TryReserve(_ context.Context, orgID, date string, quantity int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(orgID, date)
	e, ok := m.entries[k]
	if !ok {
		return false, ErrNotFound
	}
	if e.Remaining < quantity {
		return false, nil
	}
	e.Remaining -= quantity
	m.entries[k] = e
	return true, nil
}

// Release restores quantity, capped at max.
func (m *MemoryStore) Release(_ context.Context, orgID, date string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(orgID, date)
	e, ok := m.entries[k]
	if !ok {
		return ErrNotFound
	}
	e.Remaining += quantity
	if e.Remaining > e.MaxCapacity {
		e.Remaining = e.MaxCapacity
	}
	m.entries[k] = e
	return nil
}

// UpdateLimits changes max while preserving the committed amount.
func (m *MemoryStore) UpdateLimits(_ context.Context, orgID, date string, newMax, volunteers int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(orgID, date)
	e, ok := m.entries[k]
	if !ok {
		return false, ErrNotFound
	}
	committed := e.MaxCapacity - e.Remaining
	if newMax < committed {
		return false, nil
	}
	e.MaxCapacity = newMax
	e.Remaining = newMax - committed
	e.Volunteers = volunteers
	m.entries[k] = e
	return true, nil
}
