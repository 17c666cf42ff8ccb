package surplus

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a mutex-guarded in-memory Store for dev mode and tests.
type MemoryStore struct {
	mu       sync.Mutex
	listings map[string]Listing
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{listings: make(map[string]Listing)}
}

var _ Store = (*MemoryStore)(nil)

// Insert stores a listing.
func (m *MemoryStore) Insert(_ context.Context, l Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[l.ID] = l
	return nil
}

// Get returns a listing by id.
func (m *MemoryStore) Get(_ context.Context, id string) (Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return Listing{}, ErrNotFound
	}
	return l, nil
}

// ListByStatus returns listings in the given state, oldest expiry first.
func (m *MemoryStore) ListByStatus(_ context.Context, status Status) ([]Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []Listing
	for _, l := range m.listings {
		if l.Status == status {
			res = append(res, l)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ExpiryTime.Before(res[j].ExpiryTime) })
	return res, nil
}

// ListByProvider returns a provider's listings, newest first.
func (m *MemoryStore) ListByProvider(_ context.Context, providerID string) ([]Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []Listing
	for _, l := range m.listings {
		if l.ProviderID == providerID {
			res = append(res, l)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

// UpdateStatus swaps status under the store lock.
func (m *MemoryStore) UpdateStatus(_ context.Context, id string, from, to Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return false, ErrNotFound
	}
	if l.Status != from {
		return false, nil
	}
	l.Status = to
	m.listings[id] = l
	return true, nil
}
