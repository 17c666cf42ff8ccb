package receipt

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is the in-memory Store for dev mode and tests. One mutex
// covers both the receipts map and the sequence counters, mirroring the
// serialization the Postgres repository gets from its row locks.
type MemoryStore struct {
	mu        sync.Mutex
	byPickup  map[string]Receipt
	sequences map[string]int
}

// NewMemoryStore creates an empty in-memory receipt store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byPickup:  make(map[string]Receipt),
		sequences: make(map[string]int),
	}
}

var _ Store = (*MemoryStore)(nil)

// Insert stores a receipt, rejecting a second one for the same pickup.
func (m *MemoryStore) Insert(_ context.Context, rc Receipt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byPickup[rc.PickupID]; ok {
		return ErrDuplicateReceipt
	}
	m.byPickup[rc.PickupID] = rc
	return nil
}

// GetByPickup returns the receipt for a pickup.
func (m *MemoryStore) GetByPickup(_ context.Context, pickupID string) (Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rc, ok := m.byPickup[pickupID]
	if !ok {
		return Receipt{}, ErrNotFound
	}
	return rc, nil
}

// ListByOrganization returns an organization's receipts, newest first.
func (m *MemoryStore) ListByOrganization(_ context.Context, orgID string) ([]Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []Receipt
	for _, rc := range m.byPickup {
		if rc.OrganizationID == orgID {
			res = append(res, rc)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].GeneratedAt.After(res[j].GeneratedAt) })
	return res, nil
}

// NextSequence allocates the next counter value under the lock.
func (m *MemoryStore) NextSequence(_ context.Context, orgID, month string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := orgID + "|" + month
	m.sequences[k]++
	return m.sequences[k], nil
}
