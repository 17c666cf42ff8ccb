package pickup

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is the in-memory Store for dev mode and tests.
type MemoryStore struct {
	mu       sync.Mutex
	pickups  map[string]Pickup
	declines []DeclineEvent
}

// NewMemoryStore creates an empty in-memory pickup store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{pickups: make(map[string]Pickup)}
}

var _ Store = (*MemoryStore)(nil)

// Insert stores a pickup.
func (m *MemoryStore) Insert(_ context.Context, p Pickup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pickups[p.ID] = p
	return nil
}

// Get returns a pickup by id.
func (m *MemoryStore) Get(_ context.Context, id string) (Pickup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pickups[id]
	if !ok {
		return Pickup{}, ErrNotFound
	}
	return p, nil
}

// ListByOrganization returns an organization's pickups, newest first.
func (m *MemoryStore) ListByOrganization(_ context.Context, orgID string) ([]Pickup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []Pickup
	for _, p := range m.pickups {
		if p.OrganizationID == orgID {
			res = append(res, p)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].AcceptedAt.After(res[j].AcceptedAt) })
	return res, nil
}

// SetPicked attaches proof and swaps PENDING -> PICKED under the lock.
func (m *MemoryStore) SetPicked(_ context.Context, id, proofRef string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pickups[id]
	if !ok {
		return false, ErrNotFound
	}
	if p.Status != StatusPending || p.AbandonedAt != nil {
		return false, nil
	}
	p.Status = StatusPicked
	p.ProofBlobRef = proofRef
	p.ProofUploadedAt = &at
	m.pickups[id] = p
	return true, nil
}

// SetDelivered swaps PICKED -> DELIVERED under the lock.
func (m *MemoryStore) SetDelivered(_ context.Context, id string, at time.Time, onTime bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pickups[id]
	if !ok {
		return false, ErrNotFound
	}
	if p.Status != StatusPicked || p.AbandonedAt != nil {
		return false, nil
	}
	p.Status = StatusDelivered
	p.DeliveredAt = &at
	p.OnTime = onTime
	m.pickups[id] = p
	return true, nil
}

// SetAbandoned marks the pickup abandoned.
func (m *MemoryStore) SetAbandoned(_ context.Context, id string, from Status, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pickups[id]
	if !ok {
		return false, ErrNotFound
	}
	if p.Status != from || p.AbandonedAt != nil {
		return false, nil
	}
	p.AbandonedAt = &at
	m.pickups[id] = p
	return true, nil
}

// InsertDecline records a decline event.
func (m *MemoryStore) InsertDecline(_ context.Context, ev DeclineEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.declines = append(m.declines, ev)
	return nil
}

// ListDeclinesByOrganization returns decline events, newest first.
func (m *MemoryStore) ListDeclinesByOrganization(_ context.Context, orgID string) ([]DeclineEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []DeclineEvent
	for _, ev := range m.declines {
		if ev.OrganizationID == orgID {
			res = append(res, ev)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].DeclinedAt.After(res[j].DeclinedAt) })
	return res, nil
}

// StatsByOrganization aggregates the organization's pickup history.
func (m *MemoryStore) StatsByOrganization(_ context.Context, orgID string) (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s Stats
	for _, p := range m.pickups {
		if p.OrganizationID != orgID {
			continue
		}
		s.Accepted++
		if p.AbandonedAt != nil {
			s.Missed++
			continue
		}
		if p.Status == StatusDelivered {
			s.Delivered++
			s.PlatesCollected += p.Quantity
			if p.OnTime {
				s.OnTime++
			}
		}
	}
	return s, nil
}
