package attendance

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is the in-memory Store for dev mode and tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory attendance store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

var _ Store = (*MemoryStore)(nil)

func recKey(providerID, day string) string { return providerID + "|" + day }

// Upsert writes the day's counts unless the stored record is closed.
func (m *MemoryStore) Upsert(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := recKey(rec.ProviderID, rec.Day)
	if existing, ok := m.records[k]; ok && existing.Closed {
		return ErrDayClosed
	}
	m.records[k] = rec
	return nil
}

// Close marks a day immutable.
func (m *MemoryStore) Close(_ context.Context, providerID, day string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := recKey(providerID, day)
	if rec, ok := m.records[k]; ok {
		rec.Closed = true
		m.records[k] = rec
	}
	return nil
}

// History returns the last closed days before beforeDay, oldest first.
func (m *MemoryStore) History(_ context.Context, providerID, beforeDay string, limit int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []Record
	for _, rec := range m.records {
		if rec.ProviderID == providerID && rec.Closed && rec.Day < beforeDay {
			res = append(res, rec)
		}
	}
	// Day keys are YYYY-MM-DD so lexicographic order is chronological.
	sort.Slice(res, func(i, j int) bool { return res[i].Day < res[j].Day })
	if len(res) > limit {
		res = res[len(res)-limit:]
	}
	return res, nil
}
