package votes

import (
	"context"
	"sync"
)

// MemoryStore is the in-memory Store for dev mode and tests.
type MemoryStore struct {
	mu    sync.Mutex
	votes map[string]Vote
}

// NewMemoryStore creates an empty in-memory vote store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{votes: make(map[string]Vote)}
}

var _ Store = (*MemoryStore)(nil)

func voteKey(studentID, day string) string { return studentID + "|" + day }

// Cast stores the vote, replacing any earlier one for the same day.
func (m *MemoryStore) Cast(_ context.Context, v Vote) (Option, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := voteKey(v.StudentID, v.Day)
	previous, replaced := m.votes[k]
	m.votes[k] = v
	return previous.Option, replaced, nil
}

// Tally aggregates the day's votes.
func (m *MemoryStore) Tally(_ context.Context, day string) (Tally, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var t Tally
	for _, v := range m.votes {
		if v.Day != day {
			continue
		}
		switch v.Option {
		case OptionYes:
			t.Yes++
		case OptionNo:
			t.No++
		case OptionMaybe:
			t.Maybe++
		}
	}
	t.Total = t.Yes + t.No + t.Maybe
	return t, nil
}
