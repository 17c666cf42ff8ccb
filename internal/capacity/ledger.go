// Package capacity tracks each collecting organization's remaining daily
// pickup capacity. TryReserve is the single most contended operation in the
// system: the check-and-decrement must be indivisible so two concurrent
// acceptances cannot both fit into capacity only one of them has.
package capacity

import (
	"context"
	"errors"
	"time"
)

// Day renders an instant as the canonical UTC calendar-day key used across
// the ledger, votes and attendance records.
func Day(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Entry is one organization's ledger row for one calendar day (UTC).
type Entry struct {
	OrganizationID string `json:"organization_id"`
	Date           string `json:"date"`
	MaxCapacity    int    `json:"max_capacity"`
	Remaining      int    `json:"remaining_capacity"`
	Volunteers     int    `json:"volunteers_available"`
}

var (
	// ErrCapacityExceeded means the reservation did not fit; retrying is
	// pointless until capacity is released or raised.
	ErrCapacityExceeded = errors.New("capacity: remaining capacity exceeded")
	// ErrInvalidCapacity rejects a max below what is already committed.
	ErrInvalidCapacity = errors.New("capacity: new max below committed capacity")
	// ErrNotFound indicates no ledger entry for (org, date).
	ErrNotFound = errors.New("capacity: entry not found")
)

// Store persists ledger entries. TryReserve, Release and UpdateLimits must
// each be a single atomic read-modify-write per (org, date).
type Store interface {
	Get(ctx context.Context, orgID, date string) (Entry, error)
	// Ensure creates the entry with the given defaults when absent.
	Ensure(ctx context.Context, orgID, date string, maxCapacity, volunteers int) error
	// TryReserve decrements remaining by quantity iff remaining >= quantity,
	// reporting whether the reservation succeeded.
	TryReserve(ctx context.Context, orgID, date string, quantity int) (bool, error)
	// Release restores quantity, capped at max.
	Release(ctx context.Context, orgID, date string, quantity int) error
	// UpdateLimits sets new max and volunteer counts, preserving the amount
	// already committed. Must fail when newMax < committed.
	UpdateLimits(ctx context.Context, orgID, date string, newMax, volunteers int) (bool, error)
}

// Ledger wraps a Store with lazy default provisioning: an organization that
// has never touched today's ledger gets a default entry on first use.
type Ledger struct {
	store             Store
	defaultMax        int
	defaultVolunteers int
}

// NewLedger creates a ledger with per-day defaults for new organizations.
func NewLedger(store Store, defaultMax, defaultVolunteers int) *Ledger {
	if defaultMax <= 0 {
		defaultMax = 150
	}
	if defaultVolunteers < 0 {
		defaultVolunteers = 0
	}
	return &Ledger{store: store, defaultMax: defaultMax, defaultVolunteers: defaultVolunteers}
}

// Get returns the entry for (org, date), provisioning the default if needed.
func (l *Ledger) Get(ctx context.Context, orgID, date string) (Entry, error) {
	if err := l.store.Ensure(ctx, orgID, date, l.defaultMax, l.defaultVolunteers); err != nil {
		return Entry{}, err
	}
	return l.store.Get(ctx, orgID, date)
}

// TryReserve atomically checks and decrements remaining capacity.
// A losing caller gets ErrCapacityExceeded and must not retry blindly.
func (l *Ledger) TryReserve(ctx context.Context, orgID, date string, quantity int) error {
	if quantity <= 0 {
		return ErrCapacityExceeded
	}
	if err := l.store.Ensure(ctx, orgID, date, l.defaultMax, l.defaultVolunteers); err != nil {
		return err
	}
	ok, err := l.store.TryReserve(ctx, orgID, date, quantity)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCapacityExceeded
	}
	return nil
}

// Release restores capacity reserved for a pickup that was abandoned before
// verified delivery. Never called after a verified receipt.
func (l *Ledger) Release(ctx context.Context, orgID, date string, quantity int) error {
	if quantity <= 0 {
		return nil
	}
	return l.store.Release(ctx, orgID, date, quantity)
}

// UpdateLimits is the administrative override for max capacity and the
// volunteer headcount.
func (l *Ledger) UpdateLimits(ctx context.Context, orgID, date string, newMax, volunteers int) (Entry, error) {
	if newMax <= 0 || volunteers < 0 {
		return Entry{}, ErrInvalidCapacity
	}
	if err := l.store.Ensure(ctx, orgID, date, l.defaultMax, l.defaultVolunteers); err != nil {
		return Entry{}, err
	}
	ok, err := l.store.UpdateLimits(ctx, orgID, date, newMax, volunteers)
	if err != nil {
		return Entry{}, err
	}
	if !ok {
		return Entry{}, ErrInvalidCapacity
	}
	return l.store.Get(ctx, orgID, date)
}
