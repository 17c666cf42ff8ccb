package attendance

import (
	"context"
	"errors"
)

// Record is one provider's attendance for one calendar day (UTC). One record
// per (provider, day); immutable once the day is closed.
type Record struct {
	ProviderID string `json:"provider_id"`
	Day        string `json:"date"`
	Expected   int    `json:"expected_count"`
	Actual     int    `json:"actual_count"`
	Closed     bool   `json:"closed"`
}

var (
	// ErrDayClosed rejects writes to a closed day.
	ErrDayClosed = errors.New("attendance: day already closed")
	// ErrInvalidDay rejects malformed day keys.
	ErrInvalidDay = errors.New("attendance: day must be YYYY-MM-DD")
	// ErrInvalidCount rejects negative attendance counts.
	ErrInvalidCount = errors.New("attendance: counts must be non-negative")
)

// Store persists attendance records.
type Store interface {
	// Upsert writes the record; it fails with ErrDayClosed when the stored
	// record is closed.
	Upsert(ctx context.Context, rec Record) error
	// Close marks a day immutable.
	Close(ctx context.Context, providerID, day string) error
	// History returns up to limit closed records before the given day,
	// ordered oldest to newest.
	History(ctx context.Context, providerID, beforeDay string, limit int) ([]Record, error)
}

// Service validates and records daily attendance.
type Service struct {
	store Store
}

// NewService creates a service backed by a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Record upserts a day's expected and actual counts. The day stays editable
// until it is closed.
func (s *Service) Record(ctx context.Context, providerID, day string, expected, actual int) (Record, error) {
	if !validDay(day) {
		return Record{}, ErrInvalidDay
	}
	if expected < 0 || actual < 0 {
		return Record{}, ErrInvalidCount
	}
	rec := Record{ProviderID: providerID, Day: day, Expected: expected, Actual: actual}
	if err := s.store.Upsert(ctx, rec); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// CloseDay freezes the record for the day.
func (s *Service) CloseDay(ctx context.Context, providerID, day string) error {
	if !validDay(day) {
		return ErrInvalidDay
	}
	return s.store.Close(ctx, providerID, day)
}

// History returns the last `limit` closed days before the target day,
// oldest first. This is the window the forecast engine consumes.
func (s *Service) History(ctx context.Context, providerID, beforeDay string, limit int) ([]Record, error) {
	if !validDay(beforeDay) {
		return nil, ErrInvalidDay
	}
	if limit <= 0 {
		limit = 7
	}
	return s.store.History(ctx, providerID, beforeDay, limit)
}

func validDay(day string) bool {
	if len(day) != 10 || day[4] != '-' || day[7] != '-' {
		return false
	}
	for i, c := range day {
		if i == 4 || i == 7 {
			continue
		}
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
