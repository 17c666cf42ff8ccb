package capacity

import (
	"context"
	"database/sql"
	"errors"
)

// Repository persists the ledger in Postgres. Every mutation is a single
// conditional statement so the database row lock is the critical section.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

// Get returns the entry for (org, date).
func (r *Repository) Get(ctx context.Context, orgID, date string) (Entry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT organization_id, date, max_capacity, remaining_capacity, volunteers_available
		FROM capacity_ledger WHERE organization_id = $1 AND date = $2
	`, orgID, date)
	var e Entry
	if err := row.Scan(&e.OrganizationID, &e.Date, &e.MaxCapacity, &e.Remaining, &e.Volunteers); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, err
	}
	return e, nil
}

// Ensure creates the day's entry when absent.
func (r *Repository) Ensure(ctx context.Context, orgID, date string, maxCapacity, volunteers int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO capacity_ledger (organization_id, date, max_capacity, remaining_capacity, volunteers_available)
		VALUES ($1, $2, $3, $3, $4)
		ON CONFLICT (organization_id, date) DO NOTHING
	`, orgID, date, maxCapacity, volunteers)
	return err
}

// TryReserve is the atomic check-and-decrement: the WHERE guard on
// remaining_capacity makes concurrent over-reservation impossible.
func (r *Repository) TryReserve(ctx context.Context, orgID, date string, quantity int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE capacity_ledger
		SET remaining_capacity = remaining_capacity - $3
		WHERE organization_id = $1 AND date = $2 AND remaining_capacity >= $3
	`, orgID, date, quantity)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Release restores quantity, capped at max.
func (r *Repository) Release(ctx context.Context, orgID, date string, quantity int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE capacity_ledger
		SET remaining_capacity = LEAST(max_capacity, remaining_capacity + $3)
		WHERE organization_id = $1 AND date = $2
	`, orgID, date, quantity)
	return err
}

// UpdateLimits changes max while preserving the committed amount
// (max - remaining); the guard rejects a max below what is committed.
func (r *Repository) UpdateLimits(ctx context.Context, orgID, date string, newMax, volunteers int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE capacity_ledger
		SET remaining_capacity = $3 - (max_capacity - remaining_capacity),
		    max_capacity = $3,
		    volunteers_available = $4
		WHERE organization_id = $1 AND date = $2 AND $3 >= (max_capacity - remaining_capacity)
	`, orgID, date, newMax, volunteers)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
