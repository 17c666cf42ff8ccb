package surplus

import (
	"context"
	"database/sql"
	"errors"
)

// Repository persists listings in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

// Insert writes a new listing.
func (r *Repository) Insert(ctx context.Context, l Listing) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO surplus_listings (id, provider_id, food_name, quantity, location, cooked_time, expiry_time, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, l.ID, l.ProviderID, l.FoodName, l.Quantity, l.Location, l.CookedTime, l.ExpiryTime, l.Status, l.CreatedAt)
	return err
}

// Get returns a single listing by id.
func (r *Repository) Get(ctx context.Context, id string) (Listing, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, provider_id, food_name, quantity, location, cooked_time, expiry_time, status, created_at
		FROM surplus_listings WHERE id = $1
	`, id)
	var l Listing
	if err := row.Scan(&l.ID, &l.ProviderID, &l.FoodName, &l.Quantity, &l.Location, &l.CookedTime, &l.ExpiryTime, &l.Status, &l.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Listing{}, ErrNotFound
		}
		return Listing{}, err
	}
	return l, nil
}

// ListByStatus returns listings in the given state, oldest expiry first.
func (r *Repository) ListByStatus(ctx context.Context, status Status) ([]Listing, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, provider_id, food_name, quantity, location, cooked_time, expiry_time, status, created_at
		FROM surplus_listings WHERE status = $1
		ORDER BY expiry_time ASC
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanListings(rows)
}

// ListByProvider returns a provider's listings, newest first.
func (r *Repository) ListByProvider(ctx context.Context, providerID string) ([]Listing, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, provider_id, food_name, quantity, location, cooked_time, expiry_time, status, created_at
		FROM surplus_listings WHERE provider_id = $1
		ORDER BY created_at DESC
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanListings(rows)
}

// UpdateStatus swaps status atomically; the WHERE clause on the old status
// makes the conditional update the serialization point.
func (r *Repository) UpdateStatus(ctx context.Context, id string, from, to Status) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE surplus_listings SET status = $3 WHERE id = $1 AND status = $2
	`, id, from, to)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func scanListings(rows *sql.Rows) ([]Listing, error) {
	var res []Listing
	for rows.Next() {
		var l Listing
		if err := rows.Scan(&l.ID, &l.ProviderID, &l.FoodName, &l.Quantity, &l.Location, &l.CookedTime, &l.ExpiryTime, &l.Status, &l.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}
