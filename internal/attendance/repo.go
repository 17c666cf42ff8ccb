package attendance

import (
	"context"
	"database/sql"
)

// Repository persists attendance records in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

// Upsert writes the day's counts unless the stored row is closed.
func (r *Repository) Upsert(ctx context.Context, rec Record) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO attendance_records (provider_id, date, expected_count, actual_count, closed)
		VALUES ($1, $2, $3, $4, FALSE)
		ON CONFLICT (provider_id, date) DO UPDATE SET
			expected_count = EXCLUDED.expected_count,
			actual_count = EXCLUDED.actual_count
		WHERE attendance_records.closed = FALSE
	`, rec.ProviderID, rec.Day, rec.Expected, rec.Actual)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDayClosed
	}
	return nil
}

// Close marks a day immutable.
func (r *Repository) Close(ctx context.Context, providerID, day string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attendance_records SET closed = TRUE
		WHERE provider_id = $1 AND date = $2
	`, providerID, day)
	return err
}

// History returns the last closed days before beforeDay, oldest first.
func (r *Repository) History(ctx context.Context, providerID, beforeDay string, limit int) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT provider_id, date, expected_count, actual_count, closed
		FROM (
			SELECT provider_id, date, expected_count, actual_count, closed
			FROM attendance_records
			WHERE provider_id = $1 AND date < $2 AND closed = TRUE
			ORDER BY date DESC
			LIMIT $3
		) recent
		ORDER BY date ASC
	`, providerID, beforeDay, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ProviderID, &rec.Day, &rec.Expected, &rec.Actual, &rec.Closed); err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}
