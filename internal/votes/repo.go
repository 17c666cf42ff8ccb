package votes

import (
	"context"
	"database/sql"
	"errors"
)

// Repository persists votes in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

// Cast upserts the student's vote for the day and reports any replaced
// option for cache adjustment.
func (r *Repository) Cast(ctx context.Context, v Vote) (Option, bool, error) {
	var previous Option
	row := r.db.QueryRowContext(ctx, `
		SELECT option FROM student_votes WHERE student_id = $1 AND date = $2
	`, v.StudentID, v.Day)
	replaced := true
	if err := row.Scan(&previous); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return "", false, err
		}
		replaced = false
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO student_votes (student_id, date, option, voted_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id, date) DO UPDATE SET
			option = EXCLUDED.option,
			voted_at = EXCLUDED.voted_at
	`, v.StudentID, v.Day, v.Option, v.VotedAt)
	if err != nil {
		return "", false, err
	}
	return previous, replaced, nil
}

// Tally aggregates the day's votes.
func (r *Repository) Tally(ctx context.Context, day string) (Tally, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT option, COUNT(*) FROM student_votes WHERE date = $1 GROUP BY option
	`, day)
	if err != nil {
		return Tally{}, err
	}
	defer rows.Close()
	var t Tally
	for rows.Next() {
		var opt Option
		var count int
		if err := rows.Scan(&opt, &count); err != nil {
			return Tally{}, err
		}
		switch opt {
		case OptionYes:
			t.Yes = count
		case OptionNo:
			t.No = count
		case OptionMaybe:
			t.Maybe = count
		}
	}
	t.Total = t.Yes + t.No + t.Maybe
	return t, rows.Err()
}
