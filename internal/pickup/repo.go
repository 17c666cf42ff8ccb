package pickup

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository persists pickups and decline events in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

const pickupColumns = `id, food_id, organization_id, quantity, status, accepted_date, accepted_at, proof_blob_ref, proof_uploaded_at, delivered_at, on_time, abandoned_at`

// Insert writes a new pickup.
func (r *Repository) Insert(ctx context.Context, p Pickup) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pickups (`+pickupColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, p.ID, p.FoodID, p.OrganizationID, p.Quantity, p.Status, p.AcceptedDate, p.AcceptedAt,
		nullStr(p.ProofBlobRef), p.ProofUploadedAt, p.DeliveredAt, p.OnTime, p.AbandonedAt)
	return err
}

// Get returns a single pickup by id.
func (r *Repository) Get(ctx context.Context, id string) (Pickup, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+pickupColumns+` FROM pickups WHERE id = $1`, id)
	return scanPickup(row.Scan)
}

// ListByOrganization returns an organization's pickups, newest first.
func (r *Repository) ListByOrganization(ctx context.Context, orgID string) ([]Pickup, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+pickupColumns+` FROM pickups
		WHERE organization_id = $1 ORDER BY accepted_at DESC
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Pickup
	for rows.Next() {
		p, err := scanPickup(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// SetPicked attaches proof and swaps PENDING -> PICKED atomically.
func (r *Repository) SetPicked(ctx context.Context, id, proofRef string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pickups SET status = $4, proof_blob_ref = $2, proof_uploaded_at = $3
		WHERE id = $1 AND status = $5 AND abandoned_at IS NULL
	`, id, proofRef, at, StatusPicked, StatusPending)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// SetDelivered swaps PICKED -> DELIVERED atomically.
func (r *Repository) SetDelivered(ctx context.Context, id string, at time.Time, onTime bool) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pickups SET status = $4, delivered_at = $2, on_time = $3
		WHERE id = $1 AND status = $5 AND abandoned_at IS NULL
	`, id, at, onTime, StatusDelivered, StatusPicked)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// SetAbandoned marks the pickup abandoned from the given status.
func (r *Repository) SetAbandoned(ctx context.Context, id string, from Status, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pickups SET abandoned_at = $2
		WHERE id = $1 AND status = $3 AND abandoned_at IS NULL
	`, id, at, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// InsertDecline records a decline event.
func (r *Repository) InsertDecline(ctx context.Context, ev DeclineEvent) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO decline_events (id, food_id, organization_id, reason, declined_at)
		VALUES ($1,$2,$3,$4,$5)
	`, ev.ID, ev.FoodID, ev.OrganizationID, ev.Reason, ev.DeclinedAt)
	return err
}

// ListDeclinesByOrganization returns decline events, newest first.
func (r *Repository) ListDeclinesByOrganization(ctx context.Context, orgID string) ([]DeclineEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, food_id, organization_id, reason, declined_at
		FROM decline_events WHERE organization_id = $1 ORDER BY declined_at DESC
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []DeclineEvent
	for rows.Next() {
		var ev DeclineEvent
		if err := rows.Scan(&ev.ID, &ev.FoodID, &ev.OrganizationID, &ev.Reason, &ev.DeclinedAt); err != nil {
			return nil, err
		}
		res = append(res, ev)
	}
	return res, rows.Err()
}

// StatsByOrganization aggregates the organization's pickup history.
func (r *Repository) StatsByOrganization(ctx context.Context, orgID string) (Stats, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = $2 AND abandoned_at IS NULL),
			COUNT(*) FILTER (WHERE status = $2 AND on_time AND abandoned_at IS NULL),
			COUNT(*) FILTER (WHERE abandoned_at IS NOT NULL),
			COALESCE(SUM(quantity) FILTER (WHERE status = $2 AND abandoned_at IS NULL), 0)
		FROM pickups
		WHERE organization_id = $1
	`, orgID, StatusDelivered)
	var s Stats
	if err := row.Scan(&s.Accepted, &s.Delivered, &s.OnTime, &s.Missed, &s.PlatesCollected); err != nil {
		return Stats{}, err
	}
	return s, nil
}

func scanPickup(scan func(dest ...any) error) (Pickup, error) {
	var p Pickup
	var proofRef sql.NullString
	if err := scan(&p.ID, &p.FoodID, &p.OrganizationID, &p.Quantity, &p.Status, &p.AcceptedDate, &p.AcceptedAt,
		&proofRef, &p.ProofUploadedAt, &p.DeliveredAt, &p.OnTime, &p.AbandonedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Pickup{}, ErrNotFound
		}
		return Pickup{}, err
	}
	p.ProofBlobRef = proofRef.String
	return p, nil
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
