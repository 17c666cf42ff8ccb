package receipt

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// Repository persists receipts in Postgres. The receipts table carries a
// unique index on pickup_id; receipt_sequences holds one counter row per
// (organization, month).
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

var _ Store = (*Repository)(nil)

// Insert writes a receipt; a pickup_id collision maps to ErrDuplicateReceipt.
func (r *Repository) Insert(ctx context.Context, rc Receipt) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO digital_receipts (id, pickup_id, organization_id, org_name, provider_id, food_name, quantity, pickup_location, generated_at, verification_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, rc.ID, rc.PickupID, rc.OrganizationID, rc.OrgName, rc.ProviderID, rc.FoodName, rc.Quantity, rc.PickupLocation, rc.GeneratedAt, rc.Status)
	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return ErrDuplicateReceipt
	}
	return err
}

// GetByPickup returns the receipt for a pickup.
func (r *Repository) GetByPickup(ctx context.Context, pickupID string) (Receipt, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, pickup_id, organization_id, org_name, provider_id, food_name, quantity, pickup_location, generated_at, verification_status
		FROM digital_receipts WHERE pickup_id = $1
	`, pickupID)
	return scanReceipt(row)
}

// ListByOrganization returns an organization's receipts, newest first.
func (r *Repository) ListByOrganization(ctx context.Context, orgID string) ([]Receipt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, pickup_id, organization_id, org_name, provider_id, food_name, quantity, pickup_location, generated_at, verification_status
		FROM digital_receipts WHERE organization_id = $1
		ORDER BY generated_at DESC
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Receipt
	for rows.Next() {
		var rc Receipt
		if err := rows.Scan(&rc.ID, &rc.PickupID, &rc.OrganizationID, &rc.OrgName, &rc.ProviderID, &rc.FoodName, &rc.Quantity, &rc.PickupLocation, &rc.GeneratedAt, &rc.Status); err != nil {
			return nil, err
		}
		res = append(res, rc)
	}
	return res, rows.Err()
}

// NextSequence allocates the next monotonic sequence for (org, month) in a
// single upsert, so concurrent verifications never see the same value.
func (r *Repository) NextSequence(ctx context.Context, orgID, month string) (int, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO receipt_sequences (organization_id, month, seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (organization_id, month) DO UPDATE SET seq = receipt_sequences.seq + 1
		RETURNING seq
	`, orgID, month)
	var seq int
	if err := row.Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

func scanReceipt(row *sql.Row) (Receipt, error) {
	var rc Receipt
	if err := row.Scan(&rc.ID, &rc.PickupID, &rc.OrganizationID, &rc.OrgName, &rc.ProviderID, &rc.FoodName, &rc.Quantity, &rc.PickupLocation, &rc.GeneratedAt, &rc.Status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Receipt{}, ErrNotFound
		}
		return Receipt{}, err
	}
	return rc, nil
}
