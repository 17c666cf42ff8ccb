// Package receipt issues the immutable digital receipt for a verified
// pickup. Ids follow <ORG>-<YYYYMM>-<seq>, with the sequence scoped to the
// organization and issuance month and allocated atomically.
package receipt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// VerificationStatus marks whether the receipt's pickup proof was verified.
type VerificationStatus string

const (
	StatusVerified VerificationStatus = "VERIFIED"
	StatusPending  VerificationStatus = "PENDING"
)

// Receipt is the proof-of-transfer record. Rows are append-only and never
// updated once written.
type Receipt struct {
	ID             string             `json:"id"`
	PickupID       string             `json:"pickup_id"`
	OrganizationID string             `json:"organization_id"`
	OrgName        string             `json:"ngo_name"`
	ProviderID     string             `json:"provider_id"`
	FoodName       string             `json:"food_name"`
	Quantity       int                `json:"quantity"`
	PickupLocation string             `json:"pickup_location"`
	GeneratedAt    time.Time          `json:"generated_at"`
	Status         VerificationStatus `json:"verification_status"`
}

var (
	// ErrDuplicateReceipt guards idempotency: one receipt per pickup, ever.
	ErrDuplicateReceipt = errors.New("receipt: receipt already issued for pickup")
	// ErrNotFound indicates no receipt exists for the lookup.
	ErrNotFound = errors.New("receipt: not found")
)

// Store persists receipts and allocates id sequences. NextSequence must be
// race-free for concurrent verifications in the same (org, month); Insert
// must reject a second receipt for the same pickup.
type Store interface {
	Insert(ctx context.Context, rc Receipt) error
	GetByPickup(ctx context.Context, pickupID string) (Receipt, error)
	ListByOrganization(ctx context.Context, orgID string) ([]Receipt, error)
	NextSequence(ctx context.Context, orgID, month string) (int, error)
}

// Issuer generates receipts exactly once per verified pickup.
type Issuer struct {
	store Store
	now   func() time.Time
}

// NewIssuer creates an issuer.
func NewIssuer(store Store) *Issuer {
	return &Issuer{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Input carries the pickup facts a receipt is built from.
type Input struct {
	PickupID       string
	OrganizationID string
	OrgName        string
	ProviderID     string
	FoodName       string
	Quantity       int
	PickupLocation string
}

// Issue generates the receipt for a verified pickup. It fails with
// ErrDuplicateReceipt when one already exists; that is the idempotency
// guard, not a retry path.
func (i *Issuer) Issue(ctx context.Context, in Input) (Receipt, error) {
	if existing, err := i.store.GetByPickup(ctx, in.PickupID); err == nil {
		return existing, ErrDuplicateReceipt
	} else if !errors.Is(err, ErrNotFound) {
		return Receipt{}, err
	}

	generated := i.now()
	month := generated.Format("200601")
	seq, err := i.store.NextSequence(ctx, in.OrganizationID, month)
	if err != nil {
		return Receipt{}, err
	}

	rc := Receipt{
		ID:             fmt.Sprintf("%s-%s-%04d", ShortCode(in.OrgName), month, seq),
		PickupID:       in.PickupID,
		OrganizationID: in.OrganizationID,
		OrgName:        in.OrgName,
		ProviderID:     in.ProviderID,
		FoodName:       in.FoodName,
		Quantity:       in.Quantity,
		PickupLocation: in.PickupLocation,
		GeneratedAt:    generated,
		Status:         StatusVerified,
	}
	if err := i.store.Insert(ctx, rc); err != nil {
		if errors.Is(err, ErrDuplicateReceipt) {
			// Lost a concurrent verify; hand back the winner's receipt.
			if existing, gerr := i.store.GetByPickup(ctx, in.PickupID); gerr == nil {
				return existing, ErrDuplicateReceipt
			}
		}
		return Receipt{}, err
	}
	return rc, nil
}

// GetByPickup returns the receipt issued for a pickup, if any.
func (i *Issuer) GetByPickup(ctx context.Context, pickupID string) (Receipt, error) {
	return i.store.GetByPickup(ctx, pickupID)
}

// ListByOrganization returns an organization's receipts.
func (i *Issuer) ListByOrganization(ctx context.Context, orgID string) ([]Receipt, error) {
	return i.store.ListByOrganization(ctx, orgID)
}

// ShortCode derives the receipt id prefix from the organization name: the
// first three letters, upper-cased ("GreenHope" -> "GRE").
func ShortCode(orgName string) string {
	var letters []rune
	for _, r := range orgName {
		if unicode.IsLetter(r) {
			letters = append(letters, unicode.ToUpper(r))
			if len(letters) == 3 {
				break
			}
		}
	}
	if len(letters) == 0 {
		return "ORG"
	}
	return strings.ToUpper(string(letters))
}
