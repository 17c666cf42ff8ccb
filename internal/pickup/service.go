package pickup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"foodbridge/internal/capacity"
	"foodbridge/internal/receipt"
	"foodbridge/internal/surplus"
)

// Store persists pickups and decline events. The Set* transitions are
// compare-and-swap on the current status.
type Store interface {
	Insert(ctx context.Context, p Pickup) error
	Get(ctx context.Context, id string) (Pickup, error)
	ListByOrganization(ctx context.Context, orgID string) ([]Pickup, error)
	SetPicked(ctx context.Context, id, proofRef string, at time.Time) (bool, error)
	SetDelivered(ctx context.Context, id string, at time.Time, onTime bool) (bool, error)
	SetAbandoned(ctx context.Context, id string, from Status, at time.Time) (bool, error)
	InsertDecline(ctx context.Context, ev DeclineEvent) error
	ListDeclinesByOrganization(ctx context.Context, orgID string) ([]DeclineEvent, error)
	StatsByOrganization(ctx context.Context, orgID string) (Stats, error)
}

// Service coordinates the pickup lifecycle with the listing lifecycle, the
// capacity ledger and the receipt issuer.
type Service struct {
	store             Store
	listings          *surplus.Service
	ledger            *capacity.Ledger
	issuer            *receipt.Issuer
	abandonAfterProof bool
	now               func() time.Time
}

// NewService creates a pickup service. abandonAfterProof controls whether a
// PICKED pickup (proof submitted, unverified) may still be abandoned with a
// capacity release; the safe default is no.
func NewService(store Store, listings *surplus.Service, ledger *capacity.Ledger, issuer *receipt.Issuer, abandonAfterProof bool) *Service {
	return &Service{
		store:             store,
		listings:          listings,
		ledger:            ledger,
		issuer:            issuer,
		abandonAfterProof: abandonAfterProof,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// Accept reserves capacity, transitions the listing to ACCEPTED and creates
// the PENDING pickup. The pairing is atomic in effect: a reservation that
// fails stops everything, and a lost listing race releases the reservation
// before returning, so no partial side effect survives.
func (s *Service) Accept(ctx context.Context, listingID, orgID string) (Pickup, error) {
	l, err := s.listings.Get(ctx, listingID)
	if err != nil {
		return Pickup{}, err
	}
	switch l.Status {
	case surplus.StatusExpired:
		return Pickup{}, surplus.ErrExpired
	case surplus.StatusAccepted:
		return Pickup{}, surplus.ErrAlreadyAccepted
	}

	day := capacity.Day(s.now())
	if err := s.ledger.TryReserve(ctx, orgID, day, l.Quantity); err != nil {
		return Pickup{}, err
	}

	if err := s.listings.MarkAccepted(ctx, listingID); err != nil {
		// The listing race was lost after the reservation; give it back.
		if rerr := s.ledger.Release(ctx, orgID, day, l.Quantity); rerr != nil {
			return Pickup{}, fmt.Errorf("pickup: release after lost accept failed: %w", rerr)
		}
		return Pickup{}, err
	}

	p := Pickup{
		ID:             uuid.NewString(),
		FoodID:         listingID,
		OrganizationID: orgID,
		Quantity:       l.Quantity,
		Status:         StatusPending,
		AcceptedDate:   day,
		AcceptedAt:     s.now(),
	}
	if err := s.store.Insert(ctx, p); err != nil {
		_ = s.listings.Reopen(ctx, listingID)
		_ = s.ledger.Release(ctx, orgID, day, l.Quantity)
		return Pickup{}, err
	}
	return p, nil
}

// Decline records the organization's rejection of a never-accepted listing.
// Capacity is untouched: nothing was reserved for a merely viewed listing.
func (s *Service) Decline(ctx context.Context, listingID, orgID string, reason DeclineReason) (DeclineEvent, error) {
	if !ValidReason(reason) {
		return DeclineEvent{}, ErrInvalidReason
	}
	if _, err := s.listings.Get(ctx, listingID); err != nil {
		return DeclineEvent{}, err
	}
	ev := DeclineEvent{
		ID:             uuid.NewString(),
		FoodID:         listingID,
		OrganizationID: orgID,
		Reason:         reason,
		DeclinedAt:     s.now(),
	}
	if err := s.store.InsertDecline(ctx, ev); err != nil {
		return DeclineEvent{}, err
	}
	return ev, nil
}

// SubmitProof attaches the opaque proof blob reference and moves the pickup
// PENDING -> PICKED. A second call, or a call out of order, fails with
// ErrNotPending.
func (s *Service) SubmitProof(ctx context.Context, pickupID, proofRef string) (Pickup, error) {
	if proofRef == "" {
		return Pickup{}, errors.New("pickup: proof reference required")
	}
	ok, err := s.store.SetPicked(ctx, pickupID, proofRef, s.now())
	if err != nil {
		return Pickup{}, err
	}
	if !ok {
		return Pickup{}, ErrNotPending
	}
	return s.store.Get(ctx, pickupID)
}

// Verify moves the pickup PICKED -> DELIVERED and issues the digital receipt
// exactly once. A retried verify on a DELIVERED pickup returns the existing
// receipt with ErrDuplicateReceipt instead of a new id.
func (s *Service) Verify(ctx context.Context, pickupID, orgName string) (Pickup, receipt.Receipt, error) {
	p, err := s.store.Get(ctx, pickupID)
	if err != nil {
		return Pickup{}, receipt.Receipt{}, err
	}
	if p.Status == StatusDelivered {
		rc, err := s.issuer.GetByPickup(ctx, pickupID)
		if err != nil {
			return p, receipt.Receipt{}, err
		}
		return p, rc, receipt.ErrDuplicateReceipt
	}
	if p.AbandonedAt != nil {
		return Pickup{}, receipt.Receipt{}, ErrAbandoned
	}
	if p.Status != StatusPicked {
		return Pickup{}, receipt.Receipt{}, ErrNotPicked
	}

	l, err := s.listings.Get(ctx, p.FoodID)
	if err != nil {
		return Pickup{}, receipt.Receipt{}, err
	}
	proofAt := s.now()
	if p.ProofUploadedAt != nil {
		proofAt = *p.ProofUploadedAt
	}
	onTime := !surplus.IsExpired(proofAt, l.ExpiryTime)

	ok, err := s.store.SetDelivered(ctx, pickupID, s.now(), onTime)
	if err != nil {
		return Pickup{}, receipt.Receipt{}, err
	}
	if !ok {
		// The CAS lost to a concurrent writer; re-read once to see which.
		cur, err := s.store.Get(ctx, pickupID)
		if err != nil {
			return Pickup{}, receipt.Receipt{}, err
		}
		if cur.Status == StatusDelivered {
			rc, err := s.issuer.GetByPickup(ctx, pickupID)
			if err != nil {
				return cur, receipt.Receipt{}, err
			}
			return cur, rc, receipt.ErrDuplicateReceipt
		}
		if cur.AbandonedAt != nil {
			return Pickup{}, receipt.Receipt{}, ErrAbandoned
		}
		return Pickup{}, receipt.Receipt{}, ErrNotPicked
	}

	rc, err := s.issuer.Issue(ctx, receipt.Input{
		PickupID:       pickupID,
		OrganizationID: p.OrganizationID,
		OrgName:        orgName,
		ProviderID:     l.ProviderID,
		FoodName:       l.FoodName,
		Quantity:       l.Quantity,
		PickupLocation: l.Location,
	})
	if err != nil && !errors.Is(err, receipt.ErrDuplicateReceipt) {
		return Pickup{}, receipt.Receipt{}, err
	}
	p, err = s.store.Get(ctx, pickupID)
	if err != nil {
		return Pickup{}, receipt.Receipt{}, err
	}
	return p, rc, nil
}

// Abandon walks back an accepted pickup before verified delivery: the
// listing reopens and the reserved capacity is released. Once a receipt
// exists the capacity stays committed forever.
func (s *Service) Abandon(ctx context.Context, pickupID string) (Pickup, error) {
	p, err := s.store.Get(ctx, pickupID)
	if err != nil {
		return Pickup{}, err
	}
	switch p.Status {
	case StatusDelivered:
		return Pickup{}, errors.New("pickup: cannot abandon a verified delivery")
	case StatusPicked:
		if !s.abandonAfterProof {
			return Pickup{}, ErrAbandonNotAllowed
		}
	}
	l, err := s.listings.Get(ctx, p.FoodID)
	if err != nil {
		return Pickup{}, err
	}
	ok, err := s.store.SetAbandoned(ctx, pickupID, p.Status, s.now())
	if err != nil {
		return Pickup{}, err
	}
	if !ok {
		return Pickup{}, ErrNotPending
	}
	if l.Status == surplus.StatusAccepted {
		_ = s.listings.Reopen(ctx, p.FoodID)
	}
	if err := s.ledger.Release(ctx, p.OrganizationID, p.AcceptedDate, p.Quantity); err != nil {
		return Pickup{}, err
	}
	return s.store.Get(ctx, pickupID)
}

// Get returns a pickup by id.
func (s *Service) Get(ctx context.Context, id string) (Pickup, error) {
	return s.store.Get(ctx, id)
}

// ListByOrganization returns an organization's pickups.
func (s *Service) ListByOrganization(ctx context.Context, orgID string) ([]Pickup, error) {
	return s.store.ListByOrganization(ctx, orgID)
}

// ListDeclines returns an organization's decline events.
func (s *Service) ListDeclines(ctx context.Context, orgID string) ([]DeclineEvent, error) {
	return s.store.ListDeclinesByOrganization(ctx, orgID)
}

// StatsByOrganization summarizes an organization's history.
func (s *Service) StatsByOrganization(ctx context.Context, orgID string) (Stats, error) {
	return s.store.StatsByOrganization(ctx, orgID)
}
