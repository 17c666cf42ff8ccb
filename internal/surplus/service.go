package surplus

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Store persists listings. Both the Postgres repository and the in-memory
// store satisfy it; UpdateStatus must be an atomic compare-and-swap.
type Store interface {
	Insert(ctx context.Context, l Listing) error
	Get(ctx context.Context, id string) (Listing, error)
	ListByStatus(ctx context.Context, status Status) ([]Listing, error)
	ListByProvider(ctx context.Context, providerID string) ([]Listing, error)
	// UpdateStatus transitions id from one status to another and reports
	// whether the swap happened. A false return means another writer got
	// there first or the listing was not in the expected state.
	UpdateStatus(ctx context.Context, id string, from, to Status) (bool, error)
}

// Service owns the listing lifecycle. Expiry is derived lazily on read:
// the first reader to observe a lapsed AVAILABLE listing persists EXPIRED.
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a listing service.
func NewService(store Store) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Create validates and stores a new AVAILABLE listing. The expiry instant is
// fixed here, from the submission time plus the caller-chosen buffer, and is
// never recomputed afterwards.
func (s *Service) Create(ctx context.Context, providerID, foodName string, quantity int, location string, expiryHours int) (Listing, error) {
	if quantity <= 0 {
		return Listing{}, ErrInvalidQuantity
	}
	if expiryHours <= 0 {
		return Listing{}, ErrInvalidExpiryWindow
	}
	cooked := s.now()
	l := Listing{
		ID:         uuid.NewString(),
		ProviderID: providerID,
		FoodName:   foodName,
		Quantity:   quantity,
		Location:   location,
		CookedTime: cooked,
		ExpiryTime: cooked.Add(time.Duration(expiryHours) * time.Hour),
		Status:     StatusAvailable,
		CreatedAt:  cooked,
	}
	if err := s.store.Insert(ctx, l); err != nil {
		return Listing{}, err
	}
	return l, nil
}

// Get returns a listing with lazy expiry applied: a lapsed AVAILABLE listing
// is reported (and persisted) as EXPIRED even if no transition call was made.
func (s *Service) Get(ctx context.Context, id string) (Listing, error) {
	l, err := s.store.Get(ctx, id)
	if err != nil {
		return Listing{}, err
	}
	return s.applyExpiry(ctx, l)
}

// ListAvailable returns AVAILABLE listings, filtering out those that lapsed
// since their last write.
func (s *Service) ListAvailable(ctx context.Context) ([]Listing, error) {
	listings, err := s.store.ListByStatus(ctx, StatusAvailable)
	if err != nil {
		return nil, err
	}
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		l, err := s.applyExpiry(ctx, l)
		if err != nil {
			return nil, err
		}
		if l.Status == StatusAvailable {
			out = append(out, l)
		}
	}
	return out, nil
}

// ListByProvider returns a provider's own listings, expiry applied.
func (s *Service) ListByProvider(ctx context.Context, providerID string) ([]Listing, error) {
	listings, err := s.store.ListByProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	for i, l := range listings {
		listings[i], err = s.applyExpiry(ctx, l)
		if err != nil {
			return nil, err
		}
	}
	return listings, nil
}

// MarkAccepted is the only AVAILABLE -> ACCEPTED transition. It is a
// compare-and-swap: a false-y race loser gets ErrAlreadyAccepted, or
// ErrExpired when the lazy-expiry check fires first.
func (s *Service) MarkAccepted(ctx context.Context, id string) error {
	l, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	switch l.Status {
	case StatusExpired:
		return ErrExpired
	case StatusAccepted:
		return ErrAlreadyAccepted
	}
	ok, err := s.store.UpdateStatus(ctx, id, StatusAvailable, StatusAccepted)
	if err != nil {
		return err
	}
	if !ok {
		// Lost the race; report what actually happened.
		cur, err := s.store.Get(ctx, id)
		if err != nil {
			return err
		}
		if cur.Status == StatusExpired || IsExpired(s.now(), cur.ExpiryTime) {
			return ErrExpired
		}
		return ErrAlreadyAccepted
	}
	return nil
}

// Reopen reverts an ACCEPTED listing to AVAILABLE when its pickup is
// abandoned before verified delivery.
func (s *Service) Reopen(ctx context.Context, id string) error {
	ok, err := s.store.UpdateStatus(ctx, id, StatusAccepted, StatusAvailable)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("surplus: listing not in accepted state")
	}
	return nil
}

// ExpireLapsed persists EXPIRED for every lapsed AVAILABLE listing and
// returns how many it transitioned. The worker runs this periodically as an
// optimization; reads are already correct without it.
func (s *Service) ExpireLapsed(ctx context.Context) (int, error) {
	listings, err := s.store.ListByStatus(ctx, StatusAvailable)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, l := range listings {
		if !IsExpired(s.now(), l.ExpiryTime) {
			continue
		}
		ok, err := s.store.UpdateStatus(ctx, l.ID, StatusAvailable, StatusExpired)
		if err != nil {
			return expired, err
		}
		if ok {
			expired++
		}
	}
	return expired, nil
}

func (s *Service) applyExpiry(ctx context.Context, l Listing) (Listing, error) {
	if l.Status != StatusAvailable || !IsExpired(s.now(), l.ExpiryTime) {
		return l, nil
	}
	// First writer to observe the lapse persists it. A lost swap just means
	// someone else already did, or an acceptance slipped in before expiry was
	// recorded; re-read for the authoritative state.
	ok, err := s.store.UpdateStatus(ctx, l.ID, StatusAvailable, StatusExpired)
	if err != nil {
		return Listing{}, err
	}
	if !ok {
		return s.store.Get(ctx, l.ID)
	}
	l.Status = StatusExpired
	return l, nil
}
