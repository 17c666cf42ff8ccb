package pickup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"foodbridge/internal/capacity"
	"foodbridge/internal/receipt"
	"foodbridge/internal/surplus"
)

type fixture struct {
	svc      *Service
	listings *surplus.Service
	ledger   *capacity.Ledger
	issuer   *receipt.Issuer
	listSt   *surplus.MemoryStore
}

func newFixture(t *testing.T, maxCapacity int, abandonAfterProof bool) *fixture {
	t.Helper()
	listSt := surplus.NewMemoryStore()
	listings := surplus.NewService(listSt)
	ledger := capacity.NewLedger(capacity.NewMemoryStore(), maxCapacity, 2)
	issuer := receipt.NewIssuer(receipt.NewMemoryStore())
	svc := NewService(NewMemoryStore(), listings, ledger, issuer, abandonAfterProof)
	return &fixture{svc: svc, listings: listings, ledger: ledger, issuer: issuer, listSt: listSt}
}

func (f *fixture) listing(t *testing.T, quantity, expiryHours int) surplus.Listing {
	t.Helper()
	l, err := f.listings.Create(context.Background(), "prov-1", "Rice", quantity, "Mess A", expiryHours)
	if err != nil {
		t.Fatalf("create listing failed: %v", err)
	}
	return l
}

func TestService_Accept(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100, false)
	l := f.listing(t, 40, 2)

	p, err := f.svc.Accept(ctx, l.ID, "org-1")
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if p.Status != StatusPending {
		t.Errorf("status = %q, want PENDING", p.Status)
	}
	if p.Quantity != 40 {
		t.Errorf("quantity = %d, want snapshot 40", p.Quantity)
	}

	got, err := f.listings.Get(ctx, l.ID)
	if err != nil {
		t.Fatalf("listing Get failed: %v", err)
	}
	if got.Status != surplus.StatusAccepted {
		t.Errorf("listing status = %q, want ACCEPTED", got.Status)
	}

	e, err := f.ledger.Get(ctx, "org-1", p.AcceptedDate)
	if err != nil {
		t.Fatalf("ledger Get failed: %v", err)
	}
	if e.Remaining != 60 {
		t.Errorf("remaining = %d, want 60", e.Remaining)
	}
}

func TestService_AcceptRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100, false)
	l := f.listing(t, 40, 2)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	orgs := []string{"org-1", "org-2"}
	for i := range orgs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Accept(ctx, l.ID, orgs[i])
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, surplus.ErrAlreadyAccepted):
			// The loser's reservation must have been handed back.
			e, gerr := f.ledger.Get(ctx, orgs[i], capacity.Day(time.Now()))
			if gerr != nil {
				t.Fatalf("ledger Get failed: %v", gerr)
			}
			if e.Remaining != 100 {
				t.Errorf("loser remaining = %d, want 100", e.Remaining)
			}
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly one", wins)
	}
}

func TestService_AcceptExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100, false)

	lapsed := surplus.Listing{
		ID:         "lapsed-1",
		ProviderID: "prov-1",
		FoodName:   "Dal",
		Quantity:   30,
		CookedTime: time.Now().UTC().Add(-3 * time.Hour),
		ExpiryTime: time.Now().UTC().Add(-time.Hour),
		Status:     surplus.StatusAvailable,
		CreatedAt:  time.Now().UTC().Add(-3 * time.Hour),
	}
	if err := f.listSt.Insert(ctx, lapsed); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if _, err := f.svc.Accept(ctx, lapsed.ID, "org-1"); !errors.Is(err, surplus.ErrExpired) {
		t.Fatalf("err = %v, want ErrExpired", err)
	}
	// Nothing was reserved for the failed acceptance.
	e, err := f.ledger.Get(ctx, "org-1", capacity.Day(time.Now()))
	if err != nil {
		t.Fatalf("ledger Get failed: %v", err)
	}
	if e.Remaining != 100 {
		t.Errorf("remaining = %d, want untouched 100", e.Remaining)
	}
}

func TestService_AcceptCapacityExceeded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 25, false)
	l := f.listing(t, 40, 2)

	if _, err := f.svc.Accept(ctx, l.ID, "org-1"); !errors.Is(err, capacity.ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}
	// The listing stays claimable by an organization with room.
	got, err := f.listings.Get(ctx, l.ID)
	if err != nil {
		t.Fatalf("listing Get failed: %v", err)
	}
	if got.Status != surplus.StatusAvailable {
		t.Errorf("listing status = %q, want AVAILABLE", got.Status)
	}
}

func TestService_Decline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100, false)
	l := f.listing(t, 40, 2)

	if _, err := f.svc.Decline(ctx, l.ID, "org-1", "Because"); !errors.Is(err, ErrInvalidReason) {
		t.Errorf("err = %v, want ErrInvalidReason", err)
	}

	ev, err := f.svc.Decline(ctx, l.ID, "org-1", ReasonTooFar)
	if err != nil {
		t.Fatalf("Decline failed: %v", err)
	}
	if ev.Reason != ReasonTooFar {
		t.Errorf("reason = %q, want %q", ev.Reason, ReasonTooFar)
	}

	// Declining is an event: the listing and the ledger are untouched.
	got, err := f.listings.Get(ctx, l.ID)
	if err != nil {
		t.Fatalf("listing Get failed: %v", err)
	}
	if got.Status != surplus.StatusAvailable {
		t.Errorf("listing status = %q, want AVAILABLE", got.Status)
	}
	e, err := f.ledger.Get(ctx, "org-1", capacity.Day(time.Now()))
	if err != nil {
		t.Fatalf("ledger Get failed: %v", err)
	}
	if e.Remaining != 100 {
		t.Errorf("remaining = %d, want 100", e.Remaining)
	}

	declines, err := f.svc.ListDeclines(ctx, "org-1")
	if err != nil {
		t.Fatalf("ListDeclines failed: %v", err)
	}
	if len(declines) != 1 {
		t.Errorf("declines = %d, want 1", len(declines))
	}
}

func TestService_SubmitProofOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100, false)
	l := f.listing(t, 40, 2)

	p, err := f.svc.Accept(ctx, l.ID, "org-1")
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	picked, err := f.svc.SubmitProof(ctx, p.ID, "blob://proof-1")
	if err != nil {
		t.Fatalf("SubmitProof failed: %v", err)
	}
	if picked.Status != StatusPicked || picked.ProofBlobRef != "blob://proof-1" {
		t.Errorf("pickup = %+v, want PICKED with proof ref", picked)
	}

	if _, err := f.svc.SubmitProof(ctx, p.ID, "blob://proof-2"); !errors.Is(err, ErrNotPending) {
		t.Errorf("second submit err = %v, want ErrNotPending", err)
	}
}

func TestService_VerifyIssuesReceiptOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100, false)
	l := f.listing(t, 40, 2)

	p, err := f.svc.Accept(ctx, l.ID, "org-1")
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	// Verify before proof is out of order.
	if _, _, err := f.svc.Verify(ctx, p.ID, "GreenHope"); !errors.Is(err, ErrNotPicked) {
		t.Fatalf("premature verify err = %v, want ErrNotPicked", err)
	}

	if _, err := f.svc.SubmitProof(ctx, p.ID, "blob://proof-1"); err != nil {
		t.Fatalf("SubmitProof failed: %v", err)
	}

	delivered, rc, err := f.svc.Verify(ctx, p.ID, "GreenHope")
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if delivered.Status != StatusDelivered {
		t.Errorf("status = %q, want DELIVERED", delivered.Status)
	}
	if !delivered.OnTime {
		t.Error("proof before expiry should count on time")
	}
	if rc.ID == "" || rc.PickupID != p.ID {
		t.Errorf("receipt = %+v, want issued for pickup", rc)
	}

	// A retried verify returns the same receipt, flagged duplicate.
	again, rc2, err := f.svc.Verify(ctx, p.ID, "GreenHope")
	if !errors.Is(err, receipt.ErrDuplicateReceipt) {
		t.Fatalf("repeat verify err = %v, want ErrDuplicateReceipt", err)
	}
	if rc2.ID != rc.ID {
		t.Errorf("repeat receipt id = %q, want %q", rc2.ID, rc.ID)
	}
	if again.Status != StatusDelivered {
		t.Errorf("repeat status = %q, want DELIVERED", again.Status)
	}
}

func TestService_AbandonPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100, false)
	l := f.listing(t, 40, 2)

	p, err := f.svc.Accept(ctx, l.ID, "org-1")
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}

	abandoned, err := f.svc.Abandon(ctx, p.ID)
	if err != nil {
		t.Fatalf("Abandon failed: %v", err)
	}
	if abandoned.AbandonedAt == nil {
		t.Error("abandoned_at not set")
	}

	// The listing reopens and the capacity comes back.
	got, err := f.listings.Get(ctx, l.ID)
	if err != nil {
		t.Fatalf("listing Get failed: %v", err)
	}
	if got.Status != surplus.StatusAvailable {
		t.Errorf("listing status = %q, want AVAILABLE", got.Status)
	}
	e, err := f.ledger.Get(ctx, "org-1", p.AcceptedDate)
	if err != nil {
		t.Fatalf("ledger Get failed: %v", err)
	}
	if e.Remaining != 100 {
		t.Errorf("remaining = %d, want restored 100", e.Remaining)
	}
}

func TestService_AbandonAfterProof(t *testing.T) {
	ctx := context.Background()

	// Default policy: proof submitted means no going back.
	f := newFixture(t, 100, false)
	l := f.listing(t, 40, 2)
	p, err := f.svc.Accept(ctx, l.ID, "org-1")
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if _, err := f.svc.SubmitProof(ctx, p.ID, "blob://proof-1"); err != nil {
		t.Fatalf("SubmitProof failed: %v", err)
	}
	if _, err := f.svc.Abandon(ctx, p.ID); !errors.Is(err, ErrAbandonNotAllowed) {
		t.Fatalf("err = %v, want ErrAbandonNotAllowed", err)
	}

	// Relaxed policy releases the capacity.
	f = newFixture(t, 100, true)
	l = f.listing(t, 40, 2)
	p, err = f.svc.Accept(ctx, l.ID, "org-1")
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if _, err := f.svc.SubmitProof(ctx, p.ID, "blob://proof-1"); err != nil {
		t.Fatalf("SubmitProof failed: %v", err)
	}
	if _, err := f.svc.Abandon(ctx, p.ID); err != nil {
		t.Fatalf("Abandon failed: %v", err)
	}
	e, err := f.ledger.Get(ctx, "org-1", p.AcceptedDate)
	if err != nil {
		t.Fatalf("ledger Get failed: %v", err)
	}
	if e.Remaining != 100 {
		t.Errorf("remaining = %d, want restored 100", e.Remaining)
	}

	// Verifying the walked-back pickup must fail cleanly, not deliver it.
	if _, _, err := f.svc.Verify(ctx, p.ID, "GreenHope"); !errors.Is(err, ErrAbandoned) {
		t.Fatalf("verify after abandon err = %v, want ErrAbandoned", err)
	}
	got, err := f.svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Status == StatusDelivered {
		t.Error("abandoned pickup must never become DELIVERED")
	}
	if _, err := f.issuer.GetByPickup(ctx, p.ID); !errors.Is(err, receipt.ErrNotFound) {
		t.Errorf("receipt lookup err = %v, want ErrNotFound", err)
	}
}

func TestService_AbandonDelivered(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 100, false)
	l := f.listing(t, 40, 2)

	p, err := f.svc.Accept(ctx, l.ID, "org-1")
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if _, err := f.svc.SubmitProof(ctx, p.ID, "blob://proof-1"); err != nil {
		t.Fatalf("SubmitProof failed: %v", err)
	}
	if _, _, err := f.svc.Verify(ctx, p.ID, "GreenHope"); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if _, err := f.svc.Abandon(ctx, p.ID); err == nil {
		t.Fatal("abandoning a verified delivery must fail")
	}
	// Capacity stays committed once the receipt exists.
	e, err := f.ledger.Get(ctx, "org-1", p.AcceptedDate)
	if err != nil {
		t.Fatalf("ledger Get failed: %v", err)
	}
	if e.Remaining != 60 {
		t.Errorf("remaining = %d, want committed 60", e.Remaining)
	}
}

func TestService_Stats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 200, false)

	// One delivered on time, one abandoned.
	l1 := f.listing(t, 40, 2)
	p1, err := f.svc.Accept(ctx, l1.ID, "org-1")
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if _, err := f.svc.SubmitProof(ctx, p1.ID, "blob://proof-1"); err != nil {
		t.Fatalf("SubmitProof failed: %v", err)
	}
	if _, _, err := f.svc.Verify(ctx, p1.ID, "GreenHope"); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}

	l2 := f.listing(t, 25, 2)
	p2, err := f.svc.Accept(ctx, l2.ID, "org-1")
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if _, err := f.svc.Abandon(ctx, p2.ID); err != nil {
		t.Fatalf("Abandon failed: %v", err)
	}

	stats, err := f.svc.StatsByOrganization(ctx, "org-1")
	if err != nil {
		t.Fatalf("StatsByOrganization failed: %v", err)
	}
	want := Stats{Accepted: 2, Delivered: 1, OnTime: 1, Missed: 1, PlatesCollected: 40}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}
