package receipt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestIssuer(at time.Time) *Issuer {
	i := NewIssuer(NewMemoryStore())
	i.now = func() time.Time { return at }
	return i
}

func TestShortCode(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"GreenHope", "GRE"},
		{"akshaya patra", "AKS"},
		{"Al-Noor Trust", "ALN"},
		{"Om", "OM"},
		{"42", "ORG"},
		{"", "ORG"},
	}
	for _, tc := range cases {
		if got := ShortCode(tc.name); got != tc.want {
			t.Errorf("ShortCode(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestIssuer_IDFormat(t *testing.T) {
	ctx := context.Background()
	issuer := newTestIssuer(time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC))

	var last Receipt
	for i := 1; i <= 3; i++ {
		rc, err := issuer.Issue(ctx, Input{
			PickupID:       fmt.Sprintf("pickup-%d", i),
			OrganizationID: "org-1",
			OrgName:        "GreenHope",
			ProviderID:     "prov-1",
			FoodName:       "Rice",
			Quantity:       40,
		})
		if err != nil {
			t.Fatalf("Issue %d failed: %v", i, err)
		}
		last = rc
	}
	if last.ID != "GRE-202403-0003" {
		t.Errorf("third id = %q, want GRE-202403-0003", last.ID)
	}
	if last.Status != StatusVerified {
		t.Errorf("status = %q, want VERIFIED", last.Status)
	}
}

func TestIssuer_SequencesScopedPerOrgAndMonth(t *testing.T) {
	ctx := context.Background()
	issuer := newTestIssuer(time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC))

	first, err := issuer.Issue(ctx, Input{PickupID: "p1", OrganizationID: "org-1", OrgName: "GreenHope"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	other, err := issuer.Issue(ctx, Input{PickupID: "p2", OrganizationID: "org-2", OrgName: "Helping Hands"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if first.ID != "GRE-202403-0001" || other.ID != "HEL-202403-0001" {
		t.Errorf("ids = %q, %q; sequences must not share across orgs", first.ID, other.ID)
	}

	// A new month restarts the counter.
	issuer.now = func() time.Time { return time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC) }
	april, err := issuer.Issue(ctx, Input{PickupID: "p3", OrganizationID: "org-1", OrgName: "GreenHope"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if april.ID != "GRE-202404-0001" {
		t.Errorf("april id = %q, want GRE-202404-0001", april.ID)
	}
}

func TestIssuer_DuplicateGuard(t *testing.T) {
	ctx := context.Background()
	issuer := newTestIssuer(time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC))

	first, err := issuer.Issue(ctx, Input{PickupID: "p1", OrganizationID: "org-1", OrgName: "GreenHope"})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	again, err := issuer.Issue(ctx, Input{PickupID: "p1", OrganizationID: "org-1", OrgName: "GreenHope"})
	if !errors.Is(err, ErrDuplicateReceipt) {
		t.Fatalf("err = %v, want ErrDuplicateReceipt", err)
	}
	if again.ID != first.ID {
		t.Errorf("duplicate returned %q, want the original %q", again.ID, first.ID)
	}
}

func TestIssuer_ConcurrentUniqueIDs(t *testing.T) {
	ctx := context.Background()
	issuer := newTestIssuer(time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC))

	const n = 20
	var wg sync.WaitGroup
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rc, err := issuer.Issue(ctx, Input{
				PickupID:       fmt.Sprintf("pickup-%d", i),
				OrganizationID: "org-1",
				OrgName:        "GreenHope",
			})
			if err != nil {
				t.Errorf("Issue %d failed: %v", i, err)
				return
			}
			ids[i] = rc.ID
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for _, id := range ids {
		if id == "" {
			continue
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Errorf("unique ids = %d, want %d", len(seen), n)
	}
}
