package capacity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestDay(t *testing.T) {
	// 23:30 in UTC+5:30 is already the next day locally; the key stays UTC.
	loc := time.FixedZone("IST", 5*3600+1800)
	at := time.Date(2024, 3, 16, 1, 15, 0, 0, loc)
	if got := Day(at); got != "2024-03-15" {
		t.Errorf("Day = %q, want 2024-03-15", got)
	}
}

func TestLedger_DefaultsOnFirstUse(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(NewMemoryStore(), 150, 5)

	e, err := ledger.Get(ctx, "org-1", "2024-03-16")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if e.MaxCapacity != 150 || e.Remaining != 150 || e.Volunteers != 5 {
		t.Errorf("entry = %+v, want defaults 150/150/5", e)
	}
}

func TestLedger_TryReserveConcurrent(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(NewMemoryStore(), 10, 1)

	// Two simultaneous reservations of 6 against remaining 10: exactly one
	// may win, and the loser must not leave a partial decrement.
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = ledger.TryReserve(ctx, "org-1", "2024-03-16", 6)
		}(i)
	}
	wg.Wait()

	wins, losses := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrCapacityExceeded):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("wins=%d losses=%d, want exactly one of each", wins, losses)
	}

	e, err := ledger.Get(ctx, "org-1", "2024-03-16")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if e.Remaining != 4 {
		t.Errorf("remaining = %d, want 4", e.Remaining)
	}
}

func TestLedger_ReleaseCappedAtMax(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(NewMemoryStore(), 100, 2)

	if err := ledger.TryReserve(ctx, "org-1", "2024-03-16", 30); err != nil {
		t.Fatalf("TryReserve failed: %v", err)
	}
	// Release more than was reserved; remaining must not exceed max.
	if err := ledger.Release(ctx, "org-1", "2024-03-16", 500); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	e, err := ledger.Get(ctx, "org-1", "2024-03-16")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if e.Remaining != 100 {
		t.Errorf("remaining = %d, want capped at 100", e.Remaining)
	}
}

func TestLedger_UpdateLimits(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(NewMemoryStore(), 100, 2)

	if err := ledger.TryReserve(ctx, "org-1", "2024-03-16", 40); err != nil {
		t.Fatalf("TryReserve failed: %v", err)
	}

	// Raising the max keeps the 40 already committed.
	e, err := ledger.UpdateLimits(ctx, "org-1", "2024-03-16", 200, 8)
	if err != nil {
		t.Fatalf("UpdateLimits failed: %v", err)
	}
	if e.MaxCapacity != 200 || e.Remaining != 160 || e.Volunteers != 8 {
		t.Errorf("entry = %+v, want 200/160/8", e)
	}

	// Lowering below the committed amount must be rejected.
	if _, err := ledger.UpdateLimits(ctx, "org-1", "2024-03-16", 30, 8); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("err = %v, want ErrInvalidCapacity", err)
	}

	// Zero or negative limits are invalid outright.
	if _, err := ledger.UpdateLimits(ctx, "org-1", "2024-03-16", 0, 8); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("err = %v, want ErrInvalidCapacity for zero max", err)
	}
}

func TestLedger_DaysAreIndependent(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(NewMemoryStore(), 10, 1)

	if err := ledger.TryReserve(ctx, "org-1", "2024-03-16", 10); err != nil {
		t.Fatalf("TryReserve failed: %v", err)
	}
	if err := ledger.TryReserve(ctx, "org-1", "2024-03-16", 1); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("same-day err = %v, want ErrCapacityExceeded", err)
	}
	// The next day starts fresh.
	if err := ledger.TryReserve(ctx, "org-1", "2024-03-17", 10); err != nil {
		t.Errorf("next-day reserve failed: %v", err)
	}
}
