package votes

import (
	"context"
	"errors"
	"testing"
)

func TestService_CastAndTally(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(), nil)

	if _, err := svc.Cast(ctx, "stu-1", "2024-03-16", "PERHAPS"); !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("err = %v, want ErrInvalidOption", err)
	}

	for i, cast := range []struct {
		student string
		opt     Option
	}{
		{"stu-1", OptionYes},
		{"stu-2", OptionYes},
		{"stu-3", OptionMaybe},
		{"stu-4", OptionNo},
	} {
		if _, err := svc.Cast(ctx, cast.student, "2024-03-16", cast.opt); err != nil {
			t.Fatalf("cast %d failed: %v", i, err)
		}
	}

	tally, err := svc.Tally(ctx, "2024-03-16")
	if err != nil {
		t.Fatalf("Tally failed: %v", err)
	}
	want := Tally{Yes: 2, No: 1, Maybe: 1, Total: 4}
	if tally != want {
		t.Errorf("tally = %+v, want %+v", tally, want)
	}
}

func TestService_LastWriteWins(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(), nil)

	if _, err := svc.Cast(ctx, "stu-1", "2024-03-16", OptionYes); err != nil {
		t.Fatalf("first cast failed: %v", err)
	}
	if _, err := svc.Cast(ctx, "stu-1", "2024-03-16", OptionNo); err != nil {
		t.Fatalf("second cast failed: %v", err)
	}

	tally, err := svc.Tally(ctx, "2024-03-16")
	if err != nil {
		t.Fatalf("Tally failed: %v", err)
	}
	want := Tally{Yes: 0, No: 1, Maybe: 0, Total: 1}
	if tally != want {
		t.Errorf("tally = %+v, want %+v; the earlier vote must be replaced", tally, want)
	}
}

func TestService_DaysIndependent(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore(), nil)

	if _, err := svc.Cast(ctx, "stu-1", "2024-03-16", OptionYes); err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	if _, err := svc.Cast(ctx, "stu-1", "2024-03-17", OptionNo); err != nil {
		t.Fatalf("cast failed: %v", err)
	}

	saturday, err := svc.Tally(ctx, "2024-03-16")
	if err != nil {
		t.Fatalf("Tally failed: %v", err)
	}
	if saturday.Yes != 1 || saturday.Total != 1 {
		t.Errorf("saturday tally = %+v, want one YES", saturday)
	}
	sunday, err := svc.Tally(ctx, "2024-03-17")
	if err != nil {
		t.Fatalf("Tally failed: %v", err)
	}
	if sunday.No != 1 || sunday.Total != 1 {
		t.Errorf("sunday tally = %+v, want one NO", sunday)
	}
}
