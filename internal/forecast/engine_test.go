package forecast

import (
	"errors"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func historyOf(actuals ...int) []DayRecord {
	// Monday 2024-03-04 onward so a 5-day history stays on weekdays.
	start := day("2024-03-04")
	recs := make([]DayRecord, len(actuals))
	for i, a := range actuals {
		recs[i] = DayRecord{Date: start.AddDate(0, 0, i), Actual: a}
	}
	return recs
}

func TestRun_BasicMean(t *testing.T) {
	req := Request{
		History:    historyOf(230, 235, 228, 240, 238, 242),
		TargetDate: day("2024-03-11"),
		Mode:       ModeBasic,
	}
	res, err := Run(req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	// Mean of the six actuals is 235.5, rounded to 236.
	if res.PredictedAttendance != 236 {
		t.Errorf("predicted = %d, want 236", res.PredictedAttendance)
	}
	// ceil(235.5 * 1.10) = 260.
	if res.RecommendedFood != 260 {
		t.Errorf("recommended = %d, want 260", res.RecommendedFood)
	}
	if res.Mode != ModeBasic {
		t.Errorf("mode = %q, want BASIC", res.Mode)
	}
}

func TestRun_EmptyHistory(t *testing.T) {
	_, err := Run(Request{TargetDate: day("2024-03-11"), Mode: ModeBasic})
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("err = %v, want ErrInsufficientHistory", err)
	}
}

func TestRun_WeightedFavorsRecentDays(t *testing.T) {
	// Rising attendance: the weighted mean must sit above the plain mean.
	rising := historyOf(100, 110, 120, 130, 140)
	basic, err := Run(Request{History: rising, TargetDate: day("2024-03-11"), Mode: ModeBasic})
	if err != nil {
		t.Fatalf("basic run failed: %v", err)
	}
	weighted, err := Run(Request{History: rising, TargetDate: day("2024-03-11"), Mode: ModeWeighted})
	if err != nil {
		t.Fatalf("weighted run failed: %v", err)
	}
	if weighted.PredictedAttendance <= basic.PredictedAttendance {
		t.Errorf("weighted predicted %d, want > basic %d",
			weighted.PredictedAttendance, basic.PredictedAttendance)
	}
}

func TestRun_RecommendedNeverBelowPredicted(t *testing.T) {
	// A heavy NO vote drags the blend below history; the recommendation
	// must still cover the predicted headcount.
	req := Request{
		History:    historyOf(100, 100, 100, 100, 100),
		TargetDate: day("2024-03-11"),
		Mode:       ModeBasic,
		Votes:      &VoteTally{Yes: 0, No: 50, Maybe: 0},
	}
	res, err := Run(req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.PredictedAttendance != 100 {
		t.Fatalf("predicted = %d, want 100", res.PredictedAttendance)
	}
	if res.RecommendedFood < res.PredictedAttendance {
		t.Errorf("recommended %d dropped below predicted %d",
			res.RecommendedFood, res.PredictedAttendance)
	}
}

func TestRun_VoteBlendRaisesRecommendation(t *testing.T) {
	base := Request{
		History:    historyOf(100, 100, 100, 100, 100),
		TargetDate: day("2024-03-11"),
		Mode:       ModeBasic,
	}
	without, err := Run(base)
	if err != nil {
		t.Fatalf("run without votes failed: %v", err)
	}
	base.Votes = &VoteTally{Yes: 200, Maybe: 20}
	with, err := Run(base)
	if err != nil {
		t.Fatalf("run with votes failed: %v", err)
	}
	// blended = 0.7*100 + 0.3*(200 + 0.5*20) = 133; ceil(133*1.1) = 147.
	if with.RecommendedFood != 147 {
		t.Errorf("recommended with votes = %d, want 147", with.RecommendedFood)
	}
	if with.RecommendedFood <= without.RecommendedFood {
		t.Errorf("votes did not raise recommendation: %d vs %d",
			with.RecommendedFood, without.RecommendedFood)
	}
}

func TestRun_AdvancedSpecialEventUplift(t *testing.T) {
	history := historyOf(200, 200, 200, 200, 200)
	plain, err := Run(Request{History: history, TargetDate: day("2024-03-11"), Mode: ModeAdvanced})
	if err != nil {
		t.Fatalf("plain run failed: %v", err)
	}
	event, err := Run(Request{History: history, TargetDate: day("2024-03-11"), Mode: ModeAdvanced, SpecialEvent: true})
	if err != nil {
		t.Fatalf("event run failed: %v", err)
	}
	// 200 * 1.25 = 250.
	if event.PredictedAttendance != 250 {
		t.Errorf("event predicted = %d, want 250", event.PredictedAttendance)
	}
	if event.PredictedAttendance <= plain.PredictedAttendance {
		t.Errorf("uplift did not raise prediction: %d vs %d",
			event.PredictedAttendance, plain.PredictedAttendance)
	}
}

func TestRun_AdvancedWeekendRatio(t *testing.T) {
	// Mon-Sun window: weekdays at 200, the weekend at 100, so the ratio for
	// a Saturday target is 0.5.
	history := historyOf(200, 200, 200, 200, 200, 100, 100)
	res, err := Run(Request{History: history, TargetDate: day("2024-03-16"), Mode: ModeAdvanced})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	weekday, err := Run(Request{History: history, TargetDate: day("2024-03-13"), Mode: ModeAdvanced})
	if err != nil {
		t.Fatalf("weekday run failed: %v", err)
	}
	if res.PredictedAttendance >= weekday.PredictedAttendance {
		t.Errorf("weekend predicted %d, want below weekday %d",
			res.PredictedAttendance, weekday.PredictedAttendance)
	}
}

func TestRun_AdvancedConfidence(t *testing.T) {
	cases := []struct {
		name    string
		actuals []int
		want    Confidence
	}{
		{"seven stable days", []int{230, 232, 231, 229, 230, 233, 231}, ConfidenceHigh},
		{"five moderate days", []int{200, 220, 190, 210, 205}, ConfidenceMedium},
		{"two days", []int{200, 210}, ConfidenceLow},
		{"seven wild days", []int{50, 400, 120, 300, 80, 350, 60}, ConfidenceLow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Run(Request{History: historyOf(tc.actuals...), TargetDate: day("2024-03-13"), Mode: ModeAdvanced})
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if res.Confidence != tc.want {
				t.Errorf("confidence = %q, want %q", res.Confidence, tc.want)
			}
		})
	}
}

func TestRun_LogicStringDeterministic(t *testing.T) {
	req := Request{
		History:      historyOf(230, 235, 228, 240, 238, 242, 236),
		TargetDate:   day("2024-03-16"),
		Mode:         ModeAdvanced,
		SpecialEvent: true,
		Votes:        &VoteTally{Yes: 150, No: 10, Maybe: 30},
	}
	first, err := Run(req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Run(req)
		if err != nil {
			t.Fatalf("repeat run failed: %v", err)
		}
		if again.LogicUsed != first.LogicUsed {
			t.Fatalf("logic string differed on run %d:\n%s\nvs\n%s", i, again.LogicUsed, first.LogicUsed)
		}
		if again.RecommendedFood != first.RecommendedFood {
			t.Fatalf("recommended differed on run %d: %d vs %d", i, again.RecommendedFood, first.RecommendedFood)
		}
	}
	if first.LogicUsed == "" {
		t.Error("logic string empty")
	}
}
