// Package forecast predicts attendance and recommended food quantity from
// historical attendance and optional same-day vote tallies. It is a pure
// computation: no stores, no clocks, no side effects. The logic description
// it returns is byte-for-byte reproducible for identical inputs.
package forecast

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Mode selects the forecasting strategy.
type Mode string

const (
	ModeBasic    Mode = "BASIC"
	ModeWeighted Mode = "WEIGHTED"
	ModeAdvanced Mode = "ADVANCED"
)

// Confidence rates how much to trust the prediction.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// Defaults for tunables left zero in the request.
const (
	DefaultSafetyMargin = 1.10
	DefaultEventUplift  = 1.25

	voteBlendWeight = 0.30
	highVariance    = 0.15
	mediumVariance  = 0.30
)

// DayRecord is one closed day's actual attendance.
type DayRecord struct {
	Date   time.Time
	Actual int
}

// VoteTally is a same-day live signal: how many students said they will eat.
type VoteTally struct {
	Yes   int
	No    int
	Maybe int
}

// Total counts all votes cast.
func (t VoteTally) Total() int { return t.Yes + t.No + t.Maybe }

// Request carries everything a forecast depends on. History must be ordered
// oldest to newest; typically the last 7 completed days.
type Request struct {
	History      []DayRecord
	TargetDate   time.Time
	Mode         Mode
	SpecialEvent bool
	Votes        *VoteTally
	SafetyMargin float64 // > 1.0; DefaultSafetyMargin when zero
	EventUplift  float64 // > 1.0; DefaultEventUplift when zero
}

// Result is the forecast the planner consumes.
type Result struct {
	PredictedAttendance int        `json:"predicted_attendance"`
	RecommendedFood     int        `json:"recommended_food"`
	Confidence          Confidence `json:"confidence"`
	LogicUsed           string     `json:"logic_used"`
	Mode                Mode       `json:"mode"`
}

// ErrInsufficientHistory means the window had zero records; the caller
// surfaces a zero estimate with LOW confidence rather than dividing by zero.
var ErrInsufficientHistory = errors.New("forecast: no attendance history in window")

// Run computes the forecast for the requested mode.
func Run(req Request) (Result, error) {
	n := len(req.History)
	if n == 0 {
		return Result{}, ErrInsufficientHistory
	}
	margin := req.SafetyMargin
	if margin <= 1.0 {
		margin = DefaultSafetyMargin
	}
	uplift := req.EventUplift
	if uplift <= 1.0 {
		uplift = DefaultEventUplift
	}

	var logic strings.Builder
	var predicted float64
	confidence := ConfidenceMedium

	switch req.Mode {
	case ModeWeighted:
		predicted = weightedMean(req.History)
		fmt.Fprintf(&logic, "Weighted mode: linearly weighted mean over %d days (recent days dominate) = %.2f.", n, predicted)
	case ModeAdvanced:
		predicted = weightedMean(req.History)
		fmt.Fprintf(&logic, "Advanced mode: weighted mean %.2f over %d days", predicted, n)
		if isWeekend(req.TargetDate) {
			if ratio, ok := weekendRatio(req.History); ok {
				predicted *= ratio
				fmt.Fprintf(&logic, "; weekend/weekday ratio x%.2f applied", ratio)
			} else {
				logic.WriteString("; weekend target without weekend/weekday split in history")
			}
		}
		if req.SpecialEvent {
			predicted *= uplift
			fmt.Fprintf(&logic, "; special event uplift x%.2f", uplift)
		}
		cv := variationCoefficient(req.History)
		confidence = rate(n, cv)
		fmt.Fprintf(&logic, "; coefficient of variation %.2f -> %s confidence.", cv, confidence)
	default:
		predicted = mean(req.History)
		fmt.Fprintf(&logic, "Basic mode: arithmetic mean of %d daily actuals = %.2f.", n, predicted)
	}

	attendance := int(math.Round(predicted))

	blended := predicted
	if req.Votes != nil && req.Votes.Total() > 0 {
		expected := float64(req.Votes.Yes) + 0.5*float64(req.Votes.Maybe)
		blended = (1-voteBlendWeight)*predicted + voteBlendWeight*expected
		fmt.Fprintf(&logic, " Live votes blended (yes %d, maybe %d, no %d; weight %.2f) -> %.2f.",
			req.Votes.Yes, req.Votes.Maybe, req.Votes.No, voteBlendWeight, blended)
	}

	recommended := int(math.Ceil(blended * margin))
	if recommended < attendance {
		// Live signal can pull the blend below history, but the kitchen must
		// still cover the predicted headcount.
		recommended = attendance
	}
	fmt.Fprintf(&logic, " Predicted %d; safety margin x%.2f -> %d plates recommended.", attendance, margin, recommended)

	return Result{
		PredictedAttendance: attendance,
		RecommendedFood:     recommended,
		Confidence:          confidence,
		LogicUsed:           logic.String(),
		Mode:                req.Mode,
	}, nil
}

func mean(history []DayRecord) float64 {
	sum := 0
	for _, d := range history {
		sum += d.Actual
	}
	return float64(sum) / float64(len(history))
}

// weightedMean ramps weights 1..n toward the most recent day so the latest
// trend dominates.
func weightedMean(history []DayRecord) float64 {
	var sum, weights float64
	for i, d := range history {
		w := float64(i + 1)
		sum += w * float64(d.Actual)
		weights += w
	}
	return sum / weights
}

// weekendRatio is avg weekend attendance over avg weekday attendance within
// the window; ok is false when either side is empty.
func weekendRatio(history []DayRecord) (float64, bool) {
	var weekendSum, weekdaySum, weekendN, weekdayN float64
	for _, d := range history {
		if isWeekend(d.Date) {
			weekendSum += float64(d.Actual)
			weekendN++
		} else {
			weekdaySum += float64(d.Actual)
			weekdayN++
		}
	}
	if weekendN == 0 || weekdayN == 0 || weekdaySum == 0 {
		return 0, false
	}
	return (weekendSum / weekendN) / (weekdaySum / weekdayN), true
}

func variationCoefficient(history []DayRecord) float64 {
	m := mean(history)
	if m == 0 {
		return 0
	}
	var sq float64
	for _, d := range history {
		diff := float64(d.Actual) - m
		sq += diff * diff
	}
	return math.Sqrt(sq/float64(len(history))) / m
}

func rate(n int, cv float64) Confidence {
	switch {
	case n >= 7 && cv < highVariance:
		return ConfidenceHigh
	case n >= 4 && cv < mediumVariance:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

func isWeekend(t time.Time) bool {
	wd := t.UTC().Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
