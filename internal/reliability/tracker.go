// Package reliability derives an organization's on-time score from its
// pickup history. The score is informational for matching decisions, not a
// hard gate.
package reliability

import (
	"context"
	"math"

	"foodbridge/internal/pickup"
)

// missedPenalty is subtracted from the score per missed (abandoned after
// accept) pickup.
const missedPenalty = 5.0

// Score summarizes an organization's track record on a 0-100 scale.
type Score struct {
	Score            int     `json:"score"`
	OnTimePercentage float64 `json:"on_time_percentage"`
	MissedPickups    int     `json:"missed_pickups"`
}

// Tracker reads pickup history and scores it.
type Tracker struct {
	pickups *pickup.Service
}

// NewTracker creates a tracker over the pickup service.
func NewTracker(pickups *pickup.Service) *Tracker {
	return &Tracker{pickups: pickups}
}

// Score computes the organization's reliability from its stats.
func (t *Tracker) Score(ctx context.Context, orgID string) (Score, error) {
	stats, err := t.pickups.StatsByOrganization(ctx, orgID)
	if err != nil {
		return Score{}, err
	}
	return Compute(stats), nil
}

// Compute turns raw pickup stats into a score. It is non-decreasing in the
// on-time percentage and non-increasing in missed pickups: an organization
// with no history starts at 100.
func Compute(stats pickup.Stats) Score {
	if stats.Accepted == 0 {
		return Score{Score: 100, OnTimePercentage: 0, MissedPickups: 0}
	}
	onTimePct := float64(stats.OnTime) / float64(stats.Accepted) * 100
	raw := math.Round(onTimePct) - missedPenalty*float64(stats.Missed)
	if raw < 0 {
		raw = 0
	}
	if raw > 100 {
		raw = 100
	}
	return Score{
		Score:            int(raw),
		OnTimePercentage: onTimePct,
		MissedPickups:    stats.Missed,
	}
}
