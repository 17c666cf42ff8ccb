package surplus

import (
	"fmt"
	"time"
)

// urgentWindow is the time-remaining threshold below which a listing is
// flagged urgent for ranking and badges.
const urgentWindow = time.Hour

// TimeRemaining returns how long until expiry, never negative.
// Every consumer of expiry state (lifecycle reads, urgency ranking, the
// worker sweep) derives from this one function so they cannot disagree.
func TimeRemaining(now, expiry time.Time) time.Duration {
	d := expiry.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// IsExpired reports whether the deadline has passed at the given instant.
func IsExpired(now, expiry time.Time) bool {
	return !expiry.After(now)
}

// IsUrgent reports whether the listing expires soon but has not lapsed yet.
func IsUrgent(now, expiry time.Time) bool {
	d := expiry.Sub(now)
	return d > 0 && d < urgentWindow
}

// FormatRemaining renders the countdown the way dashboards display it:
// "2h 15m", "45m", or "Expired".
func FormatRemaining(now, expiry time.Time) string {
	d := TimeRemaining(now, expiry)
	if d == 0 {
		return "Expired"
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours == 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
