package pickup

import (
	"errors"
	"time"
)

// Status is the linear pickup lifecycle: PENDING -> PICKED -> DELIVERED.
// PICKED means proof submitted and pending verification; DELIVERED means
// verified.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPicked    Status = "PICKED"
	StatusDelivered Status = "DELIVERED"
)

// Pickup links an accepted listing to the organization retrieving it.
type Pickup struct {
	ID              string     `json:"id"`
	FoodID          string     `json:"food_id"`
	OrganizationID  string     `json:"organization_id"`
	Quantity        int        `json:"quantity"`
	Status          Status     `json:"status"`
	AcceptedDate    string     `json:"accepted_date"`
	AcceptedAt      time.Time  `json:"accepted_at"`
	ProofBlobRef    string     `json:"proof_blob_ref,omitempty"`
	ProofUploadedAt *time.Time `json:"proof_uploaded_at,omitempty"`
	DeliveredAt     *time.Time `json:"delivered_at,omitempty"`
	OnTime          bool       `json:"on_time"`
	AbandonedAt     *time.Time `json:"abandoned_at,omitempty"`
}

// DeclineReason is the fixed set an organization can pick from.
type DeclineReason string

const (
	ReasonCapacityFull DeclineReason = "Capacity Full"
	ReasonTooFar       DeclineReason = "Too Far"
	ReasonExpiringSoon DeclineReason = "Expiring Soon"
	ReasonOther        DeclineReason = "Other"
)

// ValidReason reports whether the reason belongs to the fixed set.
func ValidReason(r DeclineReason) bool {
	switch r {
	case ReasonCapacityFull, ReasonTooFar, ReasonExpiringSoon, ReasonOther:
		return true
	}
	return false
}

// DeclineEvent records an organization rejecting a listing it never
// accepted. It is an event, not a listing state, and touches no capacity.
type DeclineEvent struct {
	ID             string        `json:"id"`
	FoodID         string        `json:"food_id"`
	OrganizationID string        `json:"organization_id"`
	Reason         DeclineReason `json:"reason"`
	DeclinedAt     time.Time     `json:"declined_at"`
}

// Stats summarizes an organization's pickup history for reliability scoring
// and the dashboard counters.
type Stats struct {
	Accepted        int `json:"accepted"`
	Delivered       int `json:"delivered"`
	OnTime          int `json:"on_time"`
	Missed          int `json:"missed"`
	PlatesCollected int `json:"plates_collected"`
}

var (
	// ErrNotFound indicates an unknown pickup id.
	ErrNotFound = errors.New("pickup: not found")
	// ErrNotPending rejects proof submission on a pickup past PENDING.
	ErrNotPending = errors.New("pickup: not in pending state")
	// ErrNotPicked rejects verification before proof was submitted.
	ErrNotPicked = errors.New("pickup: no proof submitted yet")
	// ErrInvalidReason rejects a decline reason outside the fixed set.
	ErrInvalidReason = errors.New("pickup: invalid decline reason")
	// ErrAbandonNotAllowed rejects abandoning a pickup whose proof was
	// already submitted when post-proof abandonment is disabled.
	ErrAbandonNotAllowed = errors.New("pickup: cannot abandon after proof submission")
	// ErrAbandoned rejects operations on a pickup that was walked back.
	ErrAbandoned = errors.New("pickup: pickup was abandoned")
)
