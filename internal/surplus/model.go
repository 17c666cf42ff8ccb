package surplus

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a listing.
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusAccepted  Status = "ACCEPTED"
	StatusExpired   Status = "EXPIRED"
)

// Listing is a provider's offer of surplus cooked food.
type Listing struct {
	ID         string    `json:"id"`
	ProviderID string    `json:"provider_id"`
	FoodName   string    `json:"food_name"`
	Quantity   int       `json:"quantity"`
	Location   string    `json:"location,omitempty"`
	CookedTime time.Time `json:"cooked_time"`
	ExpiryTime time.Time `json:"expiry_time"`
	Status     Status    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

var (
	// ErrInvalidQuantity rejects listings with quantity <= 0.
	ErrInvalidQuantity = errors.New("surplus: quantity must be positive")
	// ErrInvalidExpiryWindow rejects listings with expiry_hours <= 0.
	ErrInvalidExpiryWindow = errors.New("surplus: expiry window must be positive")
	// ErrNotFound indicates an unknown listing id.
	ErrNotFound = errors.New("surplus: listing not found")
	// ErrAlreadyAccepted indicates another acceptance won the race.
	ErrAlreadyAccepted = errors.New("surplus: listing already accepted")
	// ErrExpired indicates the listing lapsed before the transition.
	ErrExpired = errors.New("surplus: listing expired")
)
