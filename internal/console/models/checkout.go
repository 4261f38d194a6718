package models

import "time"

type CheckoutType string

const (
	CheckoutAddVenue   CheckoutType = "add-venue"
	CheckoutOnboarding CheckoutType = "onboarding"
	CheckoutBoost      CheckoutType = "boost-purchase"
)

func (t CheckoutType) Valid() bool {
	switch t {
	case CheckoutAddVenue, CheckoutOnboarding, CheckoutBoost:
		return true
	}
	return false
}

// CheckoutTypeFromMarker maps the return URL "type" discriminator.
func CheckoutTypeFromMarker(marker string) CheckoutType {
	switch marker {
	case "boost", string(CheckoutBoost):
		return CheckoutBoost
	case "onboarding":
		return CheckoutOnboarding
	default:
		return CheckoutAddVenue
	}
}

// CheckoutState survives the redirect to the payment provider. At most one
// exists at a time; starting a new checkout overwrites it.
type CheckoutState struct {
	Type      CheckoutType `json:"type"`
	VenueName string       `json:"venueName,omitempty"`
	ReturnTo  string       `json:"returnTo,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

func (s CheckoutState) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.CreatedAt) > ttl
}

// CheckoutAttempt is written right before a verification call and removed
// when it resolves. Finding one at startup means the previous run stopped
// mid-verification.
type CheckoutAttempt struct {
	AttemptID string       `json:"attempt_id"`
	SessionID string       `json:"session_id"`
	Type      CheckoutType `json:"type"`
	StartedAt time.Time    `json:"started_at"`
}

// CheckoutPhase is the coordinator's state machine position.
type CheckoutPhase string

const (
	PhaseNone      CheckoutPhase = "none"
	PhasePending   CheckoutPhase = "pending"
	PhaseVerifying CheckoutPhase = "verifying"
	PhaseComplete  CheckoutPhase = "complete"
	PhaseFailed    CheckoutPhase = "failed"
)
