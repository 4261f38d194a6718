// Package models defines the console's domain types: the authenticated
// session, remote availability, the cached venue entities and the
// persisted checkout records.
package models

import (
	"errors"
	"strings"
)

// OnboardingStep is the position of a user in the first-run flow.
type OnboardingStep string

const (
	OnboardingRestaurant OnboardingStep = "restaurant"
	OnboardingBilling    OnboardingStep = "billing"
	OnboardingComplete   OnboardingStep = "complete"
)

var ErrInvalidUser = errors.New("user payload is missing required fields")

// User is the account payload returned by /auth/login, /auth/register and /users/me.
type User struct {
	ID                 string         `json:"id"`
	Email              string         `json:"email"`
	Name               string         `json:"name"`
	Role               string         `json:"role"`
	OnboardingComplete bool           `json:"onboarding_complete"`
	OnboardingStep     OnboardingStep `json:"onboarding_step"`
}

// Validate rejects payloads that cannot back a Session.
func (u *User) Validate() error {
	if u == nil || strings.TrimSpace(u.ID) == "" || strings.TrimSpace(u.Email) == "" {
		return ErrInvalidUser
	}
	return nil
}

// Session is the single authenticated identity of a running console.
type Session struct {
	UserID             string
	Email              string
	Name               string
	Role               string
	OnboardingComplete bool
	OnboardingStep     OnboardingStep

	// Demo is set for the synthetic session granted by offline login.
	Demo bool
}

func SessionFromUser(u *User) *Session {
	step := u.OnboardingStep
	if step == "" {
		step = OnboardingRestaurant
		if u.OnboardingComplete {
			step = OnboardingComplete
		}
	}
	return &Session{
		UserID:             u.ID,
		Email:              u.Email,
		Name:               u.Name,
		Role:               u.Role,
		OnboardingComplete: u.OnboardingComplete,
		OnboardingStep:     step,
	}
}

// CompleteOnboarding marks the first-run flow as finished.
func (s *Session) CompleteOnboarding() {
	s.OnboardingComplete = true
	s.OnboardingStep = OnboardingComplete
}

// Availability is the process-wide view of the remote service.
type Availability string

const (
	AvailabilityChecking Availability = "checking"
	AvailabilityOnline   Availability = "online"
	AvailabilityOffline  Availability = "offline"
)
