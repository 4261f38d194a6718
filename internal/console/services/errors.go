package services

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/matchdesk/internal/console/models"
)

var (
	ErrRemoteOrigin     = errors.New("record is mirrored from the API and changes only through a refresh")
	ErrNotFound         = errors.New("record not found")
	ErrNoReservation    = errors.New("notification is not attached to a reservation")
	ErrNoPendingAttempt = errors.New("no interrupted checkout verification")
	ErrNotSignedIn      = errors.New("not signed in")
)

type AuthReason string

const (
	ReasonInvalidCredentials AuthReason = "invalid_credentials"
	ReasonOffline            AuthReason = "offline"
	ReasonUnavailable        AuthReason = "unavailable"
	ReasonSessionExpired     AuthReason = "session_expired"
	ReasonInvalidResponse    AuthReason = "invalid_response"
	ReasonRejected           AuthReason = "rejected"
)

// AuthError is the only error SessionManager returns from login and
// registration. It is surfaced to the user and never retried.
type AuthError struct {
	Reason AuthReason
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err == nil {
		return "auth: " + string(e.Reason)
	}
	return fmt.Sprintf("auth: %s: %v", e.Reason, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// VerificationError reports a checkout whose verification did not succeed.
// The persisted checkout state is already cleared when it is returned.
type VerificationError struct {
	Type      models.CheckoutType
	SessionID string
	Err       error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verify %s checkout %s: %v", e.Type, e.SessionID, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// PartialFetchError records one resource that failed during a refresh while
// its siblings went ahead.
type PartialFetchError struct {
	Resource string
	Err      error
}

func (e *PartialFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Resource, e.Err)
}

func (e *PartialFetchError) Unwrap() error { return e.Err }
