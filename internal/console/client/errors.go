package client

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable matches every failure that means "the service could not
	// be reached": transport errors, timeouts and gateway-level 5xx.
	ErrUnavailable = errors.New("remote service unavailable")
	// ErrUnauthorized matches 401/403 responses.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidResponse matches bodies that cannot be decoded or lack required fields.
	ErrInvalidResponse = errors.New("invalid response")
)

// TransportError wraps a failure below HTTP: DNS, connection refused,
// timeout, cancelled context.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrUnavailable }

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrUnavailable:
		return e.StatusCode == http.StatusBadGateway ||
			e.StatusCode == http.StatusServiceUnavailable ||
			e.StatusCode == http.StatusGatewayTimeout
	}
	return false
}

func invalidResponse(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrInvalidResponse, err)
}
