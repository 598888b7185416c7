package api

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnauthorized is returned when the service rejects the API token.
var ErrUnauthorized = errors.New("unauthorized: check your API token")

// ErrNotFound is returned by REST reads for unknown ids.
var ErrNotFound = errors.New("not found")

// TransportError is a network failure, an unexpected status or a response
// that could not be decoded.
type TransportError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RateLimitError means the service refused the request for now. RetryAfter
// is the delay the service asked for.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

// CommandError is a per-command rejection reported in sync_status.
type CommandError struct {
	UUID     string
	Message  string
	Code     int
	HTTPCode int
}

func (e *CommandError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("command %s rejected: %s (code %d)", e.UUID, e.Message, e.Code)
	}
	return fmt.Sprintf("command %s rejected: %s", e.UUID, e.Message)
}

// Unauthorized reports whether the rejection was an authorization failure.
func (e *CommandError) Unauthorized() bool {
	return e.HTTPCode == 401 || e.HTTPCode == 403
}
