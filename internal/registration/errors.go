package registration

import (
	"errors"
	"fmt"
)

var (
	// ErrEmailTaken is returned when the backend rejects registration
	// because an account already exists for the email.
	ErrEmailTaken = errors.New("registration: email already registered")

	// ErrRejected is returned when the backend refuses the request
	// (malformed payload, policy rejection).
	ErrRejected = errors.New("registration: request rejected")

	// ErrUnauthorized is returned when the credential exchange fails
	// authentication.
	ErrUnauthorized = errors.New("registration: invalid credentials")

	// ErrUnavailable is returned for transport failures and backend 5xx
	// responses. Retryable by calling Advance again.
	ErrUnavailable = errors.New("registration: backend unavailable")
)

// ClientError wraps a backend failure with the HTTP context needed for
// logging and retry decisions.
type ClientError struct {
	Op         string // "register" or "exchange"
	StatusCode int    // 0 for transport failures
	Message    string // backend-provided message, if any
	Err        error  // sentinel from the taxonomy above
}

func (e *ClientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}
