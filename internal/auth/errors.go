package auth

import (
	"fmt"
)

// Error reports a failed token exchange: a non-success response from the
// token endpoint or a response without an access token.
type Error struct {
	// Status is the HTTP status code, or 0 if no response was received.
	Status int

	// Err is the underlying error
	Err error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("auth: token request failed (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("auth: token request failed: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	return e.Err
}
