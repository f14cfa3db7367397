package facilities

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when a successful response does not have
// the expected shape.
var ErrMalformedResponse = errors.New("malformed facilities API response")

// FetchError reports a non-success HTTP status from a facilities endpoint.
type FetchError struct {
	// Endpoint is the resource that failed (BuildingInfo or RoomInfo)
	Endpoint string

	// Status is the HTTP status code
	Status int

	// Body is the start of the response body, for diagnostics
	Body string
}

// Error implements the error interface
func (e *FetchError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("facilities %s: unexpected status %d: %s", e.Endpoint, e.Status, e.Body)
	}
	return fmt.Sprintf("facilities %s: unexpected status %d", e.Endpoint, e.Status)
}
