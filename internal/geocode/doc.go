// Package geocode resolves free-text street addresses to coordinates.
//
// Providers are unreliable collaborators. Failures that a caller should ride
// out (transport errors, timeouts, throttling, provider outages) are reported
// as ErrUnavailable; an address the provider does not know is reported as
// ErrNoMatch. Anything else, such as a rejected API key, is returned as a
// plain error.
//
// Available providers:
//   - Nominatim: OpenStreetMap search API, throttled with a token bucket
//   - Google: Google Maps Geocoding API, requires an API key
//   - Noop: disabled geocoding, always ErrUnavailable
package geocode
