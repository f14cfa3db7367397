package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// ProviderGoogle is the metric and log label for the Google Geocoding API.
const ProviderGoogle = "google"

// Google geocodes through the Google Maps Geocoding API.
type Google struct {
	base
	endpoint string
	apiKey   string
}

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location Location `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// NewGoogle creates a Google geocoder. endpoint is the full JSON endpoint,
// e.g. https://maps.googleapis.com/maps/api/geocode/json.
func NewGoogle(endpoint, apiKey string, opts ...Option) *Google {
	return &Google{
		base:     newBase(ProviderGoogle, opts),
		endpoint: endpoint,
		apiKey:   apiKey,
	}
}

// Geocode implements Geocoder.
func (g *Google) Geocode(ctx context.Context, address string) (Location, error) {
	return g.observe(ctx, address, func(ctx context.Context) (Location, error) {
		u, err := url.Parse(g.endpoint)
		if err != nil {
			return Location{}, fmt.Errorf("%s: invalid endpoint: %w", ProviderGoogle, err)
		}
		q := u.Query()
		q.Set("address", address)
		q.Set("key", g.apiKey)
		u.RawQuery = q.Encode()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return Location{}, fmt.Errorf("%s: failed to build request: %w", ProviderGoogle, err)
		}
		req.Header.Set("Accept", "application/json")

		var resp googleResponse
		if err := g.getJSON(ctx, req, &resp); err != nil {
			return Location{}, err
		}

		switch resp.Status {
		case "OK":
		case "ZERO_RESULTS":
			return Location{}, fmt.Errorf("%s: %q: %w", ProviderGoogle, address, ErrNoMatch)
		case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT", "UNKNOWN_ERROR":
			return Location{}, fmt.Errorf("%s: %w: %s", ProviderGoogle, ErrUnavailable, resp.Status)
		default:
			return Location{}, fmt.Errorf("%s: %s: %s", ProviderGoogle, resp.Status, resp.ErrorMessage)
		}

		if len(resp.Results) == 0 {
			return Location{}, fmt.Errorf("%s: %q: %w", ProviderGoogle, address, ErrNoMatch)
		}
		return resp.Results[0].Geometry.Location, nil
	})
}
