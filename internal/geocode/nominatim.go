package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
)

// ProviderNominatim is the metric and log label for Nominatim.
const ProviderNominatim = "nominatim"

// Nominatim geocodes through an OpenStreetMap Nominatim instance.
type Nominatim struct {
	base
	baseURL   string
	userAgent string
	limiter   *rate.Limiter
}

// nominatimPlace is one jsonv2 search result. Coordinates arrive as strings.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// NewNominatim creates a Nominatim geocoder rooted at baseURL that issues at
// most requestsPerSecond requests. The public instance requires an identifying
// userAgent and allows one request per second.
func NewNominatim(baseURL, userAgent string, requestsPerSecond float64, opts ...Option) *Nominatim {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	return &Nominatim{
		base:      newBase(ProviderNominatim, opts),
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// Geocode implements Geocoder.
func (n *Nominatim) Geocode(ctx context.Context, address string) (Location, error) {
	return n.observe(ctx, address, func(ctx context.Context) (Location, error) {
		if err := n.limiter.Wait(ctx); err != nil {
			return Location{}, fmt.Errorf("%s: rate limiter: %w", ProviderNominatim, err)
		}

		q := url.Values{}
		q.Set("q", address)
		q.Set("format", "jsonv2")
		q.Set("limit", "1")

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/search?"+q.Encode(), nil)
		if err != nil {
			return Location{}, fmt.Errorf("%s: failed to build request: %w", ProviderNominatim, err)
		}
		req.Header.Set("User-Agent", n.userAgent)
		req.Header.Set("Accept", "application/json")

		var places []nominatimPlace
		if err := n.getJSON(ctx, req, &places); err != nil {
			return Location{}, err
		}
		if len(places) == 0 {
			return Location{}, fmt.Errorf("%s: %q: %w", ProviderNominatim, address, ErrNoMatch)
		}

		lat, err := strconv.ParseFloat(places[0].Lat, 64)
		if err != nil {
			return Location{}, fmt.Errorf("%s: invalid latitude %q: %w", ProviderNominatim, places[0].Lat, err)
		}
		lng, err := strconv.ParseFloat(places[0].Lon, 64)
		if err != nil {
			return Location{}, fmt.Errorf("%s: invalid longitude %q: %w", ProviderNominatim, places[0].Lon, err)
		}
		return Location{Lat: lat, Lng: lng}, nil
	})
}
