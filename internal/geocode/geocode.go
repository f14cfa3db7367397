package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/flushfinder/flushfinder/internal/instrumentation"
	"github.com/flushfinder/flushfinder/internal/logging"
)

var (
	// ErrUnavailable means the provider could not answer right now.
	ErrUnavailable = errors.New("geocoding provider unavailable")

	// ErrNoMatch means the provider answered but found no location.
	ErrNoMatch = errors.New("no geocoding match")
)

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geocoder resolves an address to a Location.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (Location, error)
}

// Recoverable reports whether err is a geocoding failure that a caller may
// replace with a zero Location.
func Recoverable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrNoMatch)
}

// Option configures a provider.
type Option func(*base)

// WithHTTPClient sets the HTTP client used for provider requests.
func WithHTTPClient(c *http.Client) Option {
	return func(b *base) { b.httpClient = c }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(b *base) { b.httpClient = &http.Client{Timeout: d} }
}

// WithMetrics records requests on m.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(b *base) { b.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(b *base) { b.logger = l }
}

// base holds what every HTTP provider shares.
type base struct {
	provider   string
	httpClient *http.Client
	metrics    *instrumentation.Metrics
	logger     logging.Logger
}

func newBase(provider string, opts []Option) base {
	b := base{
		provider:   provider,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// observe wraps a single lookup with a span, a metric sample and a debug log.
func (b *base) observe(ctx context.Context, address string, lookup func(ctx context.Context) (Location, error)) (Location, error) {
	ctx, span := instrumentation.StartClientSpan(ctx, "geocode."+b.provider,
		attribute.String(instrumentation.SpanAttrProvider, b.provider),
	)
	defer span.End()

	start := time.Now()
	loc, err := lookup(ctx)
	duration := time.Since(start)

	result := resultOf(err)
	b.metrics.RecordGeocode(ctx, b.provider, result, duration)

	switch result {
	case instrumentation.GeocodeFound:
		instrumentation.SetSpanSuccess(span)
	case instrumentation.StatusError:
		instrumentation.SetSpanError(span, err)
	default:
		span.SetAttributes(attribute.String("geocode.result", result))
	}

	b.logger.Debug("geocode lookup complete",
		logging.Provider(b.provider),
		"address", address,
		logging.Status(result),
		logging.KeyDuration, duration)

	return loc, err
}

// getJSON performs a GET and decodes a 2xx JSON body into out. Transport
// failures, 429 and 5xx map to ErrUnavailable.
func (b *base) getJSON(ctx context.Context, req *http.Request, out any) error {
	resp, err := b.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s: %w: %w", b.provider, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s: %w: status %d", b.provider, ErrUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: unexpected status %d: %s", b.provider, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", b.provider, err)
	}
	return nil
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return instrumentation.GeocodeFound
	case errors.Is(err, ErrNoMatch):
		return instrumentation.GeocodeNoMatch
	case errors.Is(err, ErrUnavailable):
		return instrumentation.GeocodeUnavailable
	default:
		return instrumentation.StatusError
	}
}

// Noop is the geocoder used when geocoding is disabled.
type Noop struct{}

// Geocode always returns ErrUnavailable.
func (Noop) Geocode(context.Context, string) (Location, error) {
	return Location{}, ErrUnavailable
}
