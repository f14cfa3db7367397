package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrEndpoint = "endpoint"
	attrStatus   = "status"
	attrResult   = "result"
	attrProvider = "provider"
)

// Metrics records run metrics. The zero value and a nil *Metrics are both
// valid and record nothing.
type Metrics struct {
	tokenRequestsTotal metric.Int64Counter

	apiRequestsTotal   metric.Int64Counter
	apiRequestDuration metric.Float64Histogram

	geocodeRequestsTotal   metric.Int64Counter
	geocodeRequestDuration metric.Float64Histogram

	buildingsProcessedTotal metric.Int64Counter
	restroomsFoundTotal     metric.Int64Counter
}

// NewMetrics creates all instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.tokenRequestsTotal, err = meter.Int64Counter(
		"oauth_token_requests_total",
		metric.WithDescription("Total number of client-credentials token requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_token_requests_total counter: %w", err)
	}

	m.apiRequestsTotal, err = meter.Int64Counter(
		"facilities_api_requests_total",
		metric.WithDescription("Total number of facilities API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create facilities_api_requests_total counter: %w", err)
	}

	m.apiRequestDuration, err = meter.Float64Histogram(
		"facilities_api_request_duration_seconds",
		metric.WithDescription("Facilities API request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create facilities_api_request_duration_seconds histogram: %w", err)
	}

	m.geocodeRequestsTotal, err = meter.Int64Counter(
		"geocode_requests_total",
		metric.WithDescription("Total number of geocoding requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocode_requests_total counter: %w", err)
	}

	m.geocodeRequestDuration, err = meter.Float64Histogram(
		"geocode_request_duration_seconds",
		metric.WithDescription("Geocoding request duration in seconds, including throttling"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocode_request_duration_seconds histogram: %w", err)
	}

	m.buildingsProcessedTotal, err = meter.Int64Counter(
		"buildings_processed_total",
		metric.WithDescription("Total number of buildings processed by outcome"),
		metric.WithUnit("{building}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create buildings_processed_total counter: %w", err)
	}

	m.restroomsFoundTotal, err = meter.Int64Counter(
		"restrooms_found_total",
		metric.WithDescription("Total number of restrooms found in reported buildings"),
		metric.WithUnit("{room}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create restrooms_found_total counter: %w", err)
	}

	return m, nil
}

// RecordTokenRequest records a token request. result is StatusSuccess or StatusError.
func (m *Metrics) RecordTokenRequest(ctx context.Context, result string) {
	if m == nil || m.tokenRequestsTotal == nil {
		return
	}
	m.tokenRequestsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordAPIRequest records a facilities API call. statusCode is 0 when no
// response was received.
func (m *Metrics) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if m == nil || m.apiRequestsTotal == nil || m.apiRequestDuration == nil {
		return
	}

	status := StatusError
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	attrs := metric.WithAttributes(
		attribute.String(attrEndpoint, endpoint),
		attribute.String(attrStatus, status),
	)

	m.apiRequestsTotal.Add(ctx, 1, attrs)
	m.apiRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordGeocode records a geocoding call. result is one of GeocodeFound,
// GeocodeNoMatch, GeocodeUnavailable or StatusError.
func (m *Metrics) RecordGeocode(ctx context.Context, provider, result string, duration time.Duration) {
	if m == nil || m.geocodeRequestsTotal == nil || m.geocodeRequestDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrProvider, provider),
		attribute.String(attrResult, result),
	)

	m.geocodeRequestsTotal.Add(ctx, 1, attrs)
	m.geocodeRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordBuilding records the outcome for one building.
func (m *Metrics) RecordBuilding(ctx context.Context, outcome string) {
	if m == nil || m.buildingsProcessedTotal == nil {
		return
	}
	m.buildingsProcessedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, outcome)))
}

// AddRestrooms adds n to the restroom counter.
func (m *Metrics) AddRestrooms(ctx context.Context, n int) {
	if m == nil || m.restroomsFoundTotal == nil || n <= 0 {
		return
	}
	m.restroomsFoundTotal.Add(ctx, int64(n))
}
