// Package instrumentation provides OpenTelemetry metrics and tracing for
// flushfinder runs.
//
// # Metrics
//
//   - oauth_token_requests_total: token requests by result
//   - facilities_api_requests_total: BuildingInfo/RoomInfo calls by endpoint and status
//   - facilities_api_request_duration_seconds: latency of those calls
//   - geocode_requests_total: geocoding calls by provider and result
//   - geocode_request_duration_seconds: latency of geocoding calls
//   - buildings_processed_total: buildings by outcome (reported, skipped, failed)
//   - restrooms_found_total: restrooms counted across reported buildings
//
// # Tracing
//
// Spans cover a report run (report.Run), each building (report.building)
// and every outbound call (oauth.token, facilities.<endpoint>,
// geocode.<provider>).
//
// # Configuration
//
// DefaultConfig reads the standard OTEL_* variables plus:
//
//   - INSTRUMENTATION_ENABLED (default true)
//   - METRICS_EXPORTER: prometheus, otlp or stdout (default prometheus)
//   - TRACING_EXPORTER: otlp, stdout or none (default none)
//
// With the prometheus exporter the cmd package can expose /metrics on a
// dedicated address for the duration of a run.
package instrumentation
