// Package server exposes process telemetry and the review API over HTTP.
//
// MetricsServer serves the Prometheus registry populated by the
// instrumentation provider on /metrics, next to liveness and readiness
// probes:
//   - /metrics: Prometheus exposition format
//   - /healthz: liveness, always ok while the process serves
//   - /readyz: readiness, ok while a run is active and not shutting down
//   - /healthz/detailed: status and uptime
//
// The metrics server is optional; the CLI starts it only when --metrics-addr
// is set.
//
// APIServer serves the seed database written by the report command:
//   - GET /building: every building, newest id first
//   - GET /rooms?brn=: the restrooms of one building
//   - GET /rooms/{id}/summary: review count, average stars, latest review
//   - GET /reviews/{roomId}: the reviews of one room, newest first
//   - POST /reviews: add a review of 1 to 5 stars
//
// Responses carry open CORS headers for the browser front end.
package server
