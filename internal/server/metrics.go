package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flushfinder/flushfinder/internal/instrumentation"
	"github.com/flushfinder/flushfinder/internal/logging"
)

// DefaultMetricsAddr is the default address for the metrics server.
const DefaultMetricsAddr = ":9090"

// MetricsServerConfig holds configuration for the metrics server.
type MetricsServerConfig struct {
	// Addr is the address to bind to, e.g. ":9090". Port 0 picks a free port.
	Addr string

	// InstrumentationProvider must export through Prometheus.
	InstrumentationProvider *instrumentation.Provider

	// Health backs the probe endpoints. A new checker is created when nil.
	Health *HealthChecker

	Logger logging.Logger
}

// MetricsServer serves Prometheus metrics and health probes on a dedicated port.
type MetricsServer struct {
	service
	health *HealthChecker
}

// NewMetricsServer validates config and creates a server. It does not bind.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	if config.Addr == "" {
		config.Addr = DefaultMetricsAddr
	}
	if config.InstrumentationProvider == nil {
		return nil, fmt.Errorf("instrumentation provider is required for metrics server")
	}
	if !config.InstrumentationProvider.Enabled() {
		return nil, fmt.Errorf("instrumentation provider is not enabled")
	}
	if !config.InstrumentationProvider.ServesPrometheus() {
		return nil, fmt.Errorf("metrics server requires the prometheus metrics exporter")
	}
	if config.Health == nil {
		config.Health = NewHealthChecker()
	}
	if config.Logger == nil {
		config.Logger = logging.Discard()
	}

	return &MetricsServer{
		service: service{name: "metrics server", addr: config.Addr, logger: config.Logger},
		health:  config.Health,
	}, nil
}

// Handler returns the server's routes.
func (s *MetricsServer) Handler() http.Handler {
	mux := http.NewServeMux()
	// the otel prometheus exporter registers with the default registry
	mux.Handle("/metrics", promhttp.Handler())
	s.health.RegisterHealthEndpoints(mux)
	return mux
}

// Start binds the listener and serves in the background. It returns once
// the port is bound.
func (s *MetricsServer) Start() error {
	return s.start(s.Handler())
}

// Shutdown marks the process as shutting down and stops the server.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	s.health.MarkShuttingDown()
	return s.shutdown(ctx)
}

// Addr returns the bound address once started, and the configured one before.
func (s *MetricsServer) Addr() string {
	return s.boundAddr()
}

// Health returns the server's health checker.
func (s *MetricsServer) Health() *HealthChecker {
	return s.health
}
