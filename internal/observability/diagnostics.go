package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
)

// DiagnosticsServer exposes health, readiness, and Prometheus metrics
// endpoints over HTTP for operational monitoring of the supervisor.
type DiagnosticsServer struct {
	server   *http.Server
	listener net.Listener
	provider interface {
		Shutdown(ctx context.Context) error
	}
}

// NewDiagnosticsServer starts an HTTP server at addr with /healthz, /readyz,
// and /metrics endpoints. Readiness is determined by the given checks.
// The returned LifecycleMetrics are backed by the Prometheus registry the
// /metrics endpoint scrapes.
func NewDiagnosticsServer(addr string, checks ...ReadyCheck) (*DiagnosticsServer, *LifecycleMetrics, error) {
	mux := http.NewServeMux()

	mux.Handle("/healthz", HealthHandler())
	mux.Handle("/readyz", ReadyHandler(checks...))

	metricsHandler, provider, err := PrometheusHandler()
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus handler: %w", err)
	}

	mux.Handle("/metrics", metricsHandler)

	metrics, err := NewLifecycleMetrics(provider.Meter(instrumentationName))
	if err != nil {
		return nil, nil, fmt.Errorf("register lifecycle metrics: %w", err)
	}

	var lc net.ListenConfig

	listener, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: mux}

	go func() {
		serveErr := srv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Warn("diagnostics server stopped", "error", serveErr)
		}
	}()

	return &DiagnosticsServer{server: srv, listener: listener, provider: provider}, metrics, nil
}

// Addr returns the address the server is listening on.
func (d *DiagnosticsServer) Addr() string {
	return d.listener.Addr().String()
}

// Close gracefully shuts down the diagnostics server and its meter provider.
func (d *DiagnosticsServer) Close() error {
	err := d.server.Shutdown(context.Background())
	if err != nil {
		return fmt.Errorf("shutdown diagnostics server: %w", err)
	}

	if d.provider != nil {
		err = d.provider.Shutdown(context.Background())
		if err != nil {
			return fmt.Errorf("shutdown meter provider: %w", err)
		}
	}

	return nil
}
