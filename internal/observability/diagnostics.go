package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// DiagnosticsServer exposes health, readiness, and Prometheus metrics
// endpoints over HTTP for operational monitoring.
type DiagnosticsServer struct {
	server   *http.Server
	listener net.Listener
}

// NewDiagnosticsServer starts an HTTP server at addr with /healthz, /readyz,
// and /metrics endpoints, and returns the Meter its /metrics endpoint is
// wired to so callers can derive further instruments (e.g. [RunMetrics])
// from the same MeterProvider. Every endpoint is wrapped in [HTTPMiddleware]
// for tracing and access logging, and RED metrics are recorded per request.
func NewDiagnosticsServer(addr string, tracer trace.Tracer, logger *slog.Logger) (*DiagnosticsServer, metric.Meter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer("trakka.diagnostics")
	}

	provider, metricsHandler, err := NewPrometheusMeterProvider()
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus meter provider: %w", err)
	}

	meter := provider.Meter("trakka.diagnostics")

	if _, err = NewSchedulerMetrics(meter); err != nil {
		return nil, nil, fmt.Errorf("register scheduler metrics: %w", err)
	}

	red, err := NewREDMetrics(meter)
	if err != nil {
		return nil, nil, fmt.Errorf("register red metrics: %w", err)
	}

	mux := http.NewServeMux()

	mux.Handle("/healthz", HTTPMiddleware(tracer, logger, red.track("healthz", HealthHandler())))
	mux.Handle("/readyz", HTTPMiddleware(tracer, logger, red.track("readyz", ReadyHandler())))
	mux.Handle("/metrics", HTTPMiddleware(tracer, logger, red.track("metrics", metricsHandler)))

	var lc net.ListenConfig

	listener, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: mux}

	go func() {
		serveErr := srv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Warn("diagnostics server stopped", "error", serveErr)
		}
	}()

	return &DiagnosticsServer{server: srv, listener: listener}, meter, nil
}

// track wraps next so each request is recorded as a RED observation under
// the given operation name.
func (rm *REDMetrics) track(op string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		done := rm.TrackInflight(hr.Context(), op)
		defer done()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: rw}

		next.ServeHTTP(sw, hr)

		status := "ok"
		if sw.statusCode >= httpStatusServerError {
			status = statusError
		}

		rm.RecordRequest(hr.Context(), op, status, time.Since(start))
	})
}

// Addr returns the address the server is listening on.
func (d *DiagnosticsServer) Addr() string {
	return d.listener.Addr().String()
}

// Close gracefully shuts down the diagnostics server.
func (d *DiagnosticsServer) Close() error {
	err := d.server.Shutdown(context.Background())
	if err != nil {
		return fmt.Errorf("shutdown diagnostics server: %w", err)
	}

	return nil
}
