package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// instrumentationName scopes the tracer and meter of this binary.
const instrumentationName = "github.com/fluxion-ml/fluxionctl"

// Providers bundles the logger, tracer, and meter handed to application
// components, plus the shutdown hooks that flush exporters.
type Providers struct {
	Logger *slog.Logger
	Tracer trace.Tracer
	Meter  metric.Meter

	shutdowns []func(context.Context) error
	timeout   time.Duration
}

// Init builds providers from cfg. Without an OTLP endpoint the tracer and
// meter are no-op; logging always works.
func Init(cfg Config) (Providers, error) {
	providers := Providers{
		Logger:  newLogger(cfg),
		timeout: time.Duration(cfg.ShutdownTimeoutSec) * time.Second,
	}

	if cfg.OTLPEndpoint == "" {
		providers.Tracer = tracenoop.NewTracerProvider().Tracer(instrumentationName)
		providers.Meter = metricnoop.NewMeterProvider().Meter(instrumentationName)

		return providers, nil
	}

	res, err := newResource(cfg)
	if err != nil {
		return Providers{}, err
	}

	ctx := context.Background()

	traceOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithHeaders(cfg.OTLPHeaders),
	}
	metricOpts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithHeaders(cfg.OTLPHeaders),
	}

	if cfg.OTLPInsecure {
		traceOpts = append(traceOpts, otlptracegrpc.WithInsecure())
		metricOpts = append(metricOpts, otlpmetricgrpc.WithInsecure())
	}

	traceExporter, err := otlptracegrpc.New(ctx, traceOpts...)
	if err != nil {
		return Providers{}, fmt.Errorf("create trace exporter: %w", err)
	}

	metricExporter, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		return Providers{}, fmt.Errorf("create metric exporter: %w", err)
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter)),
		sdkmetric.WithResource(res),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetMeterProvider(meterProvider)

	providers.Tracer = tracerProvider.Tracer(instrumentationName)
	providers.Meter = meterProvider.Meter(instrumentationName)
	providers.shutdowns = append(providers.shutdowns, tracerProvider.Shutdown, meterProvider.Shutdown)

	return providers, nil
}

// Shutdown flushes and closes all exporters, bounded by the configured
// shutdown timeout.
func (p Providers) Shutdown(ctx context.Context) error {
	if len(p.shutdowns) == 0 {
		return nil
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	var firstErr error

	for _, shutdown := range p.shutdowns {
		err := shutdown(ctx)
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// ParseOTLPHeaders parses "key1=value1,key2=value2" into a header map.
// Malformed pairs are skipped.
func ParseOTLPHeaders(raw string) map[string]string {
	if raw == "" {
		return nil
	}

	headers := make(map[string]string)

	for _, pair := range strings.Split(raw, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found || key == "" {
			continue
		}

		headers[key] = value
	}

	if len(headers) == 0 {
		return nil
	}

	return headers
}

func newLogger(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var handler slog.Handler
	if cfg.LogJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler).With("mode", string(cfg.Mode))
}

func newResource(cfg Config) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}

	return res, nil
}
