package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricServerStarts   = "fluxionctl.server.starts.total"
	metricServerRestarts = "fluxionctl.server.restarts.total"
	metricStartDuration  = "fluxionctl.server.start.duration.seconds"
	metricStopDuration   = "fluxionctl.server.stop.duration.seconds"
	metricServerRunning  = "fluxionctl.server.running"

	attrStatus   = "status"
	statusOK     = "ok"
	statusFailed = "error"
)

// LifecycleMetrics holds the OTel instruments for server lifecycle events.
type LifecycleMetrics struct {
	starts        metric.Int64Counter
	restarts      metric.Int64Counter
	startDuration metric.Float64Histogram
	stopDuration  metric.Float64Histogram
	running       metric.Int64UpDownCounter
}

// NewLifecycleMetrics creates lifecycle instruments from the given meter.
func NewLifecycleMetrics(mt metric.Meter) (*LifecycleMetrics, error) {
	b := newMetricBuilder(mt)

	lm := &LifecycleMetrics{
		starts:        b.counter(metricServerStarts, "Total number of analysis server starts", "{start}"),
		restarts:      b.counter(metricServerRestarts, "Total number of analysis server restarts", "{restart}"),
		startDuration: b.durationHistogram(metricStartDuration, "Server start duration in seconds"),
		stopDuration:  b.durationHistogram(metricStopDuration, "Server stop duration in seconds"),
		running:       b.upDownCounter(metricServerRunning, "Number of running analysis servers", "{server}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return lm, nil
}

// ObserveStart records one start attempt with its duration and outcome.
func (m *LifecycleMetrics) ObserveStart(ctx context.Context, elapsed time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String(attrStatus, statusLabel(err)))

	m.starts.Add(ctx, 1, attrs)
	m.startDuration.Record(ctx, elapsed.Seconds(), attrs)

	if err == nil {
		m.running.Add(ctx, 1)
	}
}

// ObserveStop records one stop with its duration and outcome. wasRunning
// distinguishes a real shutdown from a no-op stop of an idle connection.
func (m *LifecycleMetrics) ObserveStop(ctx context.Context, elapsed time.Duration, wasRunning bool, err error) {
	attrs := metric.WithAttributes(attribute.String(attrStatus, statusLabel(err)))

	m.stopDuration.Record(ctx, elapsed.Seconds(), attrs)

	if wasRunning {
		m.running.Add(ctx, -1)
	}
}

// ObserveRestart records one completed restart cycle.
func (m *LifecycleMetrics) ObserveRestart(ctx context.Context) {
	m.restarts.Add(ctx, 1)
}

func statusLabel(err error) string {
	if err != nil {
		return statusFailed
	}

	return statusOK
}
