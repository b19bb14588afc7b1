package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// durationBuckets covers everything from a millisecond spawn to a
// minute-long graceful shutdown of a wedged server.
var durationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// metricBuilder creates the lifecycle instrument set on one meter and
// remembers the first creation failure, so callers build every instrument
// and check a single error at the end.
type metricBuilder struct {
	meter metric.Meter
	err   error
}

func newMetricBuilder(mt metric.Meter) *metricBuilder {
	return &metricBuilder{meter: mt}
}

// counter creates an Int64Counter for event totals.
func (b *metricBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.record(name, err)

	return c
}

// durationHistogram creates a Float64Histogram in seconds with the lifecycle
// bucket layout.
func (b *metricBuilder) durationHistogram(name, desc string) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	)
	b.record(name, err)

	return h
}

// upDownCounter creates an Int64UpDownCounter for current-state gauges.
func (b *metricBuilder) upDownCounter(name, desc, unit string) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.record(name, err)

	return c
}

func (b *metricBuilder) record(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create instrument %s: %w", name, err)
	}
}
