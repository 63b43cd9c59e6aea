package cache

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelTracker exposes stats collected by this package as OpenTelemetry metrics.
//
// Add calls are reported with counters, Set calls with gauges, instruments are
// created lazily on first use of a metric name.
type OTelTracker struct {
	meter metric.Meter

	mu       sync.Mutex
	counters map[string]metric.Float64Counter
	gauges   map[string]metric.Float64Gauge
}

// NewOTelTracker creates a tracker reporting metrics with meter.
func NewOTelTracker(meter metric.Meter) *OTelTracker {
	return &OTelTracker{
		meter:    meter,
		counters: make(map[string]metric.Float64Counter),
		gauges:   make(map[string]metric.Float64Gauge),
	}
}

// Add collects increment to a counter metric.
func (t *OTelTracker) Add(ctx context.Context, name string, increment float64, labelsAndValues ...string) {
	c, err := t.counter(name)
	if err != nil {
		return
	}

	c.Add(ctx, increment, metric.WithAttributes(attrs(labelsAndValues)...))
}

// Set collects absolute value of a gauge metric.
func (t *OTelTracker) Set(ctx context.Context, name string, absolute float64, labelsAndValues ...string) {
	g, err := t.gauge(name)
	if err != nil {
		return
	}

	g.Record(ctx, absolute, metric.WithAttributes(attrs(labelsAndValues)...))
}

func (t *OTelTracker) counter(name string) (metric.Float64Counter, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.counters[name]; ok {
		return c, nil
	}

	c, err := t.meter.Float64Counter(name)
	if err != nil {
		return nil, err
	}

	t.counters[name] = c

	return c, nil
}

func (t *OTelTracker) gauge(name string) (metric.Float64Gauge, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if g, ok := t.gauges[name]; ok {
		return g, nil
	}

	g, err := t.meter.Float64Gauge(name)
	if err != nil {
		return nil, err
	}

	t.gauges[name] = g

	return g, nil
}

func attrs(labelsAndValues []string) []attribute.KeyValue {
	kv := make([]attribute.KeyValue, 0, len(labelsAndValues)/2)

	for i := 0; i+1 < len(labelsAndValues); i += 2 {
		kv = append(kv, attribute.String(labelsAndValues[i], labelsAndValues[i+1]))
	}

	return kv
}
