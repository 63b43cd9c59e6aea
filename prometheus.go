package cache

import (
	"context"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusTracker exposes stats collected by this package as Prometheus metrics.
//
// Add calls are reported as counters, Set calls as gauges, collectors are
// registered lazily on first use of a metric name.
type PrometheusTracker struct {
	reg prometheus.Registerer

	mu       sync.Mutex
	counters map[string]*prometheus.CounterVec
	gauges   map[string]*prometheus.GaugeVec
}

// NewPrometheusTracker creates a tracker registering metrics in reg,
// prometheus.DefaultRegisterer is used when reg is nil.
func NewPrometheusTracker(reg prometheus.Registerer) *PrometheusTracker {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &PrometheusTracker{
		reg:      reg,
		counters: make(map[string]*prometheus.CounterVec),
		gauges:   make(map[string]*prometheus.GaugeVec),
	}
}

// Add collects increment to a counter metric.
func (t *PrometheusTracker) Add(ctx context.Context, name string, increment float64, labelsAndValues ...string) {
	labels, values := splitLabels(labelsAndValues)
	t.counterVec(name, labels).WithLabelValues(values...).Add(increment)
}

// Set collects absolute value of a gauge metric.
func (t *PrometheusTracker) Set(ctx context.Context, name string, absolute float64, labelsAndValues ...string) {
	labels, values := splitLabels(labelsAndValues)
	t.gaugeVec(name, labels).WithLabelValues(values...).Set(absolute)
}

func (t *PrometheusTracker) counterVec(name string, labels []string) *prometheus.CounterVec {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cv, ok := t.counters[name]; ok {
		return cv
	}

	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: name,
		Help: "Counter " + name + " of cache operations.",
	}, labels)

	if err := t.reg.Register(cv); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			cv = are.ExistingCollector.(*prometheus.CounterVec)
		}
	}

	t.counters[name] = cv

	return cv
}

func (t *PrometheusTracker) gaugeVec(name string, labels []string) *prometheus.GaugeVec {
	t.mu.Lock()
	defer t.mu.Unlock()

	if gv, ok := t.gauges[name]; ok {
		return gv
	}

	gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: name,
		Help: "Gauge " + name + " of cache state.",
	}, labels)

	if err := t.reg.Register(gv); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			gv = are.ExistingCollector.(*prometheus.GaugeVec)
		}
	}

	t.gauges[name] = gv

	return gv
}

// splitLabels unzips a list of label name-value pairs.
func splitLabels(labelsAndValues []string) (labels, values []string) {
	labels = make([]string, 0, len(labelsAndValues)/2)
	values = make([]string, 0, len(labelsAndValues)/2)

	for i := 0; i+1 < len(labelsAndValues); i += 2 {
		labels = append(labels, labelsAndValues[i])
		values = append(values, labelsAndValues[i+1])
	}

	return labels, values
}
