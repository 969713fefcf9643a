package telemetry

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/robinvdvleuten/saldo/output"
)

// PrometheusCollector records operation durations in a Prometheus histogram
// labelled by operation name. Nested timers are recorded under their own name.
type PrometheusCollector struct {
	// Registry owns the collector's metrics.
	Registry *prometheus.Registry

	durations  *prometheus.HistogramVec
	operations *prometheus.CounterVec
}

// NewPrometheusCollector creates a collector with a private registry. The
// namespace prefixes every metric name.
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusCollector{
		Registry: reg,
		durations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of operations by name.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total operations completed by name.",
			},
			[]string{"operation"},
		),
	}
}

// Start begins timing an operation.
func (c *PrometheusCollector) Start(name string) Timer {
	return &prometheusTimer{collector: c, name: name, start: time.Now()}
}

// Report writes one line per operation with its count and total duration.
func (c *PrometheusCollector) Report(w io.Writer, styles *output.Styles) {
	families, err := c.Registry.Gather()
	if err != nil {
		_, _ = fmt.Fprintf(w, "gather metrics: %v\n", err)
		return
	}

	for _, family := range families {
		if family.GetType() != dto.MetricType_HISTOGRAM {
			continue
		}
		metrics := family.GetMetric()
		sort.Slice(metrics, func(i, j int) bool {
			return operationLabel(metrics[i]) < operationLabel(metrics[j])
		})
		for _, m := range metrics {
			h := m.GetHistogram()
			total := formatDuration(time.Duration(h.GetSampleSum() * float64(time.Second)))
			name := operationLabel(m)
			if styles != nil {
				name = styles.Keyword(name)
			}
			_, _ = fmt.Fprintf(w, "%s: %d × %s\n", name, h.GetSampleCount(), total)
		}
	}
}

// WriteTextfile writes the metrics in the text exposition format, for
// pickup by the node exporter textfile collector.
func (c *PrometheusCollector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.Registry)
}

// Count returns how many times an operation completed.
func (c *PrometheusCollector) Count(operation string) float64 {
	m := &dto.Metric{}
	if err := c.operations.WithLabelValues(operation).Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func operationLabel(m *dto.Metric) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == "operation" {
			return l.GetValue()
		}
	}
	return ""
}

type prometheusTimer struct {
	collector *PrometheusCollector
	name      string
	start     time.Time
	ended     bool
}

// End observes the elapsed time. Only the first call records.
func (t *prometheusTimer) End() {
	if t.ended {
		return
	}
	t.ended = true
	t.collector.durations.WithLabelValues(t.name).Observe(time.Since(t.start).Seconds())
	t.collector.operations.WithLabelValues(t.name).Inc()
}

// Child starts a timer for a nested operation.
func (t *prometheusTimer) Child(name string) Timer {
	return t.collector.Start(name)
}
