// Package metrics records pipeline counters on a private Prometheus registry.
//
// A batch CLI has no scrape endpoint, so the registry is written out in the
// node_exporter textfile format at the end of a run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the pipeline metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	rowsRead      prometheus.Counter
	rowsKept      prometheus.Counter
	rowsFiltered  *prometheus.CounterVec
	parseFailures *prometheus.CounterVec
	tags          *prometheus.CounterVec
	contributions prometheus.Counter
	partitions    prometheus.Gauge
	runDuration   prometheus.Histogram
}

// NewRecorder creates a Recorder with its own registry unless WithRegistry is given.
func NewRecorder(opts ...Option) *Recorder {
	r := &Recorder{
		namespace: "clutch",
		buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.registry == nil {
		r.registry = prometheus.NewRegistry()
	}
	r.initializeMetrics()
	return r
}

func (r *Recorder) initializeMetrics() {
	auto := promauto.With(r.registry)

	r.rowsRead = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "pipeline",
		Name:      "rows_read_total",
		Help:      "Play-by-play rows handed to the pipeline",
	})
	r.rowsKept = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "pipeline",
		Name:      "rows_kept_total",
		Help:      "Rows that passed the pre-filter and were classified",
	})
	r.rowsFiltered = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "pipeline",
		Name:      "rows_filtered_total",
		Help:      "Rows dropped by the pre-filter, by reason",
	}, []string{"reason"})
	r.parseFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "pipeline",
		Name:      "parse_failures_total",
		Help:      "Clock or margin cells that could not be parsed",
	}, []string{"field"})
	r.tags = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "classifier",
		Name:      "labels_total",
		Help:      "Labels emitted by the classifier, by tag",
	}, []string{"tag"})
	r.contributions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: r.namespace,
		Subsystem: "attribution",
		Name:      "contributions_total",
		Help:      "Non-zero weights credited to a player",
	})
	r.partitions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: r.namespace,
		Subsystem: "pipeline",
		Name:      "partitions",
		Help:      "Input partitions used by the last run",
	})
	r.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: r.namespace,
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "Wall time of a pipeline run",
		Buckets:   r.buckets,
	})
}

// Registry exposes the underlying registry, e.g. for tests or a push gateway.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) AddRowsRead(n int) {
	if r == nil {
		return
	}
	r.rowsRead.Add(float64(n))
}

func (r *Recorder) AddRowsKept(n int) {
	if r == nil {
		return
	}
	r.rowsKept.Add(float64(n))
}

func (r *Recorder) AddRowsFiltered(reason string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.rowsFiltered.WithLabelValues(reason).Add(float64(n))
}

// AddParseFailures counts unparseable cells; field is "clock" or "margin".
func (r *Recorder) AddParseFailures(field string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.parseFailures.WithLabelValues(field).Add(float64(n))
}

func (r *Recorder) AddTag(tag string, n int) {
	if r == nil || n == 0 {
		return
	}
	r.tags.WithLabelValues(tag).Add(float64(n))
}

func (r *Recorder) AddContributions(n int) {
	if r == nil {
		return
	}
	r.contributions.Add(float64(n))
}

func (r *Recorder) SetPartitions(n int) {
	if r == nil {
		return
	}
	r.partitions.Set(float64(n))
}

func (r *Recorder) ObserveRun(d time.Duration) {
	if r == nil {
		return
	}
	r.runDuration.Observe(d.Seconds())
}

// WriteTextfile writes every registered metric to path in the textfile collector format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
