// Package metrics records Prometheus metrics for a pipeline run.
//
// Every run owns a Collector with its own registry, so runs never share
// metric state. The registry can be exported in the Prometheus text format
// for the node exporter's textfile collector:
//
//	collector := metrics.NewCollector()
//	collector.RecordRowsRead("sales", ds.NumRows())
//	timer := metrics.NewTimer("transform")
//	merged, err := merger.Merge(ctx, sales, products, regions)
//	collector.ObserveStage(timer)
//	_ = collector.WriteFile("/var/lib/node_exporter/minietl.prom")
//
// # Metrics
//
//	minietl_rows_read{source}                 rows read per source
//	minietl_merged_rows                       rows in the merged dataset
//	minietl_stage_failures_total{stage,kind}  classified stage failures
//	minietl_stage_duration_seconds{stage}     stage wall time
//	minietl_sink_writes_total{sink,outcome}   sink attempts by outcome
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ajitpratap0/minietl/pkg/etlerrors"
)

const namespace = "minietl"

// Sink write outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Collector holds the metrics of one pipeline run.
type Collector struct {
	registry      *prometheus.Registry
	rowsRead      *prometheus.GaugeVec
	mergedRows    prometheus.Gauge
	stageFailures *prometheus.CounterVec
	stageDuration *prometheus.GaugeVec
	sinkWrites    *prometheus.CounterVec
}

// NewCollector creates a collector with a fresh registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		rowsRead: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rows_read",
				Help:      "Rows read from each source; zero when the read failed",
			},
			[]string{"source"},
		),
		mergedRows: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "merged_rows",
				Help:      "Rows in the merged dataset",
			},
		),
		stageFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "stage_failures_total",
				Help:      "Failures recovered by a stage, by error kind",
			},
			[]string{"stage", "kind"},
		),
		stageDuration: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Wall time spent in each stage",
			},
			[]string{"stage"},
		),
		sinkWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sink_writes_total",
				Help:      "Sink write attempts by outcome",
			},
			[]string{"sink", "outcome"},
		),
	}
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordRowsRead sets the row count read from a source.
func (c *Collector) RecordRowsRead(source string, rows int) {
	c.rowsRead.WithLabelValues(source).Set(float64(rows))
}

// RecordMergedRows sets the merged dataset's row count.
func (c *Collector) RecordMergedRows(rows int) {
	c.mergedRows.Set(float64(rows))
}

// RecordFailure counts a failure of stage. Nil errors are ignored.
func (c *Collector) RecordFailure(stage string, err error) {
	if err == nil {
		return
	}
	c.stageFailures.WithLabelValues(stage, string(etlerrors.KindOf(err))).Inc()
}

// RecordSinkWrite counts a sink attempt as a success or failure.
func (c *Collector) RecordSinkWrite(sink string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	c.sinkWrites.WithLabelValues(sink, outcome).Inc()
}

// ObserveStage records the elapsed time of a stage timer and returns it.
func (c *Collector) ObserveStage(t *Timer) time.Duration {
	d := t.Stop()
	c.stageDuration.WithLabelValues(t.name).Set(d.Seconds())
	return d
}

// WriteFile writes the registry to path in the Prometheus text format,
// atomically replacing any existing file.
func (c *Collector) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// Timer measures the duration of a named stage.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer's stage name.
func (t *Timer) Name() string {
	return t.name
}

// Stop returns the elapsed duration since creation. It may be called more
// than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}
