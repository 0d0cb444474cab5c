// Package metrics records pipeline run statistics in a Prometheus registry
// and writes them in the node-exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"egretail/internal/models"
)

// Recorder holds the metrics of one pipeline run.
type Recorder struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stageRows     *prometheus.GaugeVec
	stageErrors   *prometheus.CounterVec
	rowsTotal     prometheus.Gauge
	qualityScore  *prometheus.GaugeVec
	lastRun       prometheus.Gauge
}

// New creates a recorder on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "egretail_stage_duration_seconds",
				Help:    "Wall time of each pipeline stage",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"stage"},
		),
		stageRows: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "egretail_stage_rows",
				Help: "Rows per outcome label reported by each stage",
			},
			[]string{"stage", "label"},
		),
		stageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "egretail_stage_errors_total",
				Help: "Stages that failed",
			},
			[]string{"stage"},
		),
		rowsTotal: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "egretail_rows",
				Help: "Order rows in the cleaned dataset",
			},
		),
		qualityScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "egretail_quality_score_percent",
				Help: "Data quality score components",
			},
			[]string{"component"},
		),
		lastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "egretail_last_run_timestamp_seconds",
				Help: "Unix time the run finished",
			},
		),
	}
}

// StageDone records one stage outcome.
func (r *Recorder) StageDone(stage string, elapsed time.Duration, counts models.Counts, err error) {
	r.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())

	if err != nil {
		r.stageErrors.WithLabelValues(stage).Inc()
		return
	}

	for label, n := range counts {
		r.stageRows.WithLabelValues(stage, label).Set(float64(n))
	}
}

// Rows records the dataset size.
func (r *Recorder) Rows(n int) {
	r.rowsTotal.Set(float64(n))
}

// Quality records the score components by name.
func (r *Recorder) Quality(components map[string]float64) {
	for name, v := range components {
		r.qualityScore.WithLabelValues(name).Set(v)
	}
}

// Finish stamps the run completion time.
func (r *Recorder) Finish(at time.Time) {
	r.lastRun.Set(float64(at.Unix()))
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes every metric to path atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}

	return nil
}
