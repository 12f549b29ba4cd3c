// Package metrics records build run metrics with Prometheus.
//
// A build is a short-lived batch process, so metrics live in a private
// registry and are exported once per run to a node_exporter textfile.
//
// Metrics:
//   - codexbuild_stage_duration_seconds{stage} - Histogram of stage durations
//   - codexbuild_stages_total{stage,outcome} - Count of stage outcomes
//   - codexbuild_runs_total{status} - Count of finished runs
//   - codexbuild_run_duration_seconds - Duration of the last run
//   - codexbuild_changed_paths - Paths changed by the agent in the last run
//   - codexbuild_last_run_timestamp_seconds - Completion time of the last run
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder receives run observations from the orchestrator.
type Recorder interface {
	ObserveStage(stage, outcome string, duration time.Duration)
	ObserveChanges(paths int)
	ObserveRun(status string, duration time.Duration, finished time.Time)
}

// NopRecorder discards all observations.
type NopRecorder struct{}

// ObserveStage implements Recorder.
func (NopRecorder) ObserveStage(string, string, time.Duration) {}

// ObserveChanges implements Recorder.
func (NopRecorder) ObserveChanges(int) {}

// ObserveRun implements Recorder.
func (NopRecorder) ObserveRun(string, time.Duration, time.Time) {}

// PrometheusRecorder implements Recorder on its own registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	stageDuration *prometheus.HistogramVec
	stagesTotal   *prometheus.CounterVec
	runsTotal     *prometheus.CounterVec
	runDuration   prometheus.Gauge
	changedPaths  prometheus.Gauge
	lastRun       prometheus.Gauge
}

// NewPrometheusRecorder creates a recorder with a fresh registry.
func NewPrometheusRecorder() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codexbuild_stage_duration_seconds",
				Help:    "Duration of build stages in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 4, 9), // 50ms to ~55m
			},
			[]string{"stage"},
		),
		stagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codexbuild_stages_total",
				Help: "Total number of build stages by outcome",
			},
			[]string{"stage", "outcome"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codexbuild_runs_total",
				Help: "Total number of finished build runs by status",
			},
			[]string{"status"},
		),
		runDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "codexbuild_run_duration_seconds",
			Help: "Duration of the last build run in seconds",
		}),
		changedPaths: factory.NewGauge(prometheus.GaugeOpts{
			Name: "codexbuild_changed_paths",
			Help: "Number of paths the agent changed in the last build run",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "codexbuild_last_run_timestamp_seconds",
			Help: "Unix time the last build run finished",
		}),
	}
}

// Registry returns the registry holding the run metrics.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

// ObserveStage records one stage outcome.
func (p *PrometheusRecorder) ObserveStage(stage, outcome string, duration time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	p.stagesTotal.WithLabelValues(stage, outcome).Inc()
}

// ObserveChanges records the size of the detected change set.
func (p *PrometheusRecorder) ObserveChanges(paths int) {
	p.changedPaths.Set(float64(paths))
}

// ObserveRun records the end of a run.
func (p *PrometheusRecorder) ObserveRun(status string, duration time.Duration, finished time.Time) {
	p.runsTotal.WithLabelValues(status).Inc()
	p.runDuration.Set(duration.Seconds())
	p.lastRun.Set(float64(finished.Unix()))
}

// WriteTextfile writes the registry in text exposition format to path,
// atomically replacing any previous file.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}
