package analysis

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runDurationMs = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "canguard_analysis_run_duration_ms",
		Help:    "Latency of full analysis pipeline runs in milliseconds",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"outcome"})

	resourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "canguard_analysis_resource_failures_total",
		Help: "Per-resource fetch or decrypt failures absorbed by the pipeline",
	}, []string{"stage"})
)

func observeRun(outcome string, start time.Time) {
	runDurationMs.WithLabelValues(outcome).Observe(float64(time.Since(start).Microseconds()) / 1000.0)
}
