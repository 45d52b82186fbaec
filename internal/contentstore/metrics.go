package contentstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDurationMs = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "canguard_contentstore_request_duration_ms",
		Help:    "Latency of content store requests in milliseconds",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"op", "outcome"})
)

func observePut(d time.Duration, err error) {
	requestDurationMs.WithLabelValues("put", outcome(err)).Observe(float64(d.Microseconds()) / 1000.0)
}

func observeGet(d time.Duration, err error) {
	requestDurationMs.WithLabelValues("get", outcome(err)).Observe(float64(d.Microseconds()) / 1000.0)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
