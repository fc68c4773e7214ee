package index

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var runDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "arx_index_run_duration_seconds",
		Help:    "Duration of trust graph index runs by outcome.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"outcome"},
)

func observeRun(outcome string, took time.Duration) {
	runDuration.WithLabelValues(outcome).Observe(took.Seconds())
}
