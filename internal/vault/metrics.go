package vault

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "arx_vault_search_duration_seconds",
	Help:    "Latency of vault search queries",
	Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
})

func observeSearch(d time.Duration) {
	searchDuration.Observe(d.Seconds())
}
