package policy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "arx_policy_operations_total",
	Help: "Policy operations by operation, outcome and rejection reason",
}, []string{"op", "outcome", "reason"})

func observeOperation(op, outcome, reason string) {
	operationsTotal.WithLabelValues(op, outcome, reason).Inc()
}
