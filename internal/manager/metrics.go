package manager

import (
	"github.com/prometheus/client_golang/prometheus"

	"vlmeval/pkg/types"
)

var (
	invocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vlmeval",
			Subsystem: "manager",
			Name:      "invocations_total",
			Help:      "Model turns by outcome (success or error kind)",
		},
		[]string{"model", "outcome"},
	)

	invocationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vlmeval",
			Subsystem: "manager",
			Name:      "invocation_duration_seconds",
			Help:      "Backend processing time of successful invocations",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"model"},
	)

	tokensPerSecond = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vlmeval",
			Subsystem: "manager",
			Name:      "tokens_per_second",
			Help:      "Reported generation rate of successful invocations",
			Buckets:   prometheus.LinearBuckets(5, 5, 12),
		},
		[]string{"model"},
	)

	evaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vlmeval",
			Subsystem: "manager",
			Name:      "evaluations_total",
			Help:      "Per-image evaluations by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(invocationsTotal, invocationDuration, tokensPerSecond, evaluationsTotal)
}

// otherModelLabel stands in for model ids that are neither configured nor discovered.
const otherModelLabel = "other"

func observeResult(label string, r types.InferenceResult) {
	if r.OK() {
		invocationsTotal.WithLabelValues(label, "success").Inc()
		invocationDuration.WithLabelValues(label).Observe(r.Success.ProcessingTimeSeconds)
		if r.Success.TokensPerSecond != nil {
			tokensPerSecond.WithLabelValues(label).Observe(*r.Success.TokensPerSecond)
		}
		return
	}
	invocationsTotal.WithLabelValues(label, string(r.Failure.Reason)).Inc()
}

func observeEvaluation(ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	evaluationsTotal.WithLabelValues(outcome).Inc()
}
