package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// unmatchedRoute labels requests that no route accepted, so probing clients
// cannot mint new series with arbitrary paths.
const unmatchedRoute = "unmatched"

// reasonEvaluationSlot is the only backpressure source: the single evaluation slot.
const reasonEvaluationSlot = "evaluation_slot"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vlmeval",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route pattern, method and status code",
		},
		[]string{"route", "method", "code"},
	)

	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vlmeval",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Requests currently being served, including those waiting for the evaluation slot",
		},
	)

	analyzeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vlmeval",
			Subsystem: "http",
			Name:      "analyze_duration_seconds",
			Help:      "Wall time of analyze requests, upload parsing included",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"endpoint", "outcome"},
	)

	batchImages = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vlmeval",
			Subsystem: "http",
			Name:      "batch_images",
			Help:      "Images per accepted analyze-batch upload",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		},
	)

	backpressureTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vlmeval",
			Subsystem: "http",
			Name:      "backpressure_total",
			Help:      "Requests rejected with 429",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpInflight, analyzeDuration, batchImages, backpressureTotal)
}

// MetricsMiddleware counts every request under its chi route pattern.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInflight.Inc()
		defer httpInflight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		// The pattern is only complete once routing has run.
		httpRequestsTotal.WithLabelValues(routeLabel(r), r.Method, strconv.Itoa(statusOf(ww))).Inc()
	})
}

// instrumentAnalyze times an analyze handler and files the result under an
// outcome derived from the status it wrote.
func instrumentAnalyze(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		h(ww, r)
		analyzeDuration.WithLabelValues(endpoint, analyzeOutcome(statusOf(ww))).Observe(time.Since(start).Seconds())
	}
}

func analyzeOutcome(status int) string {
	switch {
	case status == http.StatusOK:
		return "ok"
	case status == http.StatusTooManyRequests:
		return "busy"
	case status == http.StatusInternalServerError:
		return "no_answer"
	case status >= 400 && status < 500:
		return "rejected"
	default:
		return "error"
	}
}

func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return unmatchedRoute
}

func statusOf(ww middleware.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}

// IncrementBackpressure counts a 429 answer.
func IncrementBackpressure(reason string) {
	if reason == "" {
		reason = reasonEvaluationSlot
	}
	backpressureTotal.WithLabelValues(reason).Inc()
}
