package httphost

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Invocation outcomes, used as the outcome label of invocationsTotal.
const (
	outcomeOK             = "ok"
	outcomeNoContent      = "no_content"
	outcomeInitError      = "init_error"
	outcomeTransformError = "transform_error"
	outcomeBadRequest     = "bad_request"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelshim",
			Subsystem: "bridge",
			Name:      "requests_total",
			Help:      "HTTP requests served by the bridge host",
		},
		[]string{"path", "method", "status"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "modelshim",
			Subsystem: "bridge",
			Name:      "request_duration_seconds",
			Help:      "Bridge host request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	inflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "modelshim",
			Subsystem: "bridge",
			Name:      "inflight_invocations",
			Help:      "Invocations currently inside the user transform",
		},
	)

	invocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "modelshim",
			Subsystem: "bridge",
			Name:      "invocations_total",
			Help:      "Invocations by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, inflight, invocationsTotal)
}

// statusWriter remembers the status code written by the handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

func observeRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sw, r)
		labels := []string{routeLabel(r), r.Method, strconv.Itoa(sw.status)}
		requestsTotal.WithLabelValues(labels...).Inc()
		requestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	})
}

// routeLabel prefers the matched chi pattern so /swagger/* stays one series.
func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
