package webhook

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// httpMetrics bundles the ingress's request-duration histogram: labeled by
// endpoint/status and registered on a caller-supplied *prometheus.Registry
// so tests can assert on an isolated registry instead of the global
// default one.
type httpMetrics struct {
	duration *prometheus.HistogramVec
}

func newHTTPMetrics(reg *prometheus.Registerer) *httpMetrics {
	m := &httpMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "corvid",
			Subsystem: "webhook",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration for the webhook ingress, labeled by endpoint and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "status"}),
	}
	if reg != nil {
		(*reg).MustRegister(m.duration)
	}
	return m
}

// instrument wraps next with a duration-recording middleware labeled by the
// fixed endpoint name (not the raw URL path, to keep cardinality bounded).
func (m *httpMetrics) instrument(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(rec, r)
		m.duration.WithLabelValues(endpoint, strconv.Itoa(rec.status)).Observe(time.Since(start).Seconds())
	}
}

// statusRecorder captures the status code written by a handler so the
// metrics middleware can label its observation after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
