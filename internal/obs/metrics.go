package obs

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	authOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_operations_total",
			Help: "Authentication workflow operations by outcome.",
		},
		[]string{"operation", "outcome"},
	)
)

// Init registers the metrics in the default registry.
func Init() {
	prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration, authOperations)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAuthOperation counts one workflow operation. Outcome is "ok" or a
// short failure class, never raw error text.
func ObserveAuthOperation(operation, outcome string) {
	authOperations.WithLabelValues(operation, outcome).Inc()
}

// knownPaths is the closed route set used as the path label, keeping
// metric cardinality bounded against probe traffic.
var knownPaths = map[string]struct{}{
	"/healthz":                 {},
	"/readyz":                  {},
	"/metrics":                 {},
	"/v1/auth/register":        {},
	"/v1/auth/verify-email":    {},
	"/v1/auth/login":           {},
	"/v1/auth/refresh":         {},
	"/v1/auth/logout":          {},
	"/v1/auth/forgot-password": {},
	"/v1/auth/reset-password":  {},
	"/v1/auth/me":              {},
	"/v1/admin/applications":   {},
	"/v1/admin/clients":        {},
	"/v1/admin/clients/grants": {},
	"/v1/admin/users/grants":   {},
}

// CanonicalPath reduces a request path to its route label.
func CanonicalPath(p string) string {
	if i := strings.IndexByte(p, '?'); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	if _, ok := knownPaths[p]; ok {
		return p
	}
	return "/other"
}

// Instrument measures RPS, latency, and in-flight count per route.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// statusWriter captures the response code for the labels above.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
