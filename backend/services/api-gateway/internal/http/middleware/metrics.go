package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RouteFunc maps a request to a low-cardinality route label.
type RouteFunc func(r *http.Request) string

// MetricsMiddleware records request counts and latency per route.
func MetricsMiddleware(reg prometheus.Registerer, route RouteFunc) Middleware {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "greenhouse",
		Subsystem: "gateway",
		Name:      "requests_total",
		Help:      "Requests handled by the gateway.",
	}, []string{"route", "method", "code"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "greenhouse",
		Subsystem: "gateway",
		Name:      "request_duration_seconds",
		Help:      "Gateway request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
	reg.MustRegister(requests, latency)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r)

			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			label := route(r)
			requests.WithLabelValues(label, r.Method, strconv.Itoa(status)).Inc()
			latency.WithLabelValues(label).Observe(time.Since(start).Seconds())
		})
	}
}
