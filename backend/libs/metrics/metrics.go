// Package metrics exposes the Prometheus collectors shared by the HTTP layer of every service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"evcharge/backend/libs/middleware"
)

// HTTP holds request counters and latency histograms.
type HTTP struct {
	service  string
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTP registers HTTP collectors for service on reg.
func NewHTTP(reg prometheus.Registerer, service string) *HTTP {
	m := &HTTP{
		service: service,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evcharge",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"service", "route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "evcharge",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "route", "method"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// Observe records one finished request.
func (m *HTTP) Observe(route, method string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(m.service, route, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(m.service, route, method).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Middleware observes every request. Routes are labelled by their gorilla/mux template so that
// path variables do not explode cardinality; unmatched requests share one label.
func (m *HTTP) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := middleware.NewStatusWriter(w)
		next.ServeHTTP(sw, r)
		m.Observe(routeLabel(r), r.Method, sw.Status(), time.Since(start))
	})
}

func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
