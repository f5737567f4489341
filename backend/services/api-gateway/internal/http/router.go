package httpserver

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"evcharge/backend/libs/httpx"
	"evcharge/backend/libs/metrics"
)

// Routes aggregates handlers for the gateway.
type Routes struct {
	Health  http.HandlerFunc
	Metrics http.Handler
	Index   http.HandlerFunc

	Auth        http.Handler
	Booking     http.Handler
	Partnership http.Handler
}

// Guards are the middleware layers applied by the gateway.
type Guards struct {
	// CORS runs on every matched route.
	CORS func(http.Handler) http.Handler
	// RateLimit runs on /api routes only.
	RateLimit func(http.Handler) http.Handler
}

// NewRouter mounts the upstream proxies. A prefix such as /api/chargers matches the bare path and
// everything below it, but not /api/chargersX.
func NewRouter(routes Routes, guards Guards, m *metrics.HTTP) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = httpx.NotFound()
	r.MethodNotAllowedHandler = httpx.MethodNotAllowed()
	if m != nil {
		r.Use(m.Middleware)
	}
	if guards.CORS != nil {
		r.Use(mux.MiddlewareFunc(guards.CORS))
	}

	limited := func(h http.Handler) http.Handler {
		if guards.RateLimit == nil {
			return h
		}
		return guards.RateLimit(h)
	}
	mount := func(prefix string, h http.Handler, wrap func(http.Handler) http.Handler) {
		if h == nil {
			return
		}
		h = wrap(h)
		r.Handle(prefix, h)
		r.PathPrefix(prefix + "/").Handler(h)
	}

	if routes.Health != nil {
		r.Handle("/health", routes.Health).Methods(http.MethodGet, http.MethodOptions)
	}
	if routes.Metrics != nil {
		r.Handle("/metrics", routes.Metrics).Methods(http.MethodGet)
	}
	if routes.Index != nil {
		r.Handle("/api", limited(routes.Index)).Methods(http.MethodGet, http.MethodOptions)
	}

	mount("/api/auth", routes.Auth, limited)
	mount("/api/chargers", routes.Booking, limited)
	mount("/api/bookings", routes.Booking, limited)
	mount("/api/partnerships", routes.Partnership, limited)
	mount("/ws", routes.Booking, withoutDeadlines)

	return r
}

// withoutDeadlines clears the server read/write deadlines so upgraded connections outlive them.
func withoutDeadlines(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := http.NewResponseController(w)
		_ = rc.SetReadDeadline(time.Time{})
		_ = rc.SetWriteDeadline(time.Time{})
		next.ServeHTTP(w, r)
	})
}
