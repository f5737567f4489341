package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"

	"evcharge/backend/libs/httpx"
	"evcharge/backend/libs/metrics"
)

// Routes aggregates handlers for HTTP server.
type Routes struct {
	Health  http.HandlerFunc
	Metrics http.Handler

	Register      http.HandlerFunc
	Login         http.HandlerFunc
	Profile       http.HandlerFunc
	UpdateProfile http.HandlerFunc
}

// NewRouter wires all HTTP routes. protect guards the profile endpoints.
func NewRouter(routes Routes, protect func(http.Handler) http.Handler, m *metrics.HTTP) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = httpx.NotFound()
	r.MethodNotAllowedHandler = httpx.MethodNotAllowed()
	if m != nil {
		r.Use(m.Middleware)
	}

	if routes.Health != nil {
		r.Handle("/health", routes.Health).Methods(http.MethodGet)
	}
	if routes.Metrics != nil {
		r.Handle("/metrics", routes.Metrics).Methods(http.MethodGet)
	}

	if routes.Register != nil {
		r.Handle("/api/auth/register", routes.Register).Methods(http.MethodPost)
	}
	if routes.Login != nil {
		r.Handle("/api/auth/login", routes.Login).Methods(http.MethodPost)
	}
	if routes.Profile != nil {
		r.Handle("/api/auth/profile", protect(routes.Profile)).Methods(http.MethodGet)
	}
	if routes.UpdateProfile != nil {
		r.Handle("/api/auth/profile", protect(routes.UpdateProfile)).Methods(http.MethodPut)
	}
	return r
}
