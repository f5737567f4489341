package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"

	"evcharge/backend/libs/httpx"
	"evcharge/backend/libs/metrics"
)

// Routes aggregates handlers for the HTTP server.
type Routes struct {
	Health  http.HandlerFunc
	Metrics http.Handler

	Submit       http.HandlerFunc
	List         http.HandlerFunc
	Stats        http.HandlerFunc
	Export       http.HandlerFunc
	Get          http.HandlerFunc
	UpdateStatus http.HandlerFunc
	Update       http.HandlerFunc
	Delete       http.HandlerFunc
}

// Guards are the middleware layers applied per route group.
type Guards struct {
	Protect   func(http.Handler) http.Handler
	Admin     func(http.Handler) http.Handler
	FormLimit func(http.Handler) http.Handler
	ReadLimit func(http.Handler) http.Handler
}

// NewRouter wires all HTTP routes. Nil handlers are skipped.
func NewRouter(routes Routes, guards Guards, m *metrics.HTTP) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = httpx.NotFound()
	r.MethodNotAllowedHandler = httpx.MethodNotAllowed()
	if m != nil {
		r.Use(m.Middleware)
	}

	admin := func(h http.Handler) http.Handler {
		return guards.Protect(guards.Admin(h))
	}
	handle := func(method, path string, h http.HandlerFunc, wrap ...func(http.Handler) http.Handler) {
		if h == nil {
			return
		}
		var handler http.Handler = h
		for i := len(wrap) - 1; i >= 0; i-- {
			handler = wrap[i](handler)
		}
		r.Handle(path, handler).Methods(method)
	}

	handle(http.MethodGet, "/health", routes.Health)
	if routes.Metrics != nil {
		r.Handle("/metrics", routes.Metrics).Methods(http.MethodGet)
	}

	handle(http.MethodPost, "/api/partnerships", routes.Submit, guards.FormLimit)
	handle(http.MethodGet, "/api/partnerships", routes.List, guards.ReadLimit, admin)
	handle(http.MethodGet, "/api/partnerships/stats", routes.Stats, guards.ReadLimit, admin)
	handle(http.MethodGet, "/api/partnerships/export/csv", routes.Export, admin)
	handle(http.MethodGet, "/api/partnerships/{id}", routes.Get, guards.ReadLimit, admin)
	handle(http.MethodPatch, "/api/partnerships/{id}/status", routes.UpdateStatus, admin)
	handle(http.MethodPatch, "/api/partnerships/{id}", routes.Update, admin)
	handle(http.MethodDelete, "/api/partnerships/{id}", routes.Delete, admin)

	return r
}
