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

	ListStations        http.HandlerFunc
	GetStation          http.HandlerFunc
	CreateStation       http.HandlerFunc
	UpdateStation       http.HandlerFunc
	UpdateStationStatus http.HandlerFunc
	DeleteStation       http.HandlerFunc

	AvailableSlots      http.HandlerFunc
	CreateBooking       http.HandlerFunc
	VerifyPayment       http.HandlerFunc
	MyBookings          http.HandlerFunc
	GetBooking          http.HandlerFunc
	CancelBooking       http.HandlerFunc
	UpdateBookingStatus http.HandlerFunc

	AvailabilityFeed http.HandlerFunc
}

// Guards are the authentication layers applied to private routes.
type Guards struct {
	Protect func(http.Handler) http.Handler
	Admin   func(http.Handler) http.Handler
}

// NewRouter wires all HTTP routes. Nil handlers are skipped.
func NewRouter(routes Routes, guards Guards, m *metrics.HTTP) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = httpx.NotFound()
	r.MethodNotAllowedHandler = httpx.MethodNotAllowed()
	if m != nil {
		r.Use(m.Middleware)
	}

	private := func(h http.HandlerFunc) http.Handler {
		return guards.Protect(h)
	}
	admin := func(h http.HandlerFunc) http.Handler {
		return guards.Protect(guards.Admin(h))
	}
	handle := func(method, path string, h http.Handler, isNil bool) {
		if isNil {
			return
		}
		r.Handle(path, h).Methods(method)
	}

	handle(http.MethodGet, "/health", routes.Health, routes.Health == nil)
	if routes.Metrics != nil {
		r.Handle("/metrics", routes.Metrics).Methods(http.MethodGet)
	}

	handle(http.MethodGet, "/api/chargers", routes.ListStations, routes.ListStations == nil)
	handle(http.MethodPost, "/api/chargers", admin(routes.CreateStation), routes.CreateStation == nil)
	handle(http.MethodGet, "/api/chargers/{id}", routes.GetStation, routes.GetStation == nil)
	handle(http.MethodPut, "/api/chargers/{id}", admin(routes.UpdateStation), routes.UpdateStation == nil)
	handle(http.MethodPatch, "/api/chargers/{id}/status", admin(routes.UpdateStationStatus), routes.UpdateStationStatus == nil)
	handle(http.MethodDelete, "/api/chargers/{id}", admin(routes.DeleteStation), routes.DeleteStation == nil)

	handle(http.MethodGet, "/api/bookings/available-slots/{chargerId}/{date}", routes.AvailableSlots, routes.AvailableSlots == nil)
	handle(http.MethodPost, "/api/bookings/verify-payment", private(routes.VerifyPayment), routes.VerifyPayment == nil)
	handle(http.MethodPost, "/api/bookings", private(routes.CreateBooking), routes.CreateBooking == nil)
	handle(http.MethodGet, "/api/bookings", private(routes.MyBookings), routes.MyBookings == nil)
	handle(http.MethodGet, "/api/bookings/{id}", private(routes.GetBooking), routes.GetBooking == nil)
	handle(http.MethodPatch, "/api/bookings/{id}/cancel", private(routes.CancelBooking), routes.CancelBooking == nil)
	handle(http.MethodPatch, "/api/bookings/{id}/status", admin(routes.UpdateBookingStatus), routes.UpdateBookingStatus == nil)

	handle(http.MethodGet, "/ws/availability", routes.AvailabilityFeed, routes.AvailabilityFeed == nil)

	return r
}
