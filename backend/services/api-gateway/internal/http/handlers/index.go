package handlers

import (
	"net/http"

	"evcharge/backend/libs/httpx"
)

// Endpoints groups route descriptions by area, keyed "METHOD /path".
type Endpoints map[string]map[string]string

// Catalogue lists every public route served through the gateway.
var Catalogue = Endpoints{
	"auth": {
		"POST /api/auth/register": "User registration",
		"POST /api/auth/login":    "User login",
		"GET /api/auth/profile":   "Get user profile",
		"PUT /api/auth/profile":   "Update user profile",
	},
	"chargers": {
		"GET /api/chargers":              "List charging stations (filters: status, type, location, minPower, maxPower, latitude, longitude, radius)",
		"GET /api/chargers/:id":          "Get charging station by ID",
		"POST /api/chargers":             "Create charging station (Admin)",
		"PUT /api/chargers/:id":          "Update charging station (Admin)",
		"PATCH /api/chargers/:id/status": "Change charging station status (Admin)",
		"DELETE /api/chargers/:id":       "Delete charging station (Admin)",
	},
	"bookings": {
		"GET /api/bookings/available-slots/:chargerId/:date": "Free slots for a charger on a date",
		"POST /api/bookings":                                 "Create booking and start checkout",
		"POST /api/bookings/verify-payment":                  "Confirm a paid checkout session",
		"GET /api/bookings":                                  "Get user bookings",
		"GET /api/bookings/:id":                              "Get booking by ID",
		"PATCH /api/bookings/:id/cancel":                     "Cancel booking",
		"PATCH /api/bookings/:id/status":                     "Update booking status (Admin)",
	},
	"partnerships": {
		"POST /api/partnerships":             "Submit partnership request",
		"GET /api/partnerships":              "List partnership requests (Admin)",
		"GET /api/partnerships/stats":        "Partnership statistics (Admin)",
		"GET /api/partnerships/export/csv":   "Export partnership requests as CSV (Admin)",
		"GET /api/partnerships/:id":          "Get partnership request (Admin)",
		"PATCH /api/partnerships/:id/status": "Update partnership status (Admin)",
		"PATCH /api/partnerships/:id":        "Update partnership request (Admin)",
		"DELETE /api/partnerships/:id":       "Delete partnership request (Admin)",
	},
	"realtime": {
		"GET /ws/availability?chargerId=&date=": "Live slot availability (websocket)",
	},
	"health": {
		"GET /health": "Health check endpoint",
	},
}

// NewIndexHandler describes the API.
func NewIndexHandler(version string, endpoints Endpoints) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.OK(w, http.StatusOK, map[string]interface{}{
			"message":   "EV Charging Station API",
			"version":   version,
			"endpoints": endpoints,
		})
	}
}
