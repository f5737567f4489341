package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"evcharge/backend/libs/metrics"
)

func marker(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Handler", name)
		w.WriteHeader(http.StatusOK)
	}
}

func guard(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Guard", name)
			if r.Header.Get("X-Deny") == name {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func testRouter() http.Handler {
	reg := prometheus.NewRegistry()
	return NewRouter(Routes{
		Health:      marker("health"),
		Metrics:     metrics.Handler(reg),
		Index:       marker("index"),
		Auth:        marker("auth"),
		Booking:     marker("booking"),
		Partnership: marker("partnership"),
	}, Guards{CORS: guard("cors"), RateLimit: guard("limit")}, metrics.NewHTTP(reg, "api-gateway"))
}

func TestRouterDispatch(t *testing.T) {
	router := testRouter()

	cases := []struct {
		method, path, handler string
		guards                []string
	}{
		{http.MethodGet, "/health", "health", []string{"cors"}},
		{http.MethodGet, "/api", "index", []string{"cors", "limit"}},
		{http.MethodPost, "/api/auth/login", "auth", []string{"cors", "limit"}},
		{http.MethodPut, "/api/auth/profile", "auth", []string{"cors", "limit"}},
		{http.MethodGet, "/api/chargers", "booking", []string{"cors", "limit"}},
		{http.MethodDelete, "/api/chargers/3", "booking", []string{"cors", "limit"}},
		{http.MethodGet, "/api/bookings/available-slots/3/2025-03-11", "booking", []string{"cors", "limit"}},
		{http.MethodPatch, "/api/bookings/9/cancel", "booking", []string{"cors", "limit"}},
		{http.MethodPost, "/api/partnerships", "partnership", []string{"cors", "limit"}},
		{http.MethodGet, "/api/partnerships/export/csv", "partnership", []string{"cors", "limit"}},
		{http.MethodGet, "/ws/availability", "booking", []string{"cors"}},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, tc.path)
		assert.Equal(t, tc.handler, rec.Header().Get("X-Handler"), tc.path)
		assert.Equal(t, tc.guards, rec.Header().Values("X-Guard"), tc.path)
	}
}

func TestRouterRateLimitBlocks(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", nil)
	req.Header.Set("X-Deny", "limit")
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Handler"))
}

func TestRouterNotFound(t *testing.T) {
	router := testRouter()

	for _, path := range []string{"/api/chargersX", "/api/unknown", "/"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "Route GET "+path+" not found")
	}
}

func TestRouterMetricsUseMountTemplate(t *testing.T) {
	router := testRouter()
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/chargers/12", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.Contains(rec.Body.String(),
		`evcharge_http_requests_total{method="GET",route="/api/chargers/",service="api-gateway",status="200"} 1`))
}
