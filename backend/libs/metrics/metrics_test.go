package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTP(reg, "booking")

	r := mux.NewRouter()
	r.Use(m.Middleware)
	r.HandleFunc("/api/chargers/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodGet)

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/chargers/"+id, nil))
	}

	expected := `
# HELP evcharge_http_requests_total HTTP requests by route, method and status.
# TYPE evcharge_http_requests_total counter
evcharge_http_requests_total{method="GET",route="/api/chargers/{id}",service="booking",status="404"} 3
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "evcharge_http_requests_total"))
}

func TestHandlerExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTP(reg, "auth")
	m.Observe("/health", http.MethodGet, http.StatusOK, 0)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `evcharge_http_request_duration_seconds_count{method="GET",route="/health",service="auth"} 1`)
}
