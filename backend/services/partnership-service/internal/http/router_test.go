package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"evcharge/backend/libs/metrics"
)

func marker(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Handler", name)
		if id, ok := mux.Vars(r)["id"]; ok {
			w.Header().Set("X-ID", id)
		}
		w.WriteHeader(http.StatusOK)
	}
}

func guard(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("X-Guard", name)
			next.ServeHTTP(w, r)
		})
	}
}

func TestRouterDispatch(t *testing.T) {
	router := NewRouter(Routes{
		Health:       marker("health"),
		Submit:       marker("submit"),
		List:         marker("list"),
		Stats:        marker("stats"),
		Export:       marker("export"),
		Get:          marker("get"),
		UpdateStatus: marker("status"),
		Update:       marker("update"),
		Delete:       marker("delete"),
	}, Guards{
		Protect:   guard("protect"),
		Admin:     guard("admin"),
		FormLimit: guard("form"),
		ReadLimit: guard("read"),
	}, metrics.NewHTTP(prometheus.NewRegistry(), "partnership-service"))

	admin := []string{"protect", "admin"}
	readAdmin := []string{"read", "protect", "admin"}
	cases := []struct {
		method, path, handler string
		guards                []string
	}{
		{http.MethodGet, "/health", "health", nil},
		{http.MethodPost, "/api/partnerships", "submit", []string{"form"}},
		{http.MethodGet, "/api/partnerships", "list", readAdmin},
		{http.MethodGet, "/api/partnerships/stats", "stats", readAdmin},
		{http.MethodGet, "/api/partnerships/export/csv", "export", admin},
		{http.MethodGet, "/api/partnerships/12", "get", readAdmin},
		{http.MethodPatch, "/api/partnerships/12/status", "status", admin},
		{http.MethodPatch, "/api/partnerships/12", "update", admin},
		{http.MethodDelete, "/api/partnerships/12", "delete", admin},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, tc.path)
		assert.Equal(t, tc.handler, rec.Header().Get("X-Handler"), tc.method+" "+tc.path)
		assert.Equal(t, tc.guards, rec.Header().Values("X-Guard"), tc.method+" "+tc.path)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/partnerships/12", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
