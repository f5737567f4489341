package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	h := HealthHandler(HealthInfo{
		Service:     "booking-service",
		Environment: "test",
		Version:     "1.0.0",
		Started:     time.Now().Add(-time.Minute),
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "booking-service is running", body["message"])
	assert.Equal(t, "test", body["environment"])
	assert.GreaterOrEqual(t, body["uptime"].(float64), 60.0)
}
