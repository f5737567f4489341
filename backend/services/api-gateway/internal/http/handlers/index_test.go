package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewIndexHandler("2.1.0", Catalogue)(rec, httptest.NewRequest(http.MethodGet, "/api", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Success   bool      `json:"success"`
		Message   string    `json:"message"`
		Version   string    `json:"version"`
		Endpoints Endpoints `json:"endpoints"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "EV Charging Station API", body.Message)
	assert.Equal(t, "2.1.0", body.Version)
	assert.Contains(t, body.Endpoints["bookings"], "POST /api/bookings")
	assert.Contains(t, body.Endpoints["partnerships"], "GET /api/partnerships/export/csv")
}
