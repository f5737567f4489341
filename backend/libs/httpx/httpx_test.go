package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evcharge/backend/libs/validate"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestOKMergesSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, http.StatusCreated, map[string]interface{}{"bookingId": 7, "success": false})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(7), body["bookingId"])
}

func TestInvalidWritesErrorList(t *testing.T) {
	v := validate.New()
	v.Check(false, "power", "Power must be between 1 and 350 kW")
	var verr *validate.Error
	require.True(t, errors.As(v.Err("Validation failed"), &verr))

	rec := httptest.NewRecorder()
	Invalid(rec, verr, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, []interface{}{"Power must be between 1 and 350 kW"}, body["errors"])

	rec = httptest.NewRecorder()
	Invalid(rec, verr, true)
	body = decodeBody(t, rec)
	assert.Equal(t, map[string]interface{}{"power": "Power must be between 1 and 350 kW"}, body["errors"])
}

func TestInternalHidesDetailsOutsideDebug(t *testing.T) {
	rec := httptest.NewRecorder()
	Internal(rec, "", errors.New("pq: connection refused"), false)
	body := decodeBody(t, rec)
	assert.Equal(t, "Something went wrong!", body["message"])
	assert.NotContains(t, body, "error")

	rec = httptest.NewRecorder()
	Internal(rec, "Create booking failed", errors.New("pq: connection refused"), true)
	body = decodeBody(t, rec)
	assert.Equal(t, "pq: connection refused", body["error"])
}

func TestDecode(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, Decode(req, &dst))
	assert.Equal(t, "x", dst.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.NoError(t, Decode(req, &dst))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	assert.ErrorIs(t, Decode(req, &dst), ErrInvalidJSON)
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&limit=-1&lat=12.5&lng=abc", nil)
	assert.Equal(t, 3, IntQuery(req, "page", 1))
	assert.Equal(t, 10, IntQuery(req, "limit", 10))
	assert.Equal(t, 1, IntQuery(req, "missing", 1))

	lat, err := FloatQuery(req, "lat")
	require.NoError(t, err)
	assert.Equal(t, 12.5, *lat)

	_, err = FloatQuery(req, "lng")
	assert.Error(t, err)

	none, err := FloatQuery(req, "missing")
	assert.NoError(t, err)
	assert.Nil(t, none)
}

func TestNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFound()(rec, httptest.NewRequest(http.MethodGet, "/api/nope?x=1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route GET /api/nope?x=1 not found", decodeBody(t, rec)["message"])
}
