package proxy

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"evcharge/backend/libs/middleware"
)

func TestProxyForwardsPathAndHeaders(t *testing.T) {
	requests := make(chan *http.Request, 1)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r.Clone(r.Context())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer upstream.Close()

	rp, err := New(Upstream{Name: "Booking", BaseURL: upstream.URL + "/"}, NewTransport(time.Second), nil, zap.NewNop())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/bookings?page=2", nil)
	req.RemoteAddr = "203.0.113.7:5555"
	req.Header.Set("Authorization", "Bearer abc")
	req.Header.Set("X-Request-ID", "req-1")
	rec := httptest.NewRecorder()
	rp.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	seen := <-requests
	assert.Equal(t, "/api/bookings", seen.URL.Path)
	assert.Equal(t, "page=2", seen.URL.RawQuery)
	assert.Equal(t, "Bearer abc", seen.Header.Get("Authorization"))
	assert.Equal(t, "req-1", seen.Header.Get("X-Request-ID"))
	assert.Equal(t, "203.0.113.7", seen.Header.Get("X-Forwarded-For"))
}

func TestProxyRewritesForwardedFor(t *testing.T) {
	requests := make(chan *http.Request, 2)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r.Clone(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	defer upstream.Close()

	send := func(rp http.Handler, peer, fwd string) string {
		req := httptest.NewRequest(http.MethodGet, "/api/partnerships/submit", nil)
		req.RemoteAddr = peer + ":5555"
		req.Header.Set("X-Forwarded-For", fwd)
		rp.ServeHTTP(httptest.NewRecorder(), req)
		return (<-requests).Header.Get("X-Forwarded-For")
	}

	plain, err := New(Upstream{Name: "Partnership", BaseURL: upstream.URL}, NewTransport(time.Second), nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", send(plain, "203.0.113.7", "198.51.100.1"))

	trusted, err := middleware.ParseTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)
	edge, err := New(Upstream{Name: "Partnership", BaseURL: upstream.URL}, NewTransport(time.Second),
		middleware.EdgeClientIP(trusted), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", send(edge, "10.0.0.4", "198.51.100.1, 203.0.113.7"))
}

func TestProxyUnavailable(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	addr := upstream.URL
	upstream.Close()

	rp, err := New(Upstream{Name: "Partnership", BaseURL: addr}, NewTransport(time.Second), nil, zap.NewNop())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	rp.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/partnerships", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Partnership service unavailable", body["message"])
}

func TestParseBaseURL(t *testing.T) {
	u, err := parseBaseURL("auth-service:8081/")
	require.NoError(t, err)
	assert.Equal(t, "http://auth-service:8081", u.String())

	_, err = parseBaseURL("  ")
	assert.Error(t, err)

	u, err = parseBaseURL("https://booking.internal/api/")
	require.NoError(t, err)
	assert.Equal(t, "https://booking.internal/api", u.String())

	for _, raw := range []string{"http://", "https://", "http:///", "http://:8082"} {
		_, err = parseBaseURL(raw)
		assert.Error(t, err, raw)
	}

	_, err = New(Upstream{Name: "Auth", BaseURL: "http://"}, nil, nil, zap.NewNop())
	assert.Error(t, err)
}
