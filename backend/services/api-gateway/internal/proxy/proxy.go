// Package proxy forwards gateway traffic to the backend services.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"evcharge/backend/libs/httpx"
	"evcharge/backend/libs/middleware"
)

// Upstream is one backend service reachable by the gateway.
type Upstream struct {
	// Name is used in the 502 message, e.g. "Booking service unavailable".
	Name    string
	BaseURL string
}

// New returns a reverse proxy for up. Paths are forwarded unchanged. Upstreams receive a single
// X-Forwarded-For hop: clientIP of the inbound request, or its peer address when clientIP is nil.
// Inbound forwarding headers are never passed on.
func New(up Upstream, transport http.RoundTripper, clientIP middleware.KeyFunc, logger *zap.Logger) (*httputil.ReverseProxy, error) {
	target, err := parseBaseURL(up.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("proxy: %s: %w", up.Name, err)
	}
	unavailable := fmt.Sprintf("%s service unavailable", up.Name)

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			if clientIP != nil {
				pr.Out.Header.Set("X-Forwarded-For", clientIP(pr.In))
			}
			if id := pr.In.Header.Get(middleware.RequestIDHeader); id != "" {
				pr.Out.Header.Set(middleware.RequestIDHeader, id)
			}
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, context.Canceled) {
				logger.Debug("client went away", zap.String("upstream", up.Name), zap.String("path", r.URL.Path))
				return
			}
			logger.Warn("upstream request failed",
				zap.String("upstream", up.Name),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", r.Header.Get(middleware.RequestIDHeader)),
				zap.Error(err),
			)
			httpx.Fail(w, http.StatusBadGateway, unavailable)
		},
	}, nil
}

// NewTransport returns the transport shared by all upstreams. timeout bounds dialing and the wait
// for response headers; streaming bodies and upgraded websocket connections are not cut off.
func NewTransport(timeout time.Duration) *http.Transport {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty base url")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("base url %q has no host", raw)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	return u, nil
}
