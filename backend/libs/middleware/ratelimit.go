package middleware

import (
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"evcharge/backend/libs/httpx"
	"evcharge/backend/libs/ratelimit"
)

// RateLimit rejects callers exceeding limiter's budget, keyed by key (ClientIP when nil).
// Limiter failures are logged and the request is let through.
func RateLimit(limiter *ratelimit.Limiter, message string, key KeyFunc, logger *zap.Logger) Middleware {
	if message == "" {
		message = "Too many requests from this IP, please try again later."
	}
	if key == nil {
		key = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			res, err := limiter.Allow(r.Context(), key(r))
			if err != nil {
				logger.Warn("rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			reset := int(math.Ceil(res.ResetIn.Seconds()))
			h := w.Header()
			h.Set("RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("RateLimit-Reset", strconv.Itoa(reset))

			if !res.Allowed {
				h.Set("Retry-After", strconv.Itoa(reset))
				httpx.Fail(w, http.StatusTooManyRequests, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
