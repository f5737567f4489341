package middleware

import (
	"net/http"
	"strings"

	"evcharge/backend/libs/httpx"
)

var (
	corsMethods = "GET, POST, PUT, DELETE, PATCH, OPTIONS"
	corsHeaders = "Content-Type, Authorization, X-Requested-With, Accept, Origin"
)

// DevOrigins are the local front-end origins accepted outside production.
func DevOrigins() []string {
	ports := []string{"3000", "5173", "8080", "4200"}
	out := make([]string, 0, len(ports)*2)
	for _, host := range []string{"localhost", "127.0.0.1"} {
		for _, p := range ports {
			out = append(out, "http://"+host+":"+p)
		}
	}
	return out
}

// CORS allows the listed origins with credentials. Requests without an Origin header pass through;
// any other origin is rejected with 403.
func CORS(allowed []string) Middleware {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.TrimSpace(o), "/")] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := set[strings.TrimRight(origin, "/")]; !ok {
				httpx.Fail(w, http.StatusForbidden, "Not allowed by CORS")
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", corsMethods)
				h.Set("Access-Control-Allow-Headers", corsHeaders)
				h.Set("Access-Control-Max-Age", "600")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
