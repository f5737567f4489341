package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"evcharge/backend/libs/httpx"
)

// HealthInfo describes the running process for health responses.
type HealthInfo struct {
	Service     string
	Environment string
	Version     string
	Started     time.Time
}

// HealthHandler reports liveness in the shared envelope.
func HealthHandler(info HealthInfo) http.HandlerFunc {
	now := time.Now
	if info.Started.IsZero() {
		info.Started = now()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.OK(w, http.StatusOK, map[string]interface{}{
			"message":     fmt.Sprintf("%s is running", info.Service),
			"timestamp":   now().UTC().Format(time.RFC3339),
			"environment": info.Environment,
			"version":     info.Version,
			"uptime":      now().Sub(info.Started).Seconds(),
		})
	}
}
