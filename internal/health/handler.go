// Package health serves liveness and readiness checks.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Handler is the liveness check.
func Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Check is one readiness dependency.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

// checkTimeout bounds each readiness check.
const checkTimeout = 2 * time.Second

// ReadyHandler runs every check and answers 503 if any fails.
func ReadyHandler(checks ...Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		results := make(map[string]string, len(checks))

		for _, check := range checks {
			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			err := check.Fn(ctx)
			cancel()

			if err != nil {
				status = http.StatusServiceUnavailable
				results[check.Name] = "unavailable"
				continue
			}
			results[check.Name] = "ok"
		}

		body := map[string]interface{}{"status": "ready", "checks": results}
		if status != http.StatusOK {
			body["status"] = "not ready"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
