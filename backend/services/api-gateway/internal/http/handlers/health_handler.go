package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// HealthChecker probes an upstream.
type HealthChecker interface {
	Name() string
	Health(ctx context.Context) (int, []byte, error)
}

// NewHealthHandler returns GET /health handler. The gateway answers 200 while
// it runs; upstream reachability is reported alongside.
func NewHealthHandler(upstreams ...HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		var (
			mu      sync.Mutex
			wg      sync.WaitGroup
			results = make(map[string]string, len(upstreams))
			status  = "ok"
		)
		for _, u := range upstreams {
			wg.Add(1)
			go func(u HealthChecker) {
				defer wg.Done()
				state := "up"
				if code, _, err := u.Health(ctx); err != nil || code != http.StatusOK {
					state = "down"
				}
				mu.Lock()
				results[u.Name()] = state
				if state != "up" {
					status = "degraded"
				}
				mu.Unlock()
			}(u)
		}
		wg.Wait()

		writeJSON(w, http.StatusOK, map[string]any{"status": status, "upstreams": results})
	}
}
