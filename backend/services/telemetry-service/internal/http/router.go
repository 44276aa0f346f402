package httpserver

import (
	"net/http"

	"greenhouse/backend/libs/httpserver"
)

// Routes defines HTTP endpoints.
type Routes struct {
	Ingest    http.HandlerFunc
	LatestMap http.HandlerFunc
	Recent    http.HandlerFunc
	Latest    http.HandlerFunc
	Devices   http.HandlerFunc
	Live      http.Handler
	Health    http.HandlerFunc
	Ready     http.HandlerFunc
	Metrics   http.Handler
}

// NewRouter sets up HTTP routing.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	if routes.Ingest != nil {
		mux.Handle("POST /data", routes.Ingest)
	}
	if routes.LatestMap != nil {
		mux.Handle("GET /data", routes.LatestMap)
	}
	if routes.Latest != nil {
		mux.Handle("/api/measurements/latest", httpserver.Method(http.MethodGet, routes.Latest))
	}
	if routes.Live != nil {
		mux.Handle("/api/measurements/live", routes.Live)
	}
	if routes.Recent != nil {
		mux.Handle("/api/measurements/{device_id}", httpserver.Method(http.MethodGet, routes.Recent))
	}
	if routes.Devices != nil {
		mux.Handle("/api/devices", httpserver.Method(http.MethodGet, routes.Devices))
	}
	if routes.Health != nil {
		mux.Handle("/health", httpserver.Method(http.MethodGet, routes.Health))
		mux.Handle("/api/health", httpserver.Method(http.MethodGet, routes.Health))
	}
	if routes.Ready != nil {
		mux.Handle("/readyz", httpserver.Method(http.MethodGet, routes.Ready))
	}
	if routes.Metrics != nil {
		mux.Handle("/metrics", routes.Metrics)
	}
	return mux
}
