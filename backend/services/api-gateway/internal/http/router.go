package httpserver

import (
	"net/http"
	"strings"

	"greenhouse/backend/libs/httpserver"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	Telemetry http.HandlerFunc
	Account   http.HandlerFunc
	Live      http.Handler
	Weather   http.HandlerFunc
	Health    http.HandlerFunc
	Metrics   http.Handler
}

// NewRouter wires gateway routes onto their upstreams.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/health", httpserver.Method(http.MethodGet, deps.Health))
	mux.Handle("/api/health", httpserver.Method(http.MethodGet, deps.Health))
	mux.Handle("/api/weather", httpserver.Method(http.MethodGet, deps.Weather))
	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics)
	}

	for _, p := range []string{"/data", "/api/devices", "/api/measurements/"} {
		mux.Handle(p, deps.Telemetry)
	}
	if deps.Live != nil {
		mux.Handle("/api/measurements/live", deps.Live)
	}

	for _, p := range []string{"/api/register", "/api/login", "/api/user/device", "/api/plants", "/api/plants/"} {
		mux.Handle(p, deps.Account)
	}
	return mux
}

// RouteLabel maps a request path onto a fixed metrics label.
func RouteLabel(r *http.Request) string {
	p := r.URL.Path
	switch {
	case p == "/api/measurements/live":
		return "live"
	case strings.HasPrefix(p, "/api/measurements/"):
		return "measurements"
	case strings.HasPrefix(p, "/api/plants"):
		return "plants"
	case p == "/data", p == "/api/devices", p == "/api/register", p == "/api/login",
		p == "/api/user/device", p == "/api/weather", p == "/health", p == "/api/health", p == "/metrics":
		return strings.TrimPrefix(strings.TrimPrefix(p, "/api"), "/")
	default:
		return "other"
	}
}
