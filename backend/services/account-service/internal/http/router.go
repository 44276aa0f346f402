package httpserver

import (
	"net/http"

	"greenhouse/backend/libs/httpserver"
)

// Routes aggregates handlers for HTTP server.
type Routes struct {
	Register http.HandlerFunc
	Login    http.HandlerFunc
	Device   http.HandlerFunc
	Plants   http.HandlerFunc
	Plant    http.HandlerFunc
	Health   http.HandlerFunc
}

// NewRouter wires all HTTP routes.
func NewRouter(routes Routes) http.Handler {
	mux := http.NewServeMux()
	if routes.Register != nil {
		mux.Handle("/api/register", httpserver.Method(http.MethodPost, routes.Register))
	}
	if routes.Login != nil {
		mux.Handle("/api/login", httpserver.Method(http.MethodPost, routes.Login))
	}
	if routes.Device != nil {
		mux.Handle("/api/user/device", routes.Device)
	}
	if routes.Plants != nil {
		mux.Handle("/api/plants", httpserver.Method(http.MethodGet, routes.Plants))
	}
	if routes.Plant != nil {
		mux.Handle("/api/plants/{id}", httpserver.Method(http.MethodGet, routes.Plant))
	}
	if routes.Health != nil {
		mux.Handle("/health", httpserver.Method(http.MethodGet, routes.Health))
		mux.Handle("/api/health", httpserver.Method(http.MethodGet, routes.Health))
	}
	return mux
}
