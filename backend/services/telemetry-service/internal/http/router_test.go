package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func named(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(name))
	}
}

func TestRouterDispatch(t *testing.T) {
	h := NewRouter(Routes{
		Ingest:    named("ingest"),
		LatestMap: named("latest-map"),
		Recent:    named("recent"),
		Latest:    named("latest"),
		Live:      named("live"),
		Devices:   named("devices"),
		Health:    named("health"),
	})

	cases := []struct {
		method, path, want string
		status             int
	}{
		{http.MethodPost, "/data", "ingest", http.StatusOK},
		{http.MethodGet, "/data", "latest-map", http.StatusOK},
		{http.MethodGet, "/api/measurements/latest", "latest", http.StatusOK},
		{http.MethodGet, "/api/measurements/live", "live", http.StatusOK},
		{http.MethodGet, "/api/measurements/gh-1", "recent", http.StatusOK},
		{http.MethodGet, "/api/devices", "devices", http.StatusOK},
		{http.MethodGet, "/api/health", "health", http.StatusOK},
		{http.MethodPost, "/api/devices", "", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/data", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/readyz", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.status, rec.Code, "%s %s", tc.method, tc.path)
		if tc.want != "" {
			assert.Equal(t, tc.want, rec.Body.String(), "%s %s", tc.method, tc.path)
		}
	}
}
