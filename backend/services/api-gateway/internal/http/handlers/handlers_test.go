package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"greenhouse/backend/services/api-gateway/internal/clients"
	"greenhouse/backend/services/api-gateway/internal/models"
)

type fakeUpstream struct {
	name    string
	status  int
	body    string
	err     error
	method  string
	uri     string
	payload string
	headers map[string]string
}

func (f *fakeUpstream) Name() string { return f.name }

func (f *fakeUpstream) Forward(_ context.Context, method, uri string, body []byte, headers map[string]string) (int, []byte, error) {
	f.method, f.uri, f.payload, f.headers = method, uri, string(body), headers
	if f.err != nil {
		return 0, nil, f.err
	}
	return f.status, []byte(f.body), nil
}

func (f *fakeUpstream) Health(context.Context) (int, []byte, error) {
	if f.err != nil {
		return 0, nil, f.err
	}
	return f.status, nil, nil
}

func TestProxyRelaysRequestAndAnswer(t *testing.T) {
	up := &fakeUpstream{name: "account-service", status: http.StatusConflict, body: `{"error":"User already exists"}`}
	req := httptest.NewRequest(http.MethodPost, "/api/register?x=1", strings.NewReader(`{"username":"a"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "3")
	req.Header.Set("Authorization", "Bearer dropped")
	rec := httptest.NewRecorder()

	NewProxyHandler(up, zap.NewNop()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"User already exists"}`, rec.Body.String())
	assert.Equal(t, http.MethodPost, up.method)
	assert.Equal(t, "/api/register?x=1", up.uri)
	assert.Equal(t, `{"username":"a"}`, up.payload)
	assert.Equal(t, map[string]string{"Content-Type": "application/json", "X-User-ID": "3"}, up.headers)
}

func TestProxyErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("telemetry-service: %w", clients.ErrCircuitOpen), http.StatusServiceUnavailable},
		{fmt.Errorf("telemetry-service: %w: dial tcp: refused", clients.ErrUpstreamUnavailable), http.StatusBadGateway},
	}
	for _, tc := range cases {
		up := &fakeUpstream{name: "telemetry-service", err: tc.err}
		rec := httptest.NewRecorder()
		NewProxyHandler(up, zap.NewNop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/devices", nil))
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Contains(t, rec.Body.String(), "telemetry-service")
	}
}

type fakeWeather struct {
	w   *models.Weather
	err error
}

func (f fakeWeather) Current(context.Context) (*models.Weather, error) { return f.w, f.err }

func TestWeatherHandler(t *testing.T) {
	ok := fakeWeather{w: &models.Weather{City: "Košice", Temp: 12.5, Humidity: 70, Wind: 3, Description: "clear sky", Icon: "01d", Time: "2024-05-01T12:00:00Z"}}
	rec := httptest.NewRecorder()
	NewWeatherHandler(ok, zap.NewNop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/weather", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"city":"Košice","temp":12.5,"humidity":70,"wind":3,"description":"clear sky","icon":"01d","time":"2024-05-01T12:00:00Z"}`, rec.Body.String())

	cases := map[string]struct {
		err    error
		status int
		body   string
	}{
		"missing key": {clients.ErrWeatherKeyMissing, http.StatusInternalServerError, `{"error":"Weather API key missing"}`},
		"api error":   {fmt.Errorf("%w: status 401", clients.ErrWeatherAPI), http.StatusInternalServerError, `{"error":"Weather API error"}`},
		"open":        {clients.ErrCircuitOpen, http.StatusServiceUnavailable, `{"error":"Weather API temporarily unavailable"}`},
		"other":       {errors.New("boom"), http.StatusInternalServerError, `{"error":"Weather API failed"}`},
	}
	for name, tc := range cases {
		rec := httptest.NewRecorder()
		NewWeatherHandler(fakeWeather{err: tc.err}, zap.NewNop()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/weather", nil))
		assert.Equal(t, tc.status, rec.Code, name)
		assert.JSONEq(t, tc.body, rec.Body.String(), name)
	}
}

func TestHealthHandlerReportsUpstreams(t *testing.T) {
	up := &fakeUpstream{name: "telemetry-service", status: http.StatusOK}
	down := &fakeUpstream{name: "account-service", err: errors.New("refused")}

	rec := httptest.NewRecorder()
	NewHealthHandler(up, down).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","upstreams":{"telemetry-service":"up","account-service":"down"}}`, rec.Body.String())

	rec = httptest.NewRecorder()
	NewHealthHandler(up).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"ok","upstreams":{"telemetry-service":"up"}}`, rec.Body.String())
}
