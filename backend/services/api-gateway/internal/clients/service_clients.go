package clients

import (
	"context"
	"net/http"
)

// ServiceClient forwards gateway requests to one backend service.
type ServiceClient struct {
	base *BaseClient
}

// NewTelemetryClient returns the telemetry-service client.
func NewTelemetryClient(baseURL string, httpClient HTTPDoer, settings BreakerSettings) *ServiceClient {
	return &ServiceClient{base: NewBaseClient("telemetry-service", baseURL, httpClient, settings)}
}

// NewAccountClient returns the account-service client.
func NewAccountClient(baseURL string, httpClient HTTPDoer, settings BreakerSettings) *ServiceClient {
	return &ServiceClient{base: NewBaseClient("account-service", baseURL, httpClient, settings)}
}

// Name identifies the upstream.
func (c *ServiceClient) Name() string { return c.base.Name() }

// Forward replays method and requestURI (path plus query) upstream.
func (c *ServiceClient) Forward(ctx context.Context, method, requestURI string, body []byte, headers map[string]string) (int, []byte, error) {
	return c.base.Do(ctx, method, requestURI, body, headers)
}

// Health probes the upstream /health endpoint.
func (c *ServiceClient) Health(ctx context.Context) (int, []byte, error) {
	return c.base.Do(ctx, http.MethodGet, "/health", nil, nil)
}
