package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

var (
	// ErrUpstreamUnavailable wraps transport failures talking to an upstream.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrCircuitOpen is returned without calling the upstream while its
	// breaker is open or half-open and saturated.
	ErrCircuitOpen = errors.New("upstream circuit open")
)

// HTTPDoer defines http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// BreakerSettings configures the breaker of one upstream.
type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
	Interval    time.Duration
	// OnStateChange, when set, observes breaker transitions.
	OnStateChange func(name string, from, to gobreaker.State)
}

// BaseClient sends requests to one upstream through its circuit breaker.
// Transport errors and 5xx answers count as failures.
type BaseClient struct {
	name    string
	baseURL string
	client  HTTPDoer
	breaker *gobreaker.CircuitBreaker
}

// NewBaseClient builds client with base URL.
func NewBaseClient(name, baseURL string, client HTTPDoer, settings BreakerSettings) *BaseClient {
	if settings.MaxFailures == 0 {
		settings.MaxFailures = 5
	}
	maxFailures := settings.MaxFailures
	return &BaseClient{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     name,
			Interval: settings.Interval,
			Timeout:  settings.OpenTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= maxFailures
			},
			OnStateChange: settings.OnStateChange,
		}),
	}
}

// Name identifies the upstream.
func (c *BaseClient) Name() string { return c.name }

// State reports the breaker state.
func (c *BaseClient) State() gobreaker.State { return c.breaker.State() }

func (c *BaseClient) buildURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

type reply struct {
	status int
	body   []byte
}

type serverError struct{ status int }

func (e serverError) Error() string { return fmt.Sprintf("upstream answered %d", e.status) }

// Do executes HTTP request and returns status/body. A 5xx answer is returned
// to the caller as is but still counts against the breaker.
func (c *BaseClient) Do(ctx context.Context, method, path string, body []byte, headers map[string]string) (int, []byte, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		status, respBody, err := c.send(ctx, method, path, body, headers)
		if err != nil {
			return nil, err
		}
		r := reply{status: status, body: respBody}
		if status >= http.StatusInternalServerError {
			return r, serverError{status: status}
		}
		return r, nil
	})

	var se serverError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return 0, nil, fmt.Errorf("%s: %w", c.name, ErrCircuitOpen)
	case errors.As(err, &se):
		r := out.(reply)
		return r.status, r.body, nil
	case err != nil:
		return 0, nil, fmt.Errorf("%s: %w: %w", c.name, ErrUpstreamUnavailable, err)
	}
	r := out.(reply)
	return r.status, r.body, nil
}

func (c *BaseClient) send(ctx context.Context, method, path string, body []byte, headers map[string]string) (int, []byte, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path), reader)
	if err != nil {
		return 0, nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if len(body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, respBody, nil
}

// NewDefaultHTTPClient returns *http.Client with timeout.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
