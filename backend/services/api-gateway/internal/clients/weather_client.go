package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"greenhouse/backend/services/api-gateway/internal/models"
)

var (
	// ErrWeatherKeyMissing is returned when no OpenWeather API key is configured.
	ErrWeatherKeyMissing = errors.New("weather: api key missing")
	// ErrWeatherAPI is returned when OpenWeather answers with an error.
	ErrWeatherAPI = errors.New("weather: api error")
)

// WeatherOptions configures WeatherClient.
type WeatherOptions struct {
	APIKey   string
	City     string
	BaseURL  string
	CacheTTL time.Duration
	Breaker  BreakerSettings
}

// WeatherClient fetches current weather from OpenWeather and caches the
// last good answer for CacheTTL.
type WeatherClient struct {
	base   *BaseClient
	apiKey string
	city   string
	ttl    time.Duration
	now    func() time.Time

	mu        sync.Mutex
	cached    *models.Weather
	fetchedAt time.Time
}

// NewWeatherClient returns client.
func NewWeatherClient(opts WeatherOptions, httpClient HTTPDoer) *WeatherClient {
	return &WeatherClient{
		base:   NewBaseClient("openweather", opts.BaseURL, httpClient, opts.Breaker),
		apiKey: opts.APIKey,
		city:   opts.City,
		ttl:    opts.CacheTTL,
		now:    time.Now,
	}
}

type owmResponse struct {
	Cod  json.Number `json:"cod"`
	Name string      `json:"name"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Description string `json:"description"`
		Icon        string `json:"icon"`
	} `json:"weather"`
	Message string `json:"message"`
}

// Current returns the current weather for the configured city.
func (c *WeatherClient) Current(ctx context.Context) (*models.Weather, error) {
	if c.apiKey == "" {
		return nil, ErrWeatherKeyMissing
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cached != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		w := *c.cached
		return &w, nil
	}

	q := url.Values{}
	q.Set("q", c.city)
	q.Set("units", "metric")
	q.Set("appid", c.apiKey)
	status, body, err := c.base.Do(ctx, http.MethodGet, "/data/2.5/weather?"+q.Encode(), nil, nil)
	if err != nil {
		return nil, err
	}

	var resp owmResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode: %w", ErrWeatherAPI, err)
	}
	if status != http.StatusOK || resp.Cod.String() != "200" {
		return nil, fmt.Errorf("%w: status %d cod %s: %s", ErrWeatherAPI, status, resp.Cod, resp.Message)
	}

	now := c.now()
	w := &models.Weather{
		City:     resp.Name,
		Temp:     resp.Main.Temp,
		Humidity: resp.Main.Humidity,
		Wind:     resp.Wind.Speed,
		Time:     now.UTC().Format(time.RFC3339Nano),
	}
	if len(resp.Weather) > 0 {
		w.Description = resp.Weather[0].Description
		w.Icon = resp.Weather[0].Icon
	}
	c.cached, c.fetchedAt = w, now
	out := *w
	return &out, nil
}
