package config

import (
	"errors"
	"strings"
	"time"

	libconfig "greenhouse/backend/libs/config"
	"greenhouse/backend/libs/httpserver"
)

const defaultHTTPPort = "8080"

// Config defines gateway configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"API_GATEWAY_HTTP_PORT"`
	} `yaml:"http"`
	Services struct {
		TelemetryURL string `yaml:"telemetryUrl" env:"TELEMETRY_SERVICE_URL"`
		AccountURL   string `yaml:"accountUrl" env:"ACCOUNT_SERVICE_URL"`
	} `yaml:"services"`
	HTTPClient struct {
		Timeout time.Duration `yaml:"timeout" env:"API_GATEWAY_HTTP_TIMEOUT"`
	} `yaml:"httpClient"`
	Breaker BreakerConfig `yaml:"breaker"`
	Weather WeatherConfig `yaml:"weather"`
}

// BreakerConfig tunes the circuit breaker in front of each upstream.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"maxFailures" env:"API_GATEWAY_BREAKER_FAILURES"`
	OpenTimeout time.Duration `yaml:"openTimeout" env:"API_GATEWAY_BREAKER_OPEN_TIMEOUT"`
	Interval    time.Duration `yaml:"interval" env:"API_GATEWAY_BREAKER_INTERVAL"`
}

// WeatherConfig configures the OpenWeather proxy. An empty APIKey makes
// /api/weather answer 500.
type WeatherConfig struct {
	APIKey   string        `yaml:"apiKey" env:"WEATHER_API_KEY"`
	City     string        `yaml:"city" env:"WEATHER_CITY"`
	BaseURL  string        `yaml:"baseUrl" env:"WEATHER_BASE_URL"`
	CacheTTL time.Duration `yaml:"cacheTTL" env:"WEATHER_CACHE_TTL"`
}

// Load configuration via shared helper.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = defaultHTTPPort
	cfg.Services.TelemetryURL = "http://localhost:8084"
	cfg.Services.AccountURL = "http://localhost:8085"
	cfg.HTTPClient.Timeout = 5 * time.Second
	cfg.Breaker = BreakerConfig{MaxFailures: 5, OpenTimeout: 30 * time.Second, Interval: time.Minute}
	cfg.Weather = WeatherConfig{
		City:     "Kosice",
		BaseURL:  "https://api.openweathermap.org",
		CacheTTL: 5 * time.Minute,
	}

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate implements libconfig.Validator.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Services.TelemetryURL) == "" {
		return errors.New("telemetry service url required")
	}
	if strings.TrimSpace(c.Services.AccountURL) == "" {
		return errors.New("account service url required")
	}
	if c.HTTPClient.Timeout <= 0 {
		c.HTTPClient.Timeout = 5 * time.Second
	}
	if c.Breaker.MaxFailures == 0 {
		return errors.New("breaker max failures must be positive")
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	return httpserver.Address(c.HTTP.Port, defaultHTTPPort)
}
