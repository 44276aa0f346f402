package app

import (
	"context"
	"fmt"
	"net/http/httputil"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"greenhouse/backend/libs/httpserver"
	"greenhouse/backend/services/api-gateway/internal/clients"
	"greenhouse/backend/services/api-gateway/internal/config"
	router "greenhouse/backend/services/api-gateway/internal/http"
	"greenhouse/backend/services/api-gateway/internal/http/handlers"
	"greenhouse/backend/services/api-gateway/internal/http/middleware"
)

// App wires API gateway dependencies.
type App struct {
	server *httpserver.Server
	logger *zap.Logger
}

// New constructs application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	httpClient := clients.NewDefaultHTTPClient(cfg.HTTPClient.Timeout)
	breaker := clients.BreakerSettings{
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: cfg.Breaker.OpenTimeout,
		Interval:    cfg.Breaker.Interval,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("upstream", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	telemetry := clients.NewTelemetryClient(cfg.Services.TelemetryURL, httpClient, breaker)
	account := clients.NewAccountClient(cfg.Services.AccountURL, httpClient, breaker)
	weather := clients.NewWeatherClient(clients.WeatherOptions{
		APIKey:   cfg.Weather.APIKey,
		City:     cfg.Weather.City,
		BaseURL:  cfg.Weather.BaseURL,
		CacheTTL: cfg.Weather.CacheTTL,
		Breaker:  breaker,
	}, httpClient)
	if cfg.Weather.APIKey == "" {
		logger.Warn("WEATHER_API_KEY not set; /api/weather will answer 500")
	}

	telemetryURL, err := url.Parse(cfg.Services.TelemetryURL)
	if err != nil {
		return nil, fmt.Errorf("telemetry service url: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	routes := router.NewRouter(router.RouterDeps{
		Telemetry: handlers.NewProxyHandler(telemetry, logger),
		Account:   handlers.NewProxyHandler(account, logger),
		Live:      httputil.NewSingleHostReverseProxy(telemetryURL),
		Weather:   handlers.NewWeatherHandler(weather, logger),
		Health:    handlers.NewHealthHandler(telemetry, account),
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	handler := middleware.Chain(routes,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.MetricsMiddleware(registry, router.RouteLabel),
		middleware.CORSMiddleware(),
	)

	return &App{
		server: httpserver.NewServer(cfg.HTTPAddress(), handler, logger),
		logger: logger,
	}, nil
}

// Run starts serving HTTP traffic.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}

// Close releases resources (none yet).
func (a *App) Close() {}
