package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"greenhouse/backend/services/api-gateway/internal/clients"
	"greenhouse/backend/services/api-gateway/internal/models"
)

// WeatherSource returns current weather.
type WeatherSource interface {
	Current(ctx context.Context) (*models.Weather, error)
}

// NewWeatherHandler handles GET /api/weather.
func NewWeatherHandler(source WeatherSource, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		weather, err := source.Current(r.Context())
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, weather)
		case errors.Is(err, clients.ErrWeatherKeyMissing):
			writeError(w, http.StatusInternalServerError, "Weather API key missing")
		case errors.Is(err, clients.ErrWeatherAPI):
			logger.Warn("weather api error", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Weather API error")
		case errors.Is(err, clients.ErrCircuitOpen):
			writeError(w, http.StatusServiceUnavailable, "Weather API temporarily unavailable")
		default:
			logger.Error("weather request failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Weather API failed")
		}
	}
}
