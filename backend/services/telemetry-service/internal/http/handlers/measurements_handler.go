package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"greenhouse/backend/services/telemetry-service/internal/repository"
	"greenhouse/backend/services/telemetry-service/internal/service"
)

// MeasurementQuerier is the read side used by the measurement endpoints.
type MeasurementQuerier interface {
	Recent(ctx context.Context, deviceID string, limit int) ([]service.Reading, error)
	Latest(ctx context.Context, deviceID string) (*service.Reading, error)
	Devices(ctx context.Context) ([]string, error)
}

// NewRecentHandler handles GET /api/measurements/{device_id}?limit=N.
func NewRecentHandler(q MeasurementQuerier, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := service.ParseLimit(r.URL.Query().Get("limit"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		readings, err := q.Recent(r.Context(), r.PathValue("device_id"), limit)
		if err != nil {
			writeQueryError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, readings)
	}
}

// NewLatestHandler handles GET /api/measurements/latest?device_id=ID. The
// body is null when the device has no readings.
func NewLatestHandler(q MeasurementQuerier, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reading, err := q.Latest(r.Context(), r.URL.Query().Get("device_id"))
		if err != nil {
			writeQueryError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, reading)
	}
}

// NewDevicesHandler handles GET /api/devices.
func NewDevicesHandler(q MeasurementQuerier, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		devices, err := q.Devices(r.Context())
		if err != nil {
			writeQueryError(w, logger, err)
			return
		}
		writeJSON(w, http.StatusOK, devices)
	}
}

func writeQueryError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if errors.Is(err, repository.ErrInvalidArgument) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Error("measurement query failed", zap.Error(err))
	writeError(w, http.StatusServiceUnavailable, "storage unavailable")
}
