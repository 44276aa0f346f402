package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"greenhouse/backend/services/telemetry-service/internal/decoder"
	"greenhouse/backend/services/telemetry-service/internal/ingest"
	"greenhouse/backend/services/telemetry-service/internal/models"
	"greenhouse/backend/services/telemetry-service/internal/repository"
	"greenhouse/backend/services/telemetry-service/internal/service"
)

const maxPayloadBytes = 64 << 10

// Ingester accepts raw sensor payloads.
type Ingester interface {
	Handle(ctx context.Context, source, topic string, payload []byte) (*models.Measurement, ingest.Outcome, error)
}

// LatestReader serves the latest reading of every device.
type LatestReader interface {
	LatestAll(ctx context.Context) (map[string]service.Reading, error)
}

// NewIngestHandler handles POST /data, the HTTP entry for devices that
// cannot speak MQTT. Payloads go through the same pipeline as broker messages.
func NewIngestHandler(ingester Ingester, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
		if err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}

		_, _, err = ingester.Handle(r.Context(), ingest.SourceHTTP, r.URL.Path, payload)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		case errors.Is(err, ingest.ErrRateLimited):
			writeJSON(w, http.StatusOK, map[string]string{"status": "skipped"})
		case errors.Is(err, decoder.ErrMalformedPayload):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrConstraintViolation), errors.Is(err, repository.ErrInvalidArgument):
			writeError(w, http.StatusBadRequest, "measurement rejected by storage")
		default:
			logger.Error("failed to ingest http payload", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "storage unavailable")
		}
	}
}

// NewLatestMapHandler handles GET /data.
func NewLatestMapHandler(reader LatestReader, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := reader.LatestAll(r.Context())
		if err != nil {
			logger.Error("failed to read latest readings", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
		writeJSON(w, http.StatusOK, all)
	}
}
