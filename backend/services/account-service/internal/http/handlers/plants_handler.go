package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"greenhouse/backend/services/account-service/internal/service"
)

// NewPlantsHandler handles GET /api/plants.
func NewPlantsHandler(registry *service.RegistryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		plants, err := registry.Plants(r.Context())
		if err != nil {
			logger.Error("failed to list plants", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "DB error")
			return
		}
		writeJSON(w, http.StatusOK, plants)
	}
}

// NewPlantHandler handles GET /api/plants/{id}.
func NewPlantHandler(registry *service.RegistryService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusNotFound, "Plant not found")
			return
		}

		plant, err := registry.Plant(r.Context(), id)
		if err != nil {
			if errors.Is(err, service.ErrPlantNotFound) {
				writeError(w, http.StatusNotFound, "Plant not found")
				return
			}
			logger.Error("failed to load plant", zap.Int64("plant_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to load plant")
			return
		}
		writeJSON(w, http.StatusOK, plant)
	}
}
