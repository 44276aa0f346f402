package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"greenhouse/backend/services/account-service/internal/service"
)

// NewDeviceHandler serves GET, POST and DELETE on /api/user/device for the
// user named by the X-User-ID header.
func NewDeviceHandler(registry *service.RegistryService, logger *zap.Logger) http.HandlerFunc {
	type request struct {
		DeviceName string `json:"deviceName"`
		DeviceUID  string `json:"deviceUid"`
		PlantID    *int64 `json:"plantId"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := userID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		switch r.Method {
		case http.MethodGet:
			device, err := registry.Device(r.Context(), uid)
			if err != nil {
				logger.Error("failed to load device", zap.Int64("user_id", uid), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "failed to load device")
				return
			}
			writeJSON(w, http.StatusOK, device)

		case http.MethodPost:
			var req request
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON body")
				return
			}
			err := registry.SaveDevice(r.Context(), uid, req.DeviceName, req.DeviceUID, req.PlantID)
			switch {
			case err == nil:
				writeJSON(w, http.StatusOK, successResponse{Success: true})
			case errors.Is(err, service.ErrMissingDeviceUID):
				writeError(w, http.StatusBadRequest, "deviceUid is required")
			case errors.Is(err, service.ErrUnknownReference):
				writeError(w, http.StatusBadRequest, "unknown user or plant")
			default:
				logger.Error("failed to save device", zap.Int64("user_id", uid), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "failed to save device")
			}

		case http.MethodDelete:
			if err := registry.RemoveDevice(r.Context(), uid); err != nil {
				logger.Error("failed to remove device", zap.Int64("user_id", uid), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "failed to remove device")
				return
			}
			writeJSON(w, http.StatusOK, successResponse{Success: true})

		default:
			w.Header().Set("Allow", "GET, POST, DELETE")
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}
