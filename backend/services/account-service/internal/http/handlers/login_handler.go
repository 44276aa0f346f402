package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"greenhouse/backend/services/account-service/internal/service"
)

// NewLoginHandler handles POST /api/login.
func NewLoginHandler(accounts *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		user, err := accounts.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) {
				writeError(w, http.StatusUnauthorized, "Invalid credentials")
				return
			}
			logger.Error("failed to login", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to login")
			return
		}

		writeJSON(w, http.StatusOK, successResponse{
			Success: true,
			User:    &userResponse{ID: user.ID, Username: user.Username},
		})
	}
}
