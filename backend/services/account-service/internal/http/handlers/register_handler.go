package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"greenhouse/backend/services/account-service/internal/service"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NewRegisterHandler returns HTTP handler for POST /api/register.
func NewRegisterHandler(accounts *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentials
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		user, err := accounts.Register(r.Context(), req.Username, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrMissingFields):
				writeError(w, http.StatusBadRequest, "Missing fields")
			case errors.Is(err, service.ErrUsernameTaken):
				writeError(w, http.StatusConflict, "User already exists")
			default:
				logger.Error("failed to register user", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "failed to create user")
			}
			return
		}

		writeJSON(w, http.StatusOK, successResponse{
			Success: true,
			User:    &userResponse{ID: user.ID, Username: user.Username},
		})
	}
}
