package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// UserIDHeader carries the caller's user id, set by the client after login.
const UserIDHeader = "X-User-ID"

var errNoUser = errors.New("missing or invalid " + UserIDHeader + " header")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func userID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(r.Header.Get(UserIDHeader)), 10, 64)
	if err != nil || id <= 0 {
		return 0, errNoUser
	}
	return id, nil
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type successResponse struct {
	Success bool          `json:"success"`
	User    *userResponse `json:"user,omitempty"`
}
