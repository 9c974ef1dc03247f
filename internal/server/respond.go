package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/spinnelein/familybook/internal/shared"
)

type errorResponse struct {
	Success      bool   `json:"success"`
	Error        string `json:"error"`
	AuthRequired bool   `json:"auth_required,omitempty"`
	AuthURL      string `json:"auth_url,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// needsAuth reports whether err can only be fixed by linking the Google account again.
func needsAuth(err error) bool {
	return errors.Is(err, shared.ErrAuthenticationRequired) ||
		errors.Is(err, shared.ErrRefreshFailed) ||
		errors.Is(err, shared.ErrInsufficientScope)
}

// statusFor maps a sentinel to an HTTP status.
func statusFor(err error) int {
	switch {
	case needsAuth(err):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrStateMismatch),
		errors.Is(err, shared.ErrAuthorizationDenied),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrAuthFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
