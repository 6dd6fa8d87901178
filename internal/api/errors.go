package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cursorkit/switchboard/internal/negotiate"
	"github.com/cursorkit/switchboard/internal/profile"
	"github.com/cursorkit/switchboard/internal/switcher"
	"github.com/cursorkit/switchboard/internal/token"
)

// errorBody is the JSON error envelope. The class tells the UI which
// remedy to offer (re-enter token, configure path, retry).
type errorBody struct {
	Error string `json:"error"`
	Class string `json:"class"`
}

// classify maps the domain sentinels onto HTTP status and error class.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, token.ErrFormat):
		return http.StatusBadRequest, "format_error"
	case errors.Is(err, token.ErrDecode):
		return http.StatusBadRequest, "decode_error"
	case errors.Is(err, profile.ErrNotAuthenticated):
		return http.StatusUnauthorized, "not_authenticated"
	case errors.Is(err, profile.ErrNoProfile):
		return http.StatusBadGateway, "no_profile"
	case errors.Is(err, negotiate.ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, switcher.ErrTargetNotInstalled):
		return http.StatusConflict, "target_not_installed"
	default:
		return http.StatusInternalServerError, "unknown"
	}
}

func writeError(w http.ResponseWriter, err error) {
	status, class := classify(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: err.Error(), Class: class})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
