package api

import (
	"encoding/json"
	"net/http"

	"github.com/cursorkit/switchboard/internal/registry"
	"github.com/cursorkit/switchboard/internal/target"
	"github.com/cursorkit/switchboard/internal/version"
)

// SettingsHandler returns the stored settings.
func SettingsHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, reg.Settings())
	}
}

// UpdateSettingsHandler replaces the stored settings.
func UpdateSettingsHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var s registry.Settings
		if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body", Class: "bad_request"})
			return
		}
		saved, err := reg.UpdateSettings(s)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

// ScanHandler probes the default install locations for the target
// application and its state store.
func ScanHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, target.Scan())
	}
}

// VersionHandler reports the build info.
func VersionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"version":   version.Version,
			"commit":    version.Commit,
			"buildTime": version.BuildTime,
		})
	}
}
