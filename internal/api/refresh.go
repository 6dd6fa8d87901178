package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cursorkit/switchboard/internal/switcher"
)

// RefreshAccountHandler re-resolves one account's remote profile.
func RefreshAccountHandler(orch *switcher.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		acct, err := orch.Refresh(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, acct)
	}
}

// RefreshAllHandler refreshes every account with bounded concurrency
// and reports per-batch counts.
func RefreshAllHandler(orch *switcher.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, failed := orch.RefreshAll(r.Context())
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"succeeded": ok,
			"failed":    failed,
		})
	}
}

// SyncLocalHandler imports the target application's current session as
// an account and activates it.
func SyncLocalHandler(orch *switcher.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		acct, err := orch.SyncLocal(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, acct)
	}
}
