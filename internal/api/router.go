// Package api exposes the account-switcher's operations over HTTP for
// the UI: account CRUD, token parsing, switch with SSE progress,
// refresh, sync, settings, and environment scan.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/cursorkit/switchboard/internal/registry"
	"github.com/cursorkit/switchboard/internal/switcher"
)

// NewRouter assembles the API surface.
func NewRouter(reg *registry.Registry, orch *switcher.Orchestrator) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		// Account management
		r.Get("/accounts", AccountsListHandler(reg))
		r.Post("/accounts", SaveAccountHandler(reg))
		r.Delete("/accounts/{id}", DeleteAccountHandler(reg))
		r.Post("/accounts/delete-by-plan", DeleteByPlanHandler(reg))

		// Per-account operations
		r.Post("/accounts/{id}/switch", SwitchHandler(orch))
		r.Post("/accounts/{id}/refresh", RefreshAccountHandler(orch))

		// Token utilities
		r.Post("/parse", ParseTokenHandler())
		r.Post("/convert", ConvertTokenHandler())

		// Bulk operations
		r.Post("/refresh", RefreshAllHandler(orch))
		r.Post("/sync", SyncLocalHandler(orch))

		// Settings and environment
		r.Get("/settings", SettingsHandler(reg))
		r.Put("/settings", UpdateSettingsHandler(reg))
		r.Get("/scan", ScanHandler())
		r.Get("/version", VersionHandler())
	})

	return r
}
