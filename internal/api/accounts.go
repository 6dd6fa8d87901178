package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cursorkit/switchboard/internal/registry"
	"github.com/cursorkit/switchboard/internal/token"
)

// AccountsListHandler returns every stored account.
func AccountsListHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"accounts": reg.List(),
		})
	}
}

// SaveAccountRequest is the add/update payload.
type SaveAccountRequest struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

// SaveAccountHandler stores a new account or updates an existing one.
// The credential is normalized first; a malformed token is rejected and
// nothing is persisted.
func SaveAccountHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SaveAccountRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body", Class: "bad_request"})
			return
		}

		forms, err := token.Normalize(req.Token)
		if err != nil {
			writeError(w, err)
			return
		}

		prof := &registry.Profile{
			SubjectID: forms.SubjectID,
			LongLived: forms.LongLived,
			Composite: forms.Composite,
		}
		if claims, err := token.DecodePayload(forms.LongLived); err == nil {
			prof.Email = claims.Email
		}

		acct := registry.Account{
			ID:            req.ID,
			DisplayName:   req.Name,
			RawCredential: forms.Best(),
			Profile:       prof,
		}
		if acct.DisplayName == "" {
			acct.DisplayName = prof.Email
		}

		var saved registry.Account
		if req.ID != "" {
			if existing, ok := reg.Get(req.ID); ok {
				acct.IsActive = existing.IsActive
				saved, err = reg.Update(acct)
			} else {
				saved, err = reg.Add(acct)
			}
		} else {
			saved, err = reg.Add(acct)
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

// DeleteAccountHandler removes one account by id.
func DeleteAccountHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := reg.Delete(id); err != nil {
			writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error(), Class: "not_found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// DeleteByPlanHandler bulk-removes accounts on the given plan tier.
func DeleteByPlanHandler(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Plan string `json:"plan"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Plan == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "plan is required", Class: "bad_request"})
			return
		}
		removed, err := reg.DeleteByPlan(req.Plan)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"removed": removed,
			"message": fmt.Sprintf("removed %d account(s) on plan %s", removed, req.Plan),
		})
	}
}
