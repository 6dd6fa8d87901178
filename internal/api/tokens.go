package api

import (
	"encoding/json"
	"net/http"

	"github.com/cursorkit/switchboard/internal/token"
)

type tokenRequest struct {
	Token string `json:"token"`
}

// ParseTokenHandler normalizes an arbitrary credential string and
// returns every derivable form plus the decoded payload claims. Nothing
// is persisted.
func ParseTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body", Class: "bad_request"})
			return
		}
		forms, err := token.Normalize(req.Token)
		if err != nil {
			writeError(w, err)
			return
		}
		resp := map[string]any{
			"subjectId":     forms.SubjectID,
			"longTermToken": forms.LongLived,
			"cookieFormat":  forms.Composite,
		}
		if claims, err := token.DecodePayload(forms.LongLived); err == nil {
			resp["claims"] = claims
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ConvertTokenHandler turns a bare long-lived credential into the
// composite cookie form. Fails when no subject id can be recovered.
func ConvertTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req tokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body", Class: "bad_request"})
			return
		}
		forms, err := token.Normalize(req.Token)
		if err != nil {
			writeError(w, err)
			return
		}
		if forms.Composite == "" {
			writeError(w, token.ErrFormat)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"cookieFormat": forms.Composite,
			"subjectId":    forms.SubjectID,
		})
	}
}
