package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cursorkit/switchboard/internal/logging"
	"github.com/cursorkit/switchboard/internal/switcher"
)

// SetSSEHeaders sets standard headers for Server-Sent Events streaming.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

// SwitchHandler runs a switch and streams its progress events over SSE.
// The stream ends with either a DONE or an ERROR event; the HTTP status
// is always 200 because the outcome arrives in-stream.
func SwitchHandler(orch *switcher.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		opts := orch.DefaultOptions()
		if r.Body != nil {
			// An empty or absent body keeps the settings-derived defaults.
			var override struct {
				ResetIdentity *bool `json:"resetIdentity"`
				PurgeHistory  *bool `json:"purgeHistory"`
			}
			if err := json.NewDecoder(r.Body).Decode(&override); err == nil {
				if override.ResetIdentity != nil {
					opts.ResetIdentity = *override.ResetIdentity
				}
				if override.PurgeHistory != nil {
					opts.PurgeHistory = *override.PurgeHistory
				}
			}
		}

		opID := logging.GenerateOperationID()
		ctx := logging.WithOperationID(r.Context(), opID)
		log.Printf("🔀 [%s] Switch requested for account %s", opID, id)

		SetSSEHeaders(w)
		w.Header().Set("X-Operation-ID", opID)
		flusher, _ := w.(http.Flusher)
		sink := func(p switcher.Progress) {
			payload, err := json.Marshal(p)
			if err != nil {
				return
			}
			w.Write([]byte("data: "))
			w.Write(payload)
			w.Write([]byte("\n\n"))
			if flusher != nil {
				flusher.Flush()
			}
		}

		// The terminal event (DONE or ERROR) already reached the stream
		// through the sink; the error itself needs no second channel.
		if err := orch.Switch(ctx, id, opts, sink); err != nil {
			log.Printf("⚠️ [%s] Switch failed: %v", opID, err)
		}
	}
}
