package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"go.uber.org/zap"
)

// maxBodyBytes caps webhook request bodies.
const maxBodyBytes = 1 << 20

// Handler returns the HTTP handler for provider callbacks. It rejects
// bad signatures at the boundary, acknowledges with 202 right away,
// and processes the event asynchronously.
func (i *Ingestor) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			http.Error(w, `{"error":"read body"}`, http.StatusBadRequest)
			return
		}

		if !VerifySignature(i.secret, body, r.Header.Get(SignatureHeader)) {
			zap.L().Warn("webhook signature rejected")
			http.Error(w, `{"error":"invalid signature"}`, http.StatusUnauthorized)
			return
		}

		var evt Event
		if err := json.Unmarshal(body, &evt); err != nil {
			http.Error(w, `{"error":"invalid event body"}`, http.StatusBadRequest)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})

		i.schedule(evt)
	}
}
