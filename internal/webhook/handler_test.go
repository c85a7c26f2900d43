package webhook

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/internal/model"
	"github.com/sells-group/leadscout/internal/store"
)

func postWebhook(t *testing.T, ing *Ingestor, body []byte, sig string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/prospect", bytes.NewReader(body))
	if sig != "" {
		req.Header.Set(SignatureHeader, sig)
	}
	rec := httptest.NewRecorder()
	ing.Handler()(rec, req)
	return rec
}

func TestHandler_AcceptsAndProcesses(t *testing.T) {
	st := store.NewMemory()
	seedSession(t, st)
	ing := newIngestorForTest(t, st, "topsecret")

	body := []byte(`{"type":"session.idle","data":{"sessionId":"sess1","counters":{"found":4}}}`)
	rec := postWebhook(t, ing, body, Sign("topsecret", body))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"status":"accepted"}`, rec.Body.String())

	ing.Drain()
	run, err := store.GetAs[model.Run](context.Background(), st, store.RunKey("r1"))
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.Equal(t, 4, run.Counters.Found)
}

func TestHandler_RejectsBadSignature(t *testing.T) {
	st := store.NewMemory()
	seedSession(t, st)
	ing := newIngestorForTest(t, st, "topsecret")

	body := []byte(`{"type":"session.idle","data":{"sessionId":"sess1","counters":{}}}`)
	rec := postWebhook(t, ing, body, "sha256=deadbeef")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	ing.Drain()
	run, err := store.GetAs[model.Run](context.Background(), st, store.RunKey("r1"))
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusRunning, run.Status)
}

func TestHandler_RejectsMalformedBody(t *testing.T) {
	ing := newIngestorForTest(t, store.NewMemory(), "topsecret")

	body := []byte(`{not json`)
	rec := postWebhook(t, ing, body, Sign("topsecret", body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_EmptySecretAcceptsUnsigned(t *testing.T) {
	st := store.NewMemory()
	seedSession(t, st)
	ing := newIngestorForTest(t, st, "")

	rec := postWebhook(t, ing, []byte(`{"type":"noop.event","data":{}}`), "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	ing.Drain()
}
