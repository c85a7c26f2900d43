package webhook

import (
	"encoding/json"

	"github.com/sells-group/leadscout/pkg/prospect"
)

// Event kinds delivered by the provider.
const (
	EventItemsDiscovered     = "items.discovered"
	EventSessionIdle         = "session.idle"
	EventEnrichmentCompleted = "enrichment.completed"
)

// Event is the webhook envelope: a type tag and a kind-specific
// payload.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ItemsDiscoveredData is the payload of items.discovered.
type ItemsDiscoveredData struct {
	SessionID string          `json:"sessionId"`
	Items     []prospect.Item `json:"items"`
}

// SessionIdleData is the payload of session.idle.
type SessionIdleData struct {
	SessionID string                   `json:"sessionId"`
	Counters  prospect.SessionCounters `json:"counters"`
}

// EnrichmentCompletedData is the payload of enrichment.completed. The
// items embed the completed enrichment results.
type EnrichmentCompletedData struct {
	SessionID    string          `json:"sessionId"`
	EnrichmentID string          `json:"enrichmentId,omitempty"`
	Items        []prospect.Item `json:"items"`
}
