package prospect

// SessionStatus values reported by the provider.
const (
	SessionStatusRunning   = "running"
	SessionStatusIdle      = "idle"
	SessionStatusCanceled  = "canceled"
	SessionStatusCompleted = "completed"
	SessionStatusFailed    = "failed"
)

// CreateSessionRequest is the body for POST /sessions.
type CreateSessionRequest struct {
	Query         string   `json:"query"`
	Count         int      `json:"count"`
	EntityType    string   `json:"entityType,omitempty"`
	Criteria      []string `json:"criteria,omitempty"`
	CorrelationID string   `json:"correlationId,omitempty"`
	CallbackURL   string   `json:"callbackUrl,omitempty"`
}

// SessionCounters are the provider's progress counts for a session.
type SessionCounters struct {
	Found    int `json:"found"`
	Enriched int `json:"enriched"`
	Selected int `json:"selected"`
	Analyzed int `json:"analyzed"`
}

// Session is a provider-managed discovery execution.
type Session struct {
	ID       string          `json:"id"`
	Status   string          `json:"status"`
	Counters SessionCounters `json:"counters"`
}

// AppendSearchRequest is the body for POST /sessions/{id}/searches.
type AppendSearchRequest struct {
	Query    string   `json:"query"`
	Count    int      `json:"count"`
	Criteria []string `json:"criteria,omitempty"`
}

// SubSearch is an additional search appended to an existing session.
type SubSearch struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
}

// PersonProfile is the person sub-object of an item.
type PersonProfile struct {
	Name     string `json:"name"`
	Company  string `json:"company,omitempty"`
	Position string `json:"position,omitempty"`
}

// CompanyProfile is the company sub-object of an item.
type CompanyProfile struct {
	Name   string `json:"name"`
	Domain string `json:"domain,omitempty"`
}

// Evaluation is one criterion verdict the provider recorded for an item.
type Evaluation struct {
	Criterion string `json:"criterion"`
	Satisfied bool   `json:"satisfied"`
	Reasoning string `json:"reasoning,omitempty"`
}

// EnrichmentResult is one completed enrichment value embedded in an
// item. Field is the explicit field-tag attribute; providers may omit
// it, leaving only the echoed description and format to recover the
// field from.
type EnrichmentResult struct {
	EnrichmentID string `json:"enrichmentId,omitempty"`
	Field        string `json:"field,omitempty"`
	Description  string `json:"description,omitempty"`
	Format       string `json:"format,omitempty"`
	Result       string `json:"result"`
}

// Item is one discovered entity returned by the provider.
type Item struct {
	ID          string             `json:"id"`
	URL         string             `json:"url,omitempty"`
	Description string             `json:"description,omitempty"`
	Content     string             `json:"content,omitempty"`
	Person      *PersonProfile     `json:"person,omitempty"`
	Company     *CompanyProfile    `json:"company,omitempty"`
	Evaluations []Evaluation       `json:"evaluations,omitempty"`
	Enrichments []EnrichmentResult `json:"enrichments,omitempty"`
}

// ItemPage is one page of GET /sessions/{id}/items.
type ItemPage struct {
	Items      []Item `json:"items"`
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// CreateEnrichmentRequest is the body for POST /sessions/{id}/enrichments.
type CreateEnrichmentRequest struct {
	Description string   `json:"description"`
	Format      string   `json:"format"`
	Options     []string `json:"options,omitempty"`
	FieldTag    string   `json:"fieldTag,omitempty"`
}

// Enrichment is a provider enrichment request.
type Enrichment struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
}
