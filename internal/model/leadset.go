package model

import "time"

// LeadsetStatus represents the current state of a leadset.
type LeadsetStatus string

const (
	LeadsetStatusIdle      LeadsetStatus = "idle"
	LeadsetStatusRunning   LeadsetStatus = "running"
	LeadsetStatusEnriching LeadsetStatus = "enriching"
	LeadsetStatusFailed    LeadsetStatus = "failed"
)

// Criteria holds the free-text discovery facets of a leadset.
type Criteria struct {
	Description   string   `json:"description,omitempty"`
	Archetype     string   `json:"archetype,omitempty"`
	Region        string   `json:"region,omitempty"`
	SizeBand      string   `json:"size_band,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	IntentSignals []string `json:"intent_signals,omitempty"`
}

// Empty reports whether no facet carries any text.
func (c Criteria) Empty() bool {
	return c.Description == "" && c.Archetype == "" && c.Region == "" &&
		c.SizeBand == "" && len(c.Tags) == 0 && len(c.IntentSignals) == 0
}

// Leadset is a named target-account definition with discovery criteria
// and an enrichment-field allowlist. Created by seeding; never deleted
// by the engine.
type Leadset struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Criteria          Criteria      `json:"criteria"`
	Status            LeadsetStatus `json:"status"`
	ProviderSessionID string        `json:"provider_session_id,omitempty"`
	AllowedFields     []string      `json:"allowed_fields,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}
