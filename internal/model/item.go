package model

// EntityType classifies a discovered item.
type EntityType string

const (
	EntityTypeCompany EntityType = "company"
	EntityTypePerson  EntityType = "person"
)

// EnrichmentState tracks per-item enrichment progress.
type EnrichmentState string

const (
	EnrichmentStateNone      EnrichmentState = "none"
	EnrichmentStateEnriching EnrichmentState = "enriching"
	EnrichmentStateDone      EnrichmentState = "done"
)

// ValueNotFound is the sentinel stored when the provider answered but
// the information does not exist. Distinct from an absent key, which
// means the field was never resolved.
const ValueNotFound = "not_found"

// Entity holds the identifying attributes of a discovered item.
type Entity struct {
	Name   string `json:"name"`
	Domain string `json:"domain,omitempty"`
}

// Evaluation is one provider criterion verdict attached to an item.
type Evaluation struct {
	Criterion string `json:"criterion"`
	Satisfied bool   `json:"satisfied"`
	Reasoning string `json:"reasoning,omitempty"`
}

// ItemEnrichment is the per-item enrichment submap. Fields is merged
// key-by-key on upsert, never replaced wholesale.
type ItemEnrichment struct {
	Status EnrichmentState   `json:"status"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Item is a discovered entity mirrored from the provider, keyed by the
// provider-assigned ItemID.
type Item struct {
	ItemID      string         `json:"item_id"`
	RunID       string         `json:"run_id"`
	LeadsetID   string         `json:"leadset_id"`
	EntityType  EntityType     `json:"entity_type"`
	Entity      Entity         `json:"entity"`
	Snippet     string         `json:"snippet,omitempty"`
	SourceURL   string         `json:"source_url,omitempty"`
	Score       int            `json:"score"`
	Evaluations []Evaluation   `json:"evaluations,omitempty"`
	Enrichment  ItemEnrichment `json:"enrichment"`
}

// MergeFrom folds a newer copy of the same item into i. Identity
// fields keep their first-seen values; descriptive fields take the
// incoming value when non-empty; the enrichment field map is merged
// key-by-key so concurrent poll and webhook writers commute.
func (i *Item) MergeFrom(in Item) {
	if in.EntityType != "" {
		i.EntityType = in.EntityType
	}
	if in.Entity.Name != "" {
		i.Entity.Name = in.Entity.Name
	}
	if in.Entity.Domain != "" {
		i.Entity.Domain = in.Entity.Domain
	}
	if in.Snippet != "" {
		i.Snippet = in.Snippet
	}
	if in.SourceURL != "" {
		i.SourceURL = in.SourceURL
	}
	if len(in.Evaluations) > 0 {
		i.Evaluations = in.Evaluations
		i.Score = in.Score
	}
	if in.Enrichment.Status != "" && in.Enrichment.Status != EnrichmentStateNone {
		i.Enrichment.Status = in.Enrichment.Status
	}
	if len(in.Enrichment.Fields) > 0 {
		if i.Enrichment.Fields == nil {
			i.Enrichment.Fields = make(map[string]string, len(in.Enrichment.Fields))
		}
		for k, v := range in.Enrichment.Fields {
			i.Enrichment.Fields[k] = v
		}
	}
}
