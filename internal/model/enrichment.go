package model

import "time"

// JobStatus represents the current state of an enrichment job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// FieldRequest binds one requested field key to the provider enrichment
// request that carries it.
type FieldRequest struct {
	Field             string `json:"field"`
	ProviderRequestID string `json:"provider_request_id"`
	Format            string `json:"format"`
}

// EnrichmentJob is a batch request to extract one or more fields for
// all items in a session.
type EnrichmentJob struct {
	ID                string         `json:"id"`
	RunID             string         `json:"run_id"`
	LeadsetID         string         `json:"leadset_id"`
	ProviderSessionID string         `json:"provider_session_id"`
	Fields            []string       `json:"fields"`
	Requests          []FieldRequest `json:"requests"`
	Status            JobStatus      `json:"status"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// RequestedFields returns the job's field keys in request order.
func (j *EnrichmentJob) RequestedFields() []string {
	out := make([]string, 0, len(j.Requests))
	for _, r := range j.Requests {
		out = append(out, r.Field)
	}
	return out
}
