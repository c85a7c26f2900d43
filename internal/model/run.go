package model

import "time"

// RunStatus represents the current state of a discovery run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusEnriching RunStatus = "enriching"
	RunStatusCanceled  RunStatus = "canceled"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Terminal reports whether the status admits no further transitions
// other than count corrections.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCanceled, RunStatusCompleted, RunStatusFailed:
		return true
	}
	return false
}

// RunMode selects how a new run relates to prior runs of the leadset.
type RunMode string

const (
	RunModeNew     RunMode = "new"
	RunModeExtend  RunMode = "extend"
	RunModeReplace RunMode = "replace"
)

// Valid reports whether the mode is one of the known run modes.
func (m RunMode) Valid() bool {
	switch m {
	case RunModeNew, RunModeExtend, RunModeReplace:
		return true
	}
	return false
}

// RunCounters holds provider-reported progress counts for a run. The
// webhook path bumps these blindly as a fast-path hint; a sync recount
// is the source of truth and overwrites them.
type RunCounters struct {
	Found    int `json:"found"`
	Enriched int `json:"enriched"`
	Selected int `json:"selected"`
	Analyzed int `json:"analyzed"`
}

// Run is one lifecycle instance of executing discovery for a leadset
// against a provider session. At most one non-terminal run exists per
// leadset at a time.
type Run struct {
	ID                string      `json:"id"`
	LeadsetID         string      `json:"leadset_id"`
	ProviderSessionID string      `json:"provider_session_id"`
	Mode              RunMode     `json:"mode"`
	Status            RunStatus   `json:"status"`
	Counters          RunCounters `json:"counters"`
	RequestedCount    int         `json:"requested_count"`
	SearchQuery       string      `json:"search_query"`
	SearchID          string      `json:"search_id,omitempty"` // sub-search id, extend mode only
	CreatedAt         time.Time   `json:"created_at"`
	CanceledAt        *time.Time  `json:"canceled_at,omitempty"`
}
