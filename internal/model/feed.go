package model

import "time"

// LeadsetDetail is the per-leadset slice of the feed snapshot: the
// leadset, its latest run, and that run's items.
type LeadsetDetail struct {
	Leadset Leadset `json:"leadset"`
	Run     *Run    `json:"run,omitempty"`
	Items   []Item  `json:"items"`
}

// FeedCounts summarizes the snapshot for list views.
type FeedCounts struct {
	Leadsets int `json:"leadsets"`
	Runs     int `json:"runs"`
	Items    int `json:"items"`
}

// FeedSnapshot is the denormalized read projection. It is rebuilt
// wholesale after every mutating operation and replaced atomically;
// clients never patch it.
type FeedSnapshot struct {
	Version     int64                    `json:"version"`
	Leadsets    []Leadset                `json:"leadsets"`
	Details     map[string]LeadsetDetail `json:"details"`
	Settings    map[string]string        `json:"settings,omitempty"`
	Counts      FeedCounts               `json:"counts"`
	GeneratedAt time.Time                `json:"generated_at"`
}
