package models

import "time"

// ChecklistEntry tracks the analysis state of a single fragment.
// Entries are created once per trackable fragment when the tracker is
// built; Analyzed transitions to true on the first mark and never
// reverts. A repeated mark overwrites Payload.
type ChecklistEntry struct {
	// FragmentID is the tracking identifier (Fragment.ID()).
	FragmentID string `json:"fragment_id"`
	// Analyzed reports whether the fragment has been marked.
	Analyzed bool `json:"analyzed"`
	// Payload holds the opaque per-stage result recorded with the mark.
	Payload any `json:"payload,omitempty"`
	// MarkedAt is when the most recent mark happened.
	MarkedAt time.Time `json:"marked_at,omitempty"`
}

// Report is the machine-checkable completeness summary of one run.
type Report struct {
	// Total is the number of trackable fragments, fixed at construction.
	Total int `json:"total"`
	// Analyzed is the number of fragments marked so far.
	Analyzed int `json:"analyzed"`
	// MissingIDs lists unmarked fragment ids in document order.
	MissingIDs []string `json:"missing_ids"`
	// Percentage is Analyzed/Total in [0,1]; 1.0 for an empty tracker.
	Percentage float64 `json:"percentage"`
	// IsComplete is true when every trackable fragment has been marked.
	IsComplete bool `json:"is_complete"`
}
