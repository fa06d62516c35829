package model

import "time"

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run represents a single scoring pipeline run.
type Run struct {
	ID        string      `json:"id"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunSummary holds the outcome counts of a pipeline run.
type RunSummary struct {
	Neighborhoods     int        `json:"neighborhoods"`
	POIs              int        `json:"pois"`
	ScoredCategories  []Category `json:"scored_categories"`
	SkippedCategories []Category `json:"skipped_categories,omitempty"`
	OutputDir         string     `json:"output_dir,omitempty"`
}

// Snapshot is the immutable result set of one pipeline run, persisted so the
// API can serve it without re-reading export files.
type Snapshot struct {
	RunID         string                 `json:"run_id"`
	Neighborhoods []EnrichedNeighborhood `json:"neighborhoods"`
	POIs          []POI                  `json:"pois"`
	CreatedAt     time.Time              `json:"created_at"`
}
