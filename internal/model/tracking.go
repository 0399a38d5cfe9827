package model

import "time"

// Run statuses stored by the run tracker.
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// StageMetrics records one stage of a pipeline run.
type StageMetrics struct {
	Stage      string        `json:"stage"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Duration   time.Duration `json:"duration"`
	RecordsIn  int           `json:"records_in"`
	RecordsOut int           `json:"records_out"`
	Error      string        `json:"error,omitempty"`
}

// RunSummary is the outcome of a pipeline run.
type RunSummary struct {
	RunID      string         `json:"run_id"`
	Source     string         `json:"source"`
	Status     string         `json:"status"`
	StartTime  time.Time      `json:"start_time"`
	EndTime    time.Time      `json:"end_time"`
	RecordsIn  int            `json:"records_in"`
	RecordsOut int            `json:"records_out"`
	Stages     []StageMetrics `json:"stages"`
	Error      string         `json:"error,omitempty"`
}
