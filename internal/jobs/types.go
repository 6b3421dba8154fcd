package jobs

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// ErrSkipped is returned (wrapped, with the reason) by an executor that
// declined to run a job. The job finishes as StatusSkipped, not StatusFailed.
var ErrSkipped = errors.New("job skipped")

// Analysis kinds a job can run.
const (
	AnalysisDirectEdits  = "directedits"
	AnalysisRareLabels   = "rarelabels"
	AnalysisGlobalEdits  = "globaledits"
	AnalysisMostlyStatic = "mostlystatic"
)

type EnqueueRequest struct {
	Source    string
	DedupeKey string
	Payload   JobPayload
}

// JobPayload selects the analysis and its inputs.
type JobPayload struct {
	Analysis   string `json:"analysis"`
	ExportFile string `json:"export_file,omitempty"`
	TargetUser string `json:"target_user,omitempty"`
	Threshold  int    `json:"threshold,omitempty"`
}

// AnalysisJob is one queued analysis run. RunName is the report run
// directory produced on success.
type AnalysisJob struct {
	ID        string     `json:"id"`
	Source    string     `json:"source"`
	DedupeKey string     `json:"dedupe_key"`
	Payload   JobPayload `json:"payload"`
	Status    Status     `json:"status"`
	Error     string     `json:"error,omitempty"`
	RunName   string     `json:"run_name,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
