package persistence

import "time"

// AnalysisRun is the durable record of one produced report run.
type AnalysisRun struct {
	RunName     string    `json:"run_name"`
	Analysis    string    `json:"analysis"`
	Slug        string    `json:"slug"`
	ExportFile  string    `json:"export_file"`
	TargetUser  string    `json:"target_user"`
	SampleCount int       `json:"sample_count"`
	CreatedAt   time.Time `json:"created_at"`
}
