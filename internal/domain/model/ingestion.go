package model

import "time"

// IngestionResult summarizes one ingestion run across all projects.
type IngestionResult struct {
	// Success is true iff Errors is empty. Per-item failures flip it to false
	// without aborting the run.
	Success           bool
	ProjectsProcessed int
	Inserted          int
	Updated           int
	Skipped           int
	EnrichmentErrors  int
	// FlakyRunsDetected is populated by build ingestion only.
	FlakyRunsDetected int
	Errors            []IngestionError
	// Steps carries per-step timing metadata, one entry per instrumented
	// project step plus the flaky detection pass.
	Steps []StepTiming
}

// IngestionError records a single failure with enough context to locate it.
type IngestionError struct {
	Project string
	Item    string
	Message string
	// TimedOut distinguishes "slow" from "broken" so callers can tell the
	// two apart.
	TimedOut bool
}

// StepTiming is the structured timing/status record produced by an
// instrumented step.
type StepTiming struct {
	Name     string
	Duration time.Duration
	TimedOut bool
	Failed   bool
}
