package model

import "time"

// CIRun represents one ingested CI pipeline execution. RunID is globally
// unique, synthesized as "<project>-<externalBuildID>" at transform time.
type CIRun struct {
	RunID        string
	WorkflowName string
	RepoName     string
	ProjectName  string
	Branch       *string
	CommitSHA    *string
	// PRNumber is filled by a separate linking step, not by ingestion.
	PRNumber    *int
	Status      CIRunStatus
	Conclusion  CIRunConclusion
	StartedAt   time.Time
	CompletedAt *time.Time
	// IsFlaky is set only by the flaky detector, and only ever from false to
	// true. Transform always initializes it to false.
	IsFlaky        bool
	FlakyTestCount int
}
