package model

import "time"

// Deployment represents a recorded deployment. Deployments are written by an
// external collaborator, not by the ingestion pipeline; the metrics engine
// reads them.
type Deployment struct {
	DeploymentID string
	ProjectName  string
	Environment  Environment
	CommitSHA    string
	Status       DeploymentStatus
	StartedAt    time.Time
	CompletedAt  *time.Time
	IsFailed     bool
	IsRollback   bool
	// RollbackOf references the deployment this one rolled back, when known.
	// Informational only; nothing cascades through it.
	RollbackOf  *string
	RecoveredAt *time.Time
	// RelatedPRs holds the PR numbers included in this deployment, joined
	// against pull requests at query time for lead-time samples.
	RelatedPRs []int
}

// CountsAsFailure reports whether the deployment counts as failed for the
// change failure rate: explicit failures and rollbacks both count.
func (d Deployment) CountsAsFailure() bool {
	return d.IsFailed || d.IsRollback
}
