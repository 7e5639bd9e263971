package model

// PRState represents the lifecycle state of a pull request.
type PRState string

const (
	PRStateOpen   PRState = "open"
	PRStateMerged PRState = "merged"
	PRStateClosed PRState = "closed"
)

// CIRunStatus represents the execution status of a CI run.
type CIRunStatus string

const (
	CIStatusInProgress CIRunStatus = "in_progress"
	CIStatusCompleted  CIRunStatus = "completed"
	CIStatusCancelling CIRunStatus = "cancelling"
	CIStatusUnknown    CIRunStatus = "unknown"
)

// CIRunConclusion represents the outcome of a completed CI run. The empty
// value means no conclusion and is persisted as NULL. A conclusion is only
// meaningful when the run status is completed.
type CIRunConclusion string

const (
	CIConclusionNone               CIRunConclusion = ""
	CIConclusionSuccess            CIRunConclusion = "success"
	CIConclusionPartiallySucceeded CIRunConclusion = "partially_succeeded"
	CIConclusionFailure            CIRunConclusion = "failure"
	CIConclusionCancelled          CIRunConclusion = "cancelled"
)

// IsFailure reports whether the conclusion counts as a failed outcome for
// flaky detection purposes.
func (c CIRunConclusion) IsFailure() bool {
	return c == CIConclusionFailure || c == CIConclusionPartiallySucceeded
}

// Environment is a deployment target environment.
type Environment string

const (
	EnvProduction  Environment = "production"
	EnvStaging     Environment = "staging"
	EnvDevelopment Environment = "development"
)

// DeploymentStatus represents the state of a deployment.
type DeploymentStatus string

const (
	DeployStatusSuccess    DeploymentStatus = "success"
	DeployStatusFailure    DeploymentStatus = "failure"
	DeployStatusInProgress DeploymentStatus = "in_progress"
	DeployStatusRolledBack DeploymentStatus = "rolled_back"
)
