package model

import "time"

// Window is a time window with inclusive bounds on both ends. Metric queries
// compare createdAt/startedAt against it with >= Start and <= End.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// DeploymentFrequency is the count of successful production deployments in a
// window.
type DeploymentFrequency struct {
	Count int
}

// ChangeFailureRate is the percentage of production deployments that failed
// or were rolled back. Percentage is 0 and counts are 0 when no deployments
// exist; it is never NaN.
type ChangeFailureRate struct {
	Percentage  float64
	FailedCount int
	TotalCount  int
}

// DurationStats carries interpolated percentiles over a set of duration
// samples, in hours. Percentiles are nil when no samples qualify.
type DurationStats struct {
	P50Hours *float64
	P90Hours *float64
	Count    int
}

// SizeBucket is one bucket of the PR size distribution.
type SizeBucket struct {
	Count      int
	Percentage float64
}

// PRSizeDistribution buckets merged, non-draft PRs by total changed lines:
// xs <=50, s 51-200, m 201-500, l 501-1000, xl >1000.
type PRSizeDistribution struct {
	XS    SizeBucket
	S     SizeBucket
	M     SizeBucket
	L     SizeBucket
	XL    SizeBucket
	Total int
}

// FlakyRate is the share of CI runs flagged flaky in a window, rounded to two
// decimal places. Zero when no runs exist.
type FlakyRate struct {
	Percentage float64
	FlakyRuns  int
	TotalRuns  int
}
