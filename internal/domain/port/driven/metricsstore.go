package driven

import (
	"context"

	"github.com/ericfisherdev/devpulse/internal/domain/model"
)

// DeploymentOutcomes carries total and failed deployment counts for the
// change failure rate.
type DeploymentOutcomes struct {
	Total  int
	Failed int
}

// CIRunCounts carries total and flaky run counts for the flaky test rate.
type CIRunCounts struct {
	Total int
	Flaky int
}

// MetricsStore defines the driven port for the windowed aggregate queries
// behind the metrics engine. All windows are inclusive on both ends. The
// project parameter, when non-empty, restricts the query to one project.
// Every ByProject variant is a single grouped query, not N per-project
// queries; that is a performance contract.
//
// Duration samples are returned in hours; percentile interpolation happens in
// the application layer.
type MetricsStore interface {
	// Successful production deployments (deployment frequency).
	CountProdDeployments(ctx context.Context, w model.Window, project string) (int, error)
	CountProdDeploymentsByProject(ctx context.Context, w model.Window) (map[string]int, error)

	// All production deployments with failure counts (change failure rate).
	ProdDeploymentOutcomes(ctx context.Context, w model.Window, project string) (DeploymentOutcomes, error)
	ProdDeploymentOutcomesByProject(ctx context.Context, w model.Window) (map[string]DeploymentOutcomes, error)

	// completedAt - pr.createdAt for every (successful production deployment,
	// related PR) pair. A deployment with N related PRs contributes N samples.
	LeadTimeSamples(ctx context.Context, w model.Window, project string) ([]float64, error)
	LeadTimeSamplesByProject(ctx context.Context, w model.Window) (map[string][]float64, error)

	// recoveredAt - completedAt for failed production deployments with both
	// timestamps set.
	MTTRSamples(ctx context.Context, w model.Window, project string) ([]float64, error)
	MTTRSamplesByProject(ctx context.Context, w model.Window) (map[string][]float64, error)

	// mergedAt - createdAt for non-draft merged PRs.
	PRCycleTimeSamples(ctx context.Context, w model.Window, project string) ([]float64, error)
	PRCycleTimeSamplesByProject(ctx context.Context, w model.Window) (map[string][]float64, error)

	// firstReviewAt - createdAt for non-draft PRs with a first review.
	ReviewWaitSamples(ctx context.Context, w model.Window, project string) ([]float64, error)
	ReviewWaitSamplesByProject(ctx context.Context, w model.Window) (map[string][]float64, error)

	// additions + deletions for non-draft merged PRs (PR size distribution).
	MergedPRSizes(ctx context.Context, w model.Window, project string) ([]int, error)
	MergedPRSizesByProject(ctx context.Context, w model.Window) (map[string][]int, error)

	// Total and flaky CI run counts (flaky test rate).
	CIRunCounts(ctx context.Context, w model.Window, project string) (CIRunCounts, error)
	CIRunCountsByProject(ctx context.Context, w model.Window) (map[string]CIRunCounts, error)
}
