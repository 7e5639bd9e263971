package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/devpulse/internal/domain/model"
)

// DevOpsClient defines the driven port for the upstream work-tracking
// platform. Implementations own pagination, rate limiting, and retries;
// callers see complete result sets or an error.
type DevOpsClient interface {
	// ListProjects returns every project in the configured organization.
	// A failure here is fatal for the whole ingestion run: a truncated
	// project list would silently drop data.
	ListProjects(ctx context.Context) ([]model.ProjectRef, error)

	// ListRepositories returns all git repositories in a project.
	ListRepositories(ctx context.Context, project string) ([]model.RepositoryRef, error)

	// ListPullRequests returns all pull requests in the repository created at
	// or after since, already transformed into the persisted shape.
	ListPullRequests(ctx context.Context, project string, repo model.RepositoryRef, since time.Time) ([]model.PullRequest, error)

	// ListPullRequestThreads returns the discussion threads for one PR.
	// Consumed by review enrichment only.
	ListPullRequestThreads(ctx context.Context, project, repoID string, prNumber int) ([]model.CommentThread, error)

	// ListBuilds returns all CI runs in the project started at or after
	// since, already transformed into the persisted shape.
	ListBuilds(ctx context.Context, project string, since time.Time) ([]model.CIRun, error)
}
