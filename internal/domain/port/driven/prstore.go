package driven

import (
	"context"

	"github.com/ericfisherdev/devpulse/internal/domain/model"
)

// PRStore defines the driven port for pull request persistence. Insert and
// Update are kept separate so the upsert decision (insert, update, or skip)
// stays in the application layer.
type PRStore interface {
	// GetByKey retrieves a PR by its natural identity. Returns nil, nil when
	// the PR does not exist.
	GetByKey(ctx context.Context, project, repo string, number int) (*model.PullRequest, error)
	Insert(ctx context.Context, pr model.PullRequest) error
	Update(ctx context.Context, pr model.PullRequest) error
	ListByProject(ctx context.Context, project string) ([]model.PullRequest, error)
	// Delete removes a PR. Ingestion never deletes; this exists for external
	// callers and tests only.
	Delete(ctx context.Context, project, repo string, number int) error
}
