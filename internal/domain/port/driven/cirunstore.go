package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/devpulse/internal/domain/model"
)

// CIRunStore defines the driven port for CI run persistence.
type CIRunStore interface {
	// GetByRunID retrieves a run by its globally unique ID. Returns nil, nil
	// when the run does not exist.
	GetByRunID(ctx context.Context, runID string) (*model.CIRun, error)
	Insert(ctx context.Context, run model.CIRun) error
	Update(ctx context.Context, run model.CIRun) error

	// ListUnflagged returns runs with is_flaky false that started at or after
	// since, ordered by started_at then run_id, paged by limit/offset. The
	// flaky detector walks these in batches.
	ListUnflagged(ctx context.Context, since time.Time, limit, offset int) ([]model.CIRun, error)

	// MarkFlaky flags the given runs as flaky with a flaky test count of one,
	// in a single batched update. Already-flagged runs are left untouched.
	MarkFlaky(ctx context.Context, runIDs []string) error
}
