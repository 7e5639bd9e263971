package sqlite

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/devpulse/internal/domain/model"
	"github.com/ericfisherdev/devpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MetricsStore = (*MetricsRepo)(nil)

// MetricsRepo is the SQLite implementation of the MetricsStore port. Every
// ByProject variant runs one grouped query; duration samples come back in
// hours via julianday arithmetic and are interpolated in the application
// layer.
//
// Window bounds are inclusive on both ends. Stored timestamps use a fixed-
// width UTC format, so plain string comparison against formatted parameters
// filters correctly.
type MetricsRepo struct {
	db *DB
}

// NewMetricsRepo creates a new MetricsRepo backed by the given DB.
func NewMetricsRepo(db *DB) *MetricsRepo {
	return &MetricsRepo{db: db}
}

// CountProdDeployments counts successful production deployments in the window.
func (r *MetricsRepo) CountProdDeployments(ctx context.Context, w model.Window, project string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM deployments
		WHERE environment = 'production' AND status = 'success'
		  AND started_at >= ? AND started_at <= ?`
	args := []any{fmtTime(w.Start), fmtTime(w.End)}
	if project != "" {
		query += ` AND project_name = ?`
		args = append(args, project)
	}

	var count int
	if err := r.db.Reader.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count production deployments: %w", err)
	}

	return count, nil
}

// CountProdDeploymentsByProject is the grouped variant of CountProdDeployments.
func (r *MetricsRepo) CountProdDeploymentsByProject(ctx context.Context, w model.Window) (map[string]int, error) {
	const query = `
		SELECT project_name, COUNT(*)
		FROM deployments
		WHERE environment = 'production' AND status = 'success'
		  AND started_at >= ? AND started_at <= ?
		GROUP BY project_name`

	rows, err := r.db.Reader.QueryContext(ctx, query, fmtTime(w.Start), fmtTime(w.End))
	if err != nil {
		return nil, fmt.Errorf("count production deployments by project: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var project string
		var count int
		if err := rows.Scan(&project, &count); err != nil {
			return nil, fmt.Errorf("scan deployment count: %w", err)
		}
		counts[project] = count
	}

	return counts, rows.Err()
}

// ProdDeploymentOutcomes returns total and failed production deployment
// counts. A deployment counts as failed when is_failed or is_rollback is set.
func (r *MetricsRepo) ProdDeploymentOutcomes(ctx context.Context, w model.Window, project string) (driven.DeploymentOutcomes, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN is_failed = 1 OR is_rollback = 1 THEN 1 ELSE 0 END), 0)
		FROM deployments
		WHERE environment = 'production'
		  AND started_at >= ? AND started_at <= ?`
	args := []any{fmtTime(w.Start), fmtTime(w.End)}
	if project != "" {
		query += ` AND project_name = ?`
		args = append(args, project)
	}

	var out driven.DeploymentOutcomes
	if err := r.db.Reader.QueryRowContext(ctx, query, args...).Scan(&out.Total, &out.Failed); err != nil {
		return driven.DeploymentOutcomes{}, fmt.Errorf("query deployment outcomes: %w", err)
	}

	return out, nil
}

// ProdDeploymentOutcomesByProject is the grouped variant of ProdDeploymentOutcomes.
func (r *MetricsRepo) ProdDeploymentOutcomesByProject(ctx context.Context, w model.Window) (map[string]driven.DeploymentOutcomes, error) {
	const query = `
		SELECT project_name, COUNT(*),
		       COALESCE(SUM(CASE WHEN is_failed = 1 OR is_rollback = 1 THEN 1 ELSE 0 END), 0)
		FROM deployments
		WHERE environment = 'production'
		  AND started_at >= ? AND started_at <= ?
		GROUP BY project_name`

	rows, err := r.db.Reader.QueryContext(ctx, query, fmtTime(w.Start), fmtTime(w.End))
	if err != nil {
		return nil, fmt.Errorf("query deployment outcomes by project: %w", err)
	}
	defer rows.Close()

	outcomes := make(map[string]driven.DeploymentOutcomes)
	for rows.Next() {
		var project string
		var out driven.DeploymentOutcomes
		if err := rows.Scan(&project, &out.Total, &out.Failed); err != nil {
			return nil, fmt.Errorf("scan deployment outcomes: %w", err)
		}
		outcomes[project] = out
	}

	return outcomes, rows.Err()
}

// leadTimeFrom is the shared body of the lead-time queries: one sample per
// (successful production deployment, related PR) pair, joined through the
// related_prs JSON array at query time.
const leadTimeFrom = `
	FROM deployments d
	JOIN json_each(d.related_prs) je
	JOIN pull_requests p
	  ON p.number = je.value AND p.project_name = d.project_name
	WHERE d.environment = 'production' AND d.status = 'success'
	  AND d.completed_at IS NOT NULL
	  AND d.started_at >= ? AND d.started_at <= ?`

// LeadTimeSamples returns completedAt - pr.createdAt in hours for every
// qualifying (deployment, related PR) pair.
func (r *MetricsRepo) LeadTimeSamples(ctx context.Context, w model.Window, project string) ([]float64, error) {
	query := `SELECT (julianday(d.completed_at) - julianday(p.created_at)) * 24.0` + leadTimeFrom
	args := []any{fmtTime(w.Start), fmtTime(w.End)}
	if project != "" {
		query += ` AND d.project_name = ?`
		args = append(args, project)
	}

	return r.querySamples(ctx, "lead time samples", query, args...)
}

// LeadTimeSamplesByProject is the grouped variant of LeadTimeSamples.
func (r *MetricsRepo) LeadTimeSamplesByProject(ctx context.Context, w model.Window) (map[string][]float64, error) {
	query := `SELECT d.project_name, (julianday(d.completed_at) - julianday(p.created_at)) * 24.0` + leadTimeFrom

	return r.queryGroupedSamples(ctx, "lead time samples by project", query, fmtTime(w.Start), fmtTime(w.End))
}

const mttrFrom = `
	FROM deployments
	WHERE environment = 'production' AND is_failed = 1
	  AND completed_at IS NOT NULL AND recovered_at IS NOT NULL
	  AND started_at >= ? AND started_at <= ?`

// MTTRSamples returns recoveredAt - completedAt in hours for failed
// production deployments with both timestamps recorded.
func (r *MetricsRepo) MTTRSamples(ctx context.Context, w model.Window, project string) ([]float64, error) {
	query := `SELECT (julianday(recovered_at) - julianday(completed_at)) * 24.0` + mttrFrom
	args := []any{fmtTime(w.Start), fmtTime(w.End)}
	if project != "" {
		query += ` AND project_name = ?`
		args = append(args, project)
	}

	return r.querySamples(ctx, "mttr samples", query, args...)
}

// MTTRSamplesByProject is the grouped variant of MTTRSamples.
func (r *MetricsRepo) MTTRSamplesByProject(ctx context.Context, w model.Window) (map[string][]float64, error) {
	query := `SELECT project_name, (julianday(recovered_at) - julianday(completed_at)) * 24.0` + mttrFrom

	return r.queryGroupedSamples(ctx, "mttr samples by project", query, fmtTime(w.Start), fmtTime(w.End))
}

const prCycleFrom = `
	FROM pull_requests
	WHERE is_draft = 0 AND merged_at IS NOT NULL
	  AND created_at >= ? AND created_at <= ?`

// PRCycleTimeSamples returns mergedAt - createdAt in hours for non-draft
// merged PRs.
func (r *MetricsRepo) PRCycleTimeSamples(ctx context.Context, w model.Window, project string) ([]float64, error) {
	query := `SELECT (julianday(merged_at) - julianday(created_at)) * 24.0` + prCycleFrom
	args := []any{fmtTime(w.Start), fmtTime(w.End)}
	if project != "" {
		query += ` AND project_name = ?`
		args = append(args, project)
	}

	return r.querySamples(ctx, "pr cycle time samples", query, args...)
}

// PRCycleTimeSamplesByProject is the grouped variant of PRCycleTimeSamples.
func (r *MetricsRepo) PRCycleTimeSamplesByProject(ctx context.Context, w model.Window) (map[string][]float64, error) {
	query := `SELECT project_name, (julianday(merged_at) - julianday(created_at)) * 24.0` + prCycleFrom

	return r.queryGroupedSamples(ctx, "pr cycle time samples by project", query, fmtTime(w.Start), fmtTime(w.End))
}

const reviewWaitFrom = `
	FROM pull_requests
	WHERE is_draft = 0 AND first_review_at IS NOT NULL
	  AND created_at >= ? AND created_at <= ?`

// ReviewWaitSamples returns firstReviewAt - createdAt in hours for non-draft
// PRs with a recorded first review.
func (r *MetricsRepo) ReviewWaitSamples(ctx context.Context, w model.Window, project string) ([]float64, error) {
	query := `SELECT (julianday(first_review_at) - julianday(created_at)) * 24.0` + reviewWaitFrom
	args := []any{fmtTime(w.Start), fmtTime(w.End)}
	if project != "" {
		query += ` AND project_name = ?`
		args = append(args, project)
	}

	return r.querySamples(ctx, "review wait samples", query, args...)
}

// ReviewWaitSamplesByProject is the grouped variant of ReviewWaitSamples.
func (r *MetricsRepo) ReviewWaitSamplesByProject(ctx context.Context, w model.Window) (map[string][]float64, error) {
	query := `SELECT project_name, (julianday(first_review_at) - julianday(created_at)) * 24.0` + reviewWaitFrom

	return r.queryGroupedSamples(ctx, "review wait samples by project", query, fmtTime(w.Start), fmtTime(w.End))
}

const prSizeFrom = `
	FROM pull_requests
	WHERE is_draft = 0 AND state = 'merged'
	  AND created_at >= ? AND created_at <= ?`

// MergedPRSizes returns additions + deletions for non-draft merged PRs.
func (r *MetricsRepo) MergedPRSizes(ctx context.Context, w model.Window, project string) ([]int, error) {
	query := `SELECT additions + deletions` + prSizeFrom
	args := []any{fmtTime(w.Start), fmtTime(w.End)}
	if project != "" {
		query += ` AND project_name = ?`
		args = append(args, project)
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query merged pr sizes: %w", err)
	}
	defer rows.Close()

	var sizes []int
	for rows.Next() {
		var size int
		if err := rows.Scan(&size); err != nil {
			return nil, fmt.Errorf("scan pr size: %w", err)
		}
		sizes = append(sizes, size)
	}

	return sizes, rows.Err()
}

// MergedPRSizesByProject is the grouped variant of MergedPRSizes.
func (r *MetricsRepo) MergedPRSizesByProject(ctx context.Context, w model.Window) (map[string][]int, error) {
	query := `SELECT project_name, additions + deletions` + prSizeFrom

	rows, err := r.db.Reader.QueryContext(ctx, query, fmtTime(w.Start), fmtTime(w.End))
	if err != nil {
		return nil, fmt.Errorf("query merged pr sizes by project: %w", err)
	}
	defer rows.Close()

	sizes := make(map[string][]int)
	for rows.Next() {
		var project string
		var size int
		if err := rows.Scan(&project, &size); err != nil {
			return nil, fmt.Errorf("scan pr size: %w", err)
		}
		sizes[project] = append(sizes[project], size)
	}

	return sizes, rows.Err()
}

// CIRunCounts returns total and flaky CI run counts in the window.
func (r *MetricsRepo) CIRunCounts(ctx context.Context, w model.Window, project string) (driven.CIRunCounts, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(is_flaky), 0)
		FROM ci_runs
		WHERE started_at >= ? AND started_at <= ?`
	args := []any{fmtTime(w.Start), fmtTime(w.End)}
	if project != "" {
		query += ` AND project_name = ?`
		args = append(args, project)
	}

	var counts driven.CIRunCounts
	if err := r.db.Reader.QueryRowContext(ctx, query, args...).Scan(&counts.Total, &counts.Flaky); err != nil {
		return driven.CIRunCounts{}, fmt.Errorf("query ci run counts: %w", err)
	}

	return counts, nil
}

// CIRunCountsByProject is the grouped variant of CIRunCounts.
func (r *MetricsRepo) CIRunCountsByProject(ctx context.Context, w model.Window) (map[string]driven.CIRunCounts, error) {
	const query = `
		SELECT project_name, COUNT(*), COALESCE(SUM(is_flaky), 0)
		FROM ci_runs
		WHERE started_at >= ? AND started_at <= ?
		GROUP BY project_name`

	rows, err := r.db.Reader.QueryContext(ctx, query, fmtTime(w.Start), fmtTime(w.End))
	if err != nil {
		return nil, fmt.Errorf("query ci run counts by project: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]driven.CIRunCounts)
	for rows.Next() {
		var project string
		var c driven.CIRunCounts
		if err := rows.Scan(&project, &c.Total, &c.Flaky); err != nil {
			return nil, fmt.Errorf("scan ci run counts: %w", err)
		}
		counts[project] = c
	}

	return counts, rows.Err()
}

// querySamples runs a query whose rows are single float64 samples.
func (r *MetricsRepo) querySamples(ctx context.Context, operation, query string, args ...any) ([]float64, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", operation, err)
	}
	defer rows.Close()

	var samples []float64
	for rows.Next() {
		var sample float64
		if err := rows.Scan(&sample); err != nil {
			return nil, fmt.Errorf("scan %s: %w", operation, err)
		}
		samples = append(samples, sample)
	}

	return samples, rows.Err()
}

// queryGroupedSamples runs a query whose rows are (project, sample) pairs.
func (r *MetricsRepo) queryGroupedSamples(ctx context.Context, operation, query string, args ...any) (map[string][]float64, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", operation, err)
	}
	defer rows.Close()

	samples := make(map[string][]float64)
	for rows.Next() {
		var project string
		var sample float64
		if err := rows.Scan(&project, &sample); err != nil {
			return nil, fmt.Errorf("scan %s: %w", operation, err)
		}
		samples[project] = append(samples[project], sample)
	}

	return samples, rows.Err()
}
