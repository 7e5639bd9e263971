package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/devpulse/internal/domain/model"
	"github.com/ericfisherdev/devpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CIRunStore = (*CIRunRepo)(nil)

// CIRunRepo is the SQLite implementation of the CIRunStore port.
type CIRunRepo struct {
	db *DB
}

// NewCIRunRepo creates a new CIRunRepo backed by the given DB.
func NewCIRunRepo(db *DB) *CIRunRepo {
	return &CIRunRepo{db: db}
}

const ciRunColumns = `run_id, workflow_name, repo_name, project_name, branch, commit_sha,
       pr_number, status, conclusion, started_at, completed_at, is_flaky, flaky_test_count`

// Insert stores a new CI run. The primary key on run_id rejects duplicates.
func (r *CIRunRepo) Insert(ctx context.Context, run model.CIRun) error {
	const query = `
		INSERT INTO ci_runs (
			run_id, workflow_name, repo_name, project_name, branch, commit_sha,
			pr_number, status, conclusion, started_at, completed_at, is_flaky, flaky_test_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		run.RunID, run.WorkflowName, run.RepoName, run.ProjectName,
		nullableString(run.Branch), nullableString(run.CommitSHA),
		nullableInt(run.PRNumber), string(run.Status), nullableConclusion(run.Conclusion),
		fmtTime(run.StartedAt), fmtNullTime(run.CompletedAt),
		boolToInt(run.IsFlaky), run.FlakyTestCount,
	)
	if err != nil {
		return fmt.Errorf("insert ci run %s: %w", run.RunID, err)
	}

	return nil
}

// Update overwrites the mutable fields of an existing CI run.
func (r *CIRunRepo) Update(ctx context.Context, run model.CIRun) error {
	const query = `
		UPDATE ci_runs SET
			workflow_name = ?, repo_name = ?, branch = ?, commit_sha = ?,
			pr_number = ?, status = ?, conclusion = ?, started_at = ?,
			completed_at = ?, is_flaky = ?, flaky_test_count = ?
		WHERE run_id = ?
	`

	result, err := r.db.Writer.ExecContext(ctx, query,
		run.WorkflowName, run.RepoName,
		nullableString(run.Branch), nullableString(run.CommitSHA),
		nullableInt(run.PRNumber), string(run.Status), nullableConclusion(run.Conclusion),
		fmtTime(run.StartedAt), fmtNullTime(run.CompletedAt),
		boolToInt(run.IsFlaky), run.FlakyTestCount,
		run.RunID,
	)
	if err != nil {
		return fmt.Errorf("update ci run %s: %w", run.RunID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("ci run %s not found", run.RunID)
	}

	return nil
}

// GetByRunID retrieves a CI run by its unique ID.
// Returns nil, nil if the run does not exist.
func (r *CIRunRepo) GetByRunID(ctx context.Context, runID string) (*model.CIRun, error) {
	query := `SELECT ` + ciRunColumns + ` FROM ci_runs WHERE run_id = ?`

	run, err := scanCIRun(r.db.Reader.QueryRowContext(ctx, query, runID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ci run %s: %w", runID, err)
	}

	return run, nil
}

// ListUnflagged returns non-flaky runs started at or after since, ordered by
// started_at then run_id for stable batch pagination.
func (r *CIRunRepo) ListUnflagged(ctx context.Context, since time.Time, limit, offset int) ([]model.CIRun, error) {
	query := `SELECT ` + ciRunColumns + `
		FROM ci_runs
		WHERE is_flaky = 0 AND started_at >= ?
		ORDER BY started_at, run_id
		LIMIT ? OFFSET ?`

	rows, err := r.db.Reader.QueryContext(ctx, query, fmtTime(since), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query unflagged ci runs: %w", err)
	}
	defer rows.Close()

	var runs []model.CIRun
	for rows.Next() {
		run, err := scanCIRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ci run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ci runs: %w", err)
	}

	return runs, nil
}

// MarkFlaky flags the given runs as flaky in a single batched update. The
// is_flaky guard makes the write one-directional: already-flagged runs are
// never touched again.
func (r *CIRunRepo) MarkFlaky(ctx context.Context, runIDs []string) error {
	if len(runIDs) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(runIDs)-1) + "?"
	query := `UPDATE ci_runs SET is_flaky = 1, flaky_test_count = 1
		WHERE is_flaky = 0 AND run_id IN (` + placeholders + `)`

	args := make([]any, len(runIDs))
	for i, id := range runIDs {
		args[i] = id
	}

	if _, err := r.db.Writer.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark %d ci runs flaky: %w", len(runIDs), err)
	}

	return nil
}

func nullableConclusion(c model.CIRunConclusion) any {
	if c == model.CIConclusionNone {
		return nil
	}
	return string(c)
}

func scanCIRun(s scanner) (*model.CIRun, error) {
	var run model.CIRun
	var status, startedAt string
	var branch, commitSHA, conclusion, completedAt sql.NullString
	var prNumber sql.NullInt64
	var isFlaky int

	err := s.Scan(
		&run.RunID, &run.WorkflowName, &run.RepoName, &run.ProjectName,
		&branch, &commitSHA, &prNumber, &status, &conclusion,
		&startedAt, &completedAt, &isFlaky, &run.FlakyTestCount,
	)
	if err != nil {
		return nil, err
	}

	run.Status = model.CIRunStatus(status)
	run.IsFlaky = isFlaky != 0

	if branch.Valid {
		b := branch.String
		run.Branch = &b
	}
	if commitSHA.Valid {
		sha := commitSHA.String
		run.CommitSHA = &sha
	}
	if prNumber.Valid {
		n := int(prNumber.Int64)
		run.PRNumber = &n
	}
	if conclusion.Valid {
		run.Conclusion = model.CIRunConclusion(conclusion.String)
	}

	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if run.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}

	return &run, nil
}
