package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ericfisherdev/devpulse/internal/domain/model"
	"github.com/ericfisherdev/devpulse/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PRStore = (*PRRepo)(nil)

// PRRepo is the SQLite implementation of the PRStore port.
type PRRepo struct {
	db *DB
}

// NewPRRepo creates a new PRRepo backed by the given DB.
func NewPRRepo(db *DB) *PRRepo {
	return &PRRepo{db: db}
}

const prColumns = `id, number, repo_name, project_name, title, author, state, is_draft,
       base_branch, head_branch, labels, additions, deletions, changed_files,
       created_at, updated_at, closed_at, merged_at, first_review_at, approved_at`

// Insert stores a new pull request. The unique constraint on
// (project_name, repo_name, number) rejects duplicate natural keys.
func (r *PRRepo) Insert(ctx context.Context, pr model.PullRequest) error {
	const query = `
		INSERT INTO pull_requests (
			number, repo_name, project_name, title, author, state, is_draft,
			base_branch, head_branch, labels, additions, deletions, changed_files,
			created_at, updated_at, closed_at, merged_at, first_review_at, approved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	labelsJSON, err := marshalLabels(pr.Labels)
	if err != nil {
		return err
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		pr.Number, pr.RepoName, pr.ProjectName, pr.Title, pr.Author,
		string(pr.State), boolToInt(pr.IsDraft),
		pr.BaseBranch, nullableString(pr.HeadBranch), labelsJSON,
		pr.Additions, pr.Deletions, pr.ChangedFiles,
		fmtTime(pr.CreatedAt), fmtTime(pr.UpdatedAt),
		fmtNullTime(pr.ClosedAt), fmtNullTime(pr.MergedAt),
		fmtNullTime(pr.FirstReviewAt), fmtNullTime(pr.ApprovedAt),
	)
	if err != nil {
		return fmt.Errorf("insert pull request %s/%s#%d: %w", pr.ProjectName, pr.RepoName, pr.Number, err)
	}

	return nil
}

// Update overwrites the mutable fields of an existing pull request, keyed by
// its natural identity.
func (r *PRRepo) Update(ctx context.Context, pr model.PullRequest) error {
	const query = `
		UPDATE pull_requests SET
			title = ?, author = ?, state = ?, is_draft = ?,
			base_branch = ?, head_branch = ?, labels = ?,
			additions = ?, deletions = ?, changed_files = ?,
			created_at = ?, updated_at = ?, closed_at = ?, merged_at = ?,
			first_review_at = ?, approved_at = ?
		WHERE project_name = ? AND repo_name = ? AND number = ?
	`

	labelsJSON, err := marshalLabels(pr.Labels)
	if err != nil {
		return err
	}

	result, err := r.db.Writer.ExecContext(ctx, query,
		pr.Title, pr.Author, string(pr.State), boolToInt(pr.IsDraft),
		pr.BaseBranch, nullableString(pr.HeadBranch), labelsJSON,
		pr.Additions, pr.Deletions, pr.ChangedFiles,
		fmtTime(pr.CreatedAt), fmtTime(pr.UpdatedAt),
		fmtNullTime(pr.ClosedAt), fmtNullTime(pr.MergedAt),
		fmtNullTime(pr.FirstReviewAt), fmtNullTime(pr.ApprovedAt),
		pr.ProjectName, pr.RepoName, pr.Number,
	)
	if err != nil {
		return fmt.Errorf("update pull request %s/%s#%d: %w", pr.ProjectName, pr.RepoName, pr.Number, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("pull request %s/%s#%d not found", pr.ProjectName, pr.RepoName, pr.Number)
	}

	return nil
}

// GetByKey retrieves a pull request by its natural identity.
// Returns nil, nil if the pull request does not exist.
func (r *PRRepo) GetByKey(ctx context.Context, project, repo string, number int) (*model.PullRequest, error) {
	query := `SELECT ` + prColumns + `
		FROM pull_requests
		WHERE project_name = ? AND repo_name = ? AND number = ?`

	pr, err := scanPR(r.db.Reader.QueryRowContext(ctx, query, project, repo, number))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pull request %s/%s#%d: %w", project, repo, number, err)
	}

	return pr, nil
}

// ListByProject returns all pull requests in a project, ordered by repository
// then number.
func (r *PRRepo) ListByProject(ctx context.Context, project string) ([]model.PullRequest, error) {
	query := `SELECT ` + prColumns + `
		FROM pull_requests
		WHERE project_name = ?
		ORDER BY repo_name, number`

	rows, err := r.db.Reader.QueryContext(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("query pull requests: %w", err)
	}
	defer rows.Close()

	var prs []model.PullRequest
	for rows.Next() {
		pr, err := scanPR(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pull request: %w", err)
		}
		prs = append(prs, *pr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pull requests: %w", err)
	}

	return prs, nil
}

// Delete removes a pull request. Ingestion never deletes; this exists for
// external callers and tests. Returns an error if the PR does not exist.
func (r *PRRepo) Delete(ctx context.Context, project, repo string, number int) error {
	const query = `DELETE FROM pull_requests WHERE project_name = ? AND repo_name = ? AND number = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, project, repo, number)
	if err != nil {
		return fmt.Errorf("delete pull request %s/%s#%d: %w", project, repo, number, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("pull request %s/%s#%d not found", project, repo, number)
	}

	return nil
}

func marshalLabels(labels []string) (string, error) {
	if labels == nil {
		labels = []string{}
	}
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return "", fmt.Errorf("marshal labels: %w", err)
	}
	return string(labelsJSON), nil
}

func scanPR(s scanner) (*model.PullRequest, error) {
	var pr model.PullRequest
	var state, labelsJSON, createdAt, updatedAt string
	var isDraft int
	var headBranch, closedAt, mergedAt, firstReviewAt, approvedAt sql.NullString

	err := s.Scan(
		&pr.ID, &pr.Number, &pr.RepoName, &pr.ProjectName, &pr.Title, &pr.Author,
		&state, &isDraft, &pr.BaseBranch, &headBranch, &labelsJSON,
		&pr.Additions, &pr.Deletions, &pr.ChangedFiles,
		&createdAt, &updatedAt, &closedAt, &mergedAt, &firstReviewAt, &approvedAt,
	)
	if err != nil {
		return nil, err
	}

	pr.State = model.PRState(state)
	pr.IsDraft = isDraft != 0

	if headBranch.Valid {
		branch := headBranch.String
		pr.HeadBranch = &branch
	}

	if err := json.Unmarshal([]byte(labelsJSON), &pr.Labels); err != nil {
		return nil, fmt.Errorf("unmarshal labels: %w", err)
	}

	if pr.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if pr.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if pr.ClosedAt, err = parseNullTime(closedAt); err != nil {
		return nil, fmt.Errorf("parse closed_at: %w", err)
	}
	if pr.MergedAt, err = parseNullTime(mergedAt); err != nil {
		return nil, fmt.Errorf("parse merged_at: %w", err)
	}
	if pr.FirstReviewAt, err = parseNullTime(firstReviewAt); err != nil {
		return nil, fmt.Errorf("parse first_review_at: %w", err)
	}
	if pr.ApprovedAt, err = parseNullTime(approvedAt); err != nil {
		return nil, fmt.Errorf("parse approved_at: %w", err)
	}

	return &pr, nil
}
