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
var _ driven.DeploymentStore = (*DeploymentRepo)(nil)

// DeploymentRepo is the SQLite implementation of the DeploymentStore port.
type DeploymentRepo struct {
	db *DB
}

// NewDeploymentRepo creates a new DeploymentRepo backed by the given DB.
func NewDeploymentRepo(db *DB) *DeploymentRepo {
	return &DeploymentRepo{db: db}
}

const deploymentColumns = `deployment_id, project_name, environment, commit_sha, status,
       started_at, completed_at, is_failed, is_rollback, rollback_of, recovered_at, related_prs`

// Insert stores a new deployment. The primary key on deployment_id rejects
// duplicates.
func (r *DeploymentRepo) Insert(ctx context.Context, d model.Deployment) error {
	const query = `
		INSERT INTO deployments (
			deployment_id, project_name, environment, commit_sha, status,
			started_at, completed_at, is_failed, is_rollback, rollback_of,
			recovered_at, related_prs
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	relatedPRs := d.RelatedPRs
	if relatedPRs == nil {
		relatedPRs = []int{}
	}
	relatedJSON, err := json.Marshal(relatedPRs)
	if err != nil {
		return fmt.Errorf("marshal related prs: %w", err)
	}

	_, err = r.db.Writer.ExecContext(ctx, query,
		d.DeploymentID, d.ProjectName, string(d.Environment), d.CommitSHA, string(d.Status),
		fmtTime(d.StartedAt), fmtNullTime(d.CompletedAt),
		boolToInt(d.IsFailed), boolToInt(d.IsRollback),
		nullableString(d.RollbackOf), fmtNullTime(d.RecoveredAt),
		string(relatedJSON),
	)
	if err != nil {
		return fmt.Errorf("insert deployment %s: %w", d.DeploymentID, err)
	}

	return nil
}

// GetByID retrieves a deployment by its unique ID.
// Returns nil, nil if the deployment does not exist.
func (r *DeploymentRepo) GetByID(ctx context.Context, deploymentID string) (*model.Deployment, error) {
	query := `SELECT ` + deploymentColumns + ` FROM deployments WHERE deployment_id = ?`

	d, err := scanDeployment(r.db.Reader.QueryRowContext(ctx, query, deploymentID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get deployment %s: %w", deploymentID, err)
	}

	return d, nil
}

// ListByProject returns all deployments in a project, ordered by started_at.
func (r *DeploymentRepo) ListByProject(ctx context.Context, project string) ([]model.Deployment, error) {
	query := `SELECT ` + deploymentColumns + `
		FROM deployments
		WHERE project_name = ?
		ORDER BY started_at`

	rows, err := r.db.Reader.QueryContext(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("query deployments: %w", err)
	}
	defer rows.Close()

	var deployments []model.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deployment: %w", err)
		}
		deployments = append(deployments, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deployments: %w", err)
	}

	return deployments, nil
}

func scanDeployment(s scanner) (*model.Deployment, error) {
	var d model.Deployment
	var environment, status, startedAt, relatedJSON string
	var completedAt, rollbackOf, recoveredAt sql.NullString
	var isFailed, isRollback int

	err := s.Scan(
		&d.DeploymentID, &d.ProjectName, &environment, &d.CommitSHA, &status,
		&startedAt, &completedAt, &isFailed, &isRollback,
		&rollbackOf, &recoveredAt, &relatedJSON,
	)
	if err != nil {
		return nil, err
	}

	d.Environment = model.Environment(environment)
	d.Status = model.DeploymentStatus(status)
	d.IsFailed = isFailed != 0
	d.IsRollback = isRollback != 0

	if rollbackOf.Valid {
		ref := rollbackOf.String
		d.RollbackOf = &ref
	}

	if err := json.Unmarshal([]byte(relatedJSON), &d.RelatedPRs); err != nil {
		return nil, fmt.Errorf("unmarshal related prs: %w", err)
	}

	if d.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if d.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}
	if d.RecoveredAt, err = parseNullTime(recoveredAt); err != nil {
		return nil, fmt.Errorf("parse recovered_at: %w", err)
	}

	return &d, nil
}
