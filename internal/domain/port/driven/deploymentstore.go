package driven

import (
	"context"

	"github.com/ericfisherdev/devpulse/internal/domain/model"
)

// DeploymentStore defines the driven port for deployment persistence.
// Deployments are recorded by an external collaborator; the core only reads
// them for metrics, so the write surface stays minimal.
type DeploymentStore interface {
	Insert(ctx context.Context, d model.Deployment) error
	// GetByID retrieves a deployment by its unique ID. Returns nil, nil when
	// the deployment does not exist.
	GetByID(ctx context.Context, deploymentID string) (*model.Deployment, error)
	ListByProject(ctx context.Context, project string) ([]model.Deployment, error)
}
