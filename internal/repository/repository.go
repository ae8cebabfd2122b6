package repository

import (
	"context"

	"github.com/google/uuid"
)

// DefaultListLimit bounds ListDeployments when the caller passes no limit.
const DefaultListLimit = 50

// Repository defines the interface for deployment ledger operations.
type Repository interface {
	CreateDeployment(ctx context.Context, d *Deployment) error
	MarkRunning(ctx context.Context, id uuid.UUID) error
	CompleteDeployment(ctx context.Context, id uuid.UUID, c Completion) error
	// FailDeployment records errMsg and, when known, the hash of the
	// transaction that was broadcast before the failure.
	FailDeployment(ctx context.Context, id uuid.UUID, txHash *string, errMsg string) error
	GetDeployment(ctx context.Context, id uuid.UUID) (*Deployment, error)
	GetDeploymentByRunID(ctx context.Context, runID string) (*Deployment, error)
	// ListDeployments returns the newest deployments first.
	ListDeployments(ctx context.Context, limit int) ([]*Deployment, error)
}
