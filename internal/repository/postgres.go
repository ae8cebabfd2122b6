package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a requested deployment does not exist.
var ErrNotFound = errors.New("not found")

const deploymentColumns = `id, run_id, artifact, chain_id, pool, operator, params, status,
		       tx_hash, contract_address, block_number, error_message, created_at, updated_at`

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// CreateDeployment inserts a new deployment record.
func (r *PostgresRepository) CreateDeployment(ctx context.Context, d *Deployment) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = StatusPending
	}

	query := `
		INSERT INTO indicator_deployments (id, run_id, artifact, chain_id, pool, operator, params, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		d.ID, d.RunID, d.Artifact, d.ChainID, d.Pool, d.Operator, d.Params, d.Status,
	).Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("CreateDeployment: %w", err)
	}
	return nil
}

// MarkRunning moves a pending deployment to running.
func (r *PostgresRepository) MarkRunning(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE indicator_deployments
		SET status = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, StatusRunning)
	if err != nil {
		return fmt.Errorf("MarkRunning: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteDeployment stores the receipt data and marks the deployment completed.
func (r *PostgresRepository) CompleteDeployment(ctx context.Context, id uuid.UUID, c Completion) error {
	query := `
		UPDATE indicator_deployments
		SET status = $2, tx_hash = $3, contract_address = $4, block_number = $5, updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, StatusCompleted, c.TxHash, c.ContractAddress, c.BlockNumber)
	if err != nil {
		return fmt.Errorf("CompleteDeployment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FailDeployment sets the error message and marks the deployment as failed.
func (r *PostgresRepository) FailDeployment(ctx context.Context, id uuid.UUID, txHash *string, errMsg string) error {
	query := `
		UPDATE indicator_deployments
		SET status = $2, tx_hash = COALESCE($3, tx_hash), error_message = $4, updated_at = NOW()
		WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id, StatusFailed, txHash, errMsg)
	if err != nil {
		return fmt.Errorf("FailDeployment: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetDeployment retrieves a deployment by its UUID.
func (r *PostgresRepository) GetDeployment(ctx context.Context, id uuid.UUID) (*Deployment, error) {
	query := `SELECT ` + deploymentColumns + ` FROM indicator_deployments WHERE id = $1`

	d, err := scanDeployment(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetDeployment: %w", err)
	}
	return d, nil
}

// GetDeploymentByRunID retrieves a deployment by the run id the configurator assigned.
func (r *PostgresRepository) GetDeploymentByRunID(ctx context.Context, runID string) (*Deployment, error) {
	query := `SELECT ` + deploymentColumns + ` FROM indicator_deployments WHERE run_id = $1`

	d, err := scanDeployment(r.pool.QueryRow(ctx, query, runID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetDeploymentByRunID: %w", err)
	}
	return d, nil
}

// ListDeployments retrieves the most recent deployments.
func (r *PostgresRepository) ListDeployments(ctx context.Context, limit int) ([]*Deployment, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	query := `SELECT ` + deploymentColumns + `
		FROM indicator_deployments
		ORDER BY created_at DESC, run_id DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ListDeployments: %w", err)
	}
	defer rows.Close()

	var deployments []*Deployment
	for rows.Next() {
		d, err := scanDeployment(rows)
		if err != nil {
			return nil, fmt.Errorf("ListDeployments scan: %w", err)
		}
		deployments = append(deployments, d)
	}
	return deployments, rows.Err()
}

func scanDeployment(row pgx.Row) (*Deployment, error) {
	var d Deployment
	err := row.Scan(
		&d.ID, &d.RunID, &d.Artifact, &d.ChainID, &d.Pool, &d.Operator, &d.Params, &d.Status,
		&d.TxHash, &d.ContractAddress, &d.BlockNumber, &d.ErrorMessage, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Compile-time check to ensure PostgresRepository implements Repository.
var _ Repository = (*PostgresRepository)(nil)
