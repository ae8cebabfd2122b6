package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Bidon15/indicator-deployer/internal/database"
)

// setupTestDB starts PostgreSQL in a container and applies the embedded migrations.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")
	require.NoError(t, database.Migrate(dsn), "failed to migrate")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	t.Cleanup(func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})
	return pool
}

func ptr[T any](v T) *T {
	return &v
}

func newDeployment(runID string) *Deployment {
	return &Deployment{
		RunID:    runID,
		Artifact: "MultipleMovingAverageCrossoverIndicator",
		ChainID:  1,
		Pool:     "0x8ad599c3A0ff1De082011EFDDc58f1908eb6e6D8",
		Operator: "0xD20673d9c07BaA5400B9DF075C3077DfE75A1a1F",
		Params:   json.RawMessage(`{"longTermTimePeriods":[302400],"shortTermTimePeriods":[43200]}`),
	}
}

func TestPostgresRepositoryLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	repo := NewPostgresRepository(setupTestDB(t))
	ctx := context.Background()

	d := newDeployment("01HZXQ7V3M2X4T9B8N6K5J0RQA")
	require.NoError(t, repo.CreateDeployment(ctx, d))
	assert.NotEqual(t, uuid.Nil, d.ID)
	assert.Equal(t, StatusPending, d.Status)
	assert.False(t, d.CreatedAt.IsZero())

	require.NoError(t, repo.MarkRunning(ctx, d.ID))
	got, err := repo.GetDeployment(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)

	require.NoError(t, repo.CompleteDeployment(ctx, d.ID, Completion{
		TxHash:          "0xabc",
		ContractAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		BlockNumber:     19_000_000,
	}))

	got, err = repo.GetDeploymentByRunID(ctx, d.RunID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, ptr("0xabc"), got.TxHash)
	assert.Equal(t, ptr("0x5FbDB2315678afecb367f032d93F642f64180aa3"), got.ContractAddress)
	assert.Equal(t, ptr(int64(19_000_000)), got.BlockNumber)
	assert.Nil(t, got.ErrorMessage)
	assert.JSONEq(t, string(d.Params), string(got.Params))
}

func TestPostgresRepositoryFail(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	repo := NewPostgresRepository(setupTestDB(t))
	ctx := context.Background()

	withoutTx := newDeployment("run-a")
	require.NoError(t, repo.CreateDeployment(ctx, withoutTx))
	require.NoError(t, repo.FailDeployment(ctx, withoutTx.ID, nil, "deploy rejected"))

	got, err := repo.GetDeployment(ctx, withoutTx.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Nil(t, got.TxHash)
	assert.Equal(t, ptr("deploy rejected"), got.ErrorMessage)

	withTx := newDeployment("run-b")
	require.NoError(t, repo.CreateDeployment(ctx, withTx))
	require.NoError(t, repo.FailDeployment(ctx, withTx.ID, ptr("0xdead"), "reverted"))

	got, err = repo.GetDeployment(ctx, withTx.ID)
	require.NoError(t, err)
	assert.Equal(t, ptr("0xdead"), got.TxHash)
}

func TestPostgresRepositoryNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	repo := NewPostgresRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.GetDeployment(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetDeploymentByRunID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.MarkRunning(ctx, uuid.New()), ErrNotFound)
	assert.ErrorIs(t, repo.CompleteDeployment(ctx, uuid.New(), Completion{}), ErrNotFound)
	assert.ErrorIs(t, repo.FailDeployment(ctx, uuid.New(), nil, "x"), ErrNotFound)
}

func TestPostgresRepositoryList(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	repo := NewPostgresRepository(setupTestDB(t))
	ctx := context.Background()

	// Identical bundles are recorded as separate runs.
	for _, runID := range []string{"run-1", "run-2", "run-3"} {
		require.NoError(t, repo.CreateDeployment(ctx, newDeployment(runID)))
	}

	all, err := repo.ListDeployments(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := repo.ListDeployments(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "run-3", limited[0].RunID)
}

func TestCreateDeploymentDuplicateRunID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	repo := NewPostgresRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateDeployment(ctx, newDeployment("same")))
	assert.Error(t, repo.CreateDeployment(ctx, newDeployment("same")))
}
