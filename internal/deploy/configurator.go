// Package deploy turns a validated indicator parameter bundle into exactly one
// contract deployment.
package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/Bidon15/indicator-deployer/internal/artifact"
	"github.com/Bidon15/indicator-deployer/internal/chain"
	"github.com/Bidon15/indicator-deployer/internal/indicator"
	"github.com/Bidon15/indicator-deployer/internal/lock"
	"github.com/Bidon15/indicator-deployer/internal/metrics"
	"github.com/Bidon15/indicator-deployer/internal/pkg/ulid"
	"github.com/Bidon15/indicator-deployer/internal/repository"
)

// Deployer creates a contract from an artifact with constructor arguments.
// *chain.ContractDeployer implements it.
type Deployer interface {
	Deploy(ctx context.Context, art *artifact.Artifact, args ...any) (*chain.DeploymentResult, error)
}

// Ledger records run progress. repository.Repository satisfies it.
type Ledger interface {
	CreateDeployment(ctx context.Context, d *repository.Deployment) error
	MarkRunning(ctx context.Context, id uuid.UUID) error
	CompleteDeployment(ctx context.Context, id uuid.UUID, c repository.Completion) error
	FailDeployment(ctx context.Context, id uuid.UUID, txHash *string, errMsg string) error
}

// Locker serializes runs that share a deployer account.
// *lock.RedisLocker implements it.
type Locker interface {
	Lock(ctx context.Context, chainID int64, account common.Address) (release func(context.Context) error, err error)
}

// Recorder receives run outcomes. *metrics.Metrics implements it.
type Recorder interface {
	ObserveRun(result string, d time.Duration)
	ObserveDeployment(gasUsed, blockNumber uint64)
}

// Target names what is deployed and where.
type Target struct {
	// ArtifactName is resolved through the registry on every run.
	ArtifactName string
	ChainID      int64
	// Account is the deployer address; it keys the lock.
	Account common.Address
	// RecordNetwork writes the deployed address back into the artifact
	// when the registry supports it.
	RecordNetwork bool
}

// Result describes a completed run.
type Result struct {
	RunID        string                  `json:"run_id"`
	DeploymentID uuid.UUID               `json:"deployment_id"`
	Deployment   *chain.DeploymentResult `json:"deployment"`
	Duration     time.Duration           `json:"duration"`
}

// Configurator validates an indicator bundle and hands it to the Deployer.
type Configurator struct {
	registry artifact.Registry
	deployer Deployer
	target   Target
	ledger   Ledger
	locker   Locker
	recorder Recorder
	logger   *slog.Logger
}

// Option configures optional collaborators.
type Option func(*Configurator)

// WithLedger records every run in l.
func WithLedger(l Ledger) Option {
	return func(c *Configurator) { c.ledger = l }
}

// WithLocker guards the deployer account with l.
func WithLocker(l Locker) Option {
	return func(c *Configurator) { c.locker = l }
}

// WithRecorder reports run outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(c *Configurator) { c.recorder = r }
}

// NewConfigurator creates a configurator for target.
func NewConfigurator(registry artifact.Registry, deployer Deployer, target Target, logger *slog.Logger, opts ...Option) *Configurator {
	if logger == nil {
		logger = slog.Default()
	}
	if target.ArtifactName == "" {
		target.ArtifactName = indicator.ContractName
	}
	c := &Configurator{
		registry: registry,
		deployer: deployer,
		target:   target,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run validates params, resolves the artifact and calls the Deployer exactly
// once with (pool, longTermTimePeriods, shortTermTimePeriods,
// uncertainIsBullish, operator).
//
// A *indicator.ConfigError is returned before the registry or Deployer is
// touched. An error from the Deployer is returned as is. Ledger, lock release
// and artifact write-back failures are logged and do not change the outcome.
// Every call is a new deployment attempt.
func (c *Configurator) Run(ctx context.Context, params indicator.Params) (*Result, error) {
	start := time.Now()
	runID := ulid.New()
	logger := c.logger.With(slog.String("run_id", runID))

	p := params.Clone()
	if err := p.Validate(); err != nil {
		logger.Error("invalid deployment parameters", slog.String("error", err.Error()))
		c.observe(metrics.ResultConfigError, start)
		return nil, err
	}

	art, err := c.registry.Resolve(ctx, c.target.ArtifactName)
	if err != nil {
		logger.Error("failed to resolve artifact",
			slog.String("artifact", c.target.ArtifactName),
			slog.String("error", err.Error()),
		)
		c.observe(metrics.ResultAborted, start)
		return nil, fmt.Errorf("resolve artifact %s: %w", c.target.ArtifactName, err)
	}

	if c.locker != nil {
		release, err := c.locker.Lock(ctx, c.target.ChainID, c.target.Account)
		if err != nil {
			logger.Error("failed to lock deployer account",
				slog.String("account", c.target.Account.Hex()),
				slog.String("error", err.Error()),
			)
			c.observe(metrics.ResultAborted, start)
			if errors.Is(err, lock.ErrLocked) {
				return nil, err
			}
			return nil, fmt.Errorf("lock deployer account: %w", err)
		}
		defer func() {
			// The run context may already be cancelled.
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := release(releaseCtx); err != nil {
				logger.Warn("failed to release deployer lock", slog.String("error", err.Error()))
			}
		}()
	}

	deploymentID := c.recordStart(ctx, logger, runID, p)

	logger.Info("deploying indicator",
		slog.String("artifact", art.ContractName),
		slog.Int64("chain_id", c.target.ChainID),
		slog.String("pool", p.Pool.Hex()),
		slog.String("operator", p.Operator.Hex()),
		slog.Int("window_pairs", len(p.LongTermTimePeriods)),
		slog.Bool("uncertain_is_bullish", p.UncertainIsBullish),
	)

	deployed, err := c.deployer.Deploy(ctx, art, p.ConstructorArgs()...)
	if err != nil {
		logger.Error("deployment failed", slog.String("error", err.Error()))
		c.recordFailure(ctx, logger, deploymentID, err)
		c.observe(metrics.ResultDeployError, start)
		return nil, err
	}

	logger.Info("indicator deployed",
		slog.String("address", deployed.ContractAddress.Hex()),
		slog.String("tx_hash", deployed.TransactionHash.Hex()),
		slog.Uint64("block_number", deployed.BlockNumber),
	)

	c.recordNetwork(ctx, logger, art.ContractName, deployed)
	c.recordSuccess(ctx, logger, deploymentID, deployed)
	if c.recorder != nil {
		c.recorder.ObserveDeployment(deployed.GasUsed, deployed.BlockNumber)
	}
	c.observe(metrics.ResultCompleted, start)

	return &Result{
		RunID:        runID,
		DeploymentID: deploymentID,
		Deployment:   deployed,
		Duration:     time.Since(start),
	}, nil
}

func (c *Configurator) observe(result string, start time.Time) {
	if c.recorder != nil {
		c.recorder.ObserveRun(result, time.Since(start))
	}
}

// recordStart inserts the run and marks it running. It returns uuid.Nil when
// there is no ledger or the ledger is unavailable.
func (c *Configurator) recordStart(ctx context.Context, logger *slog.Logger, runID string, p indicator.Params) uuid.UUID {
	if c.ledger == nil {
		return uuid.Nil
	}

	encoded, err := json.Marshal(p)
	if err != nil {
		logger.Warn("failed to encode parameters for ledger", slog.String("error", err.Error()))
		return uuid.Nil
	}

	d := &repository.Deployment{
		RunID:    runID,
		Artifact: c.target.ArtifactName,
		ChainID:  c.target.ChainID,
		Pool:     p.Pool.Hex(),
		Operator: p.Operator.Hex(),
		Params:   encoded,
		Status:   repository.StatusPending,
	}
	if err := c.ledger.CreateDeployment(ctx, d); err != nil {
		logger.Warn("failed to record deployment", slog.String("error", err.Error()))
		return uuid.Nil
	}
	if err := c.ledger.MarkRunning(ctx, d.ID); err != nil {
		logger.Warn("failed to mark deployment running",
			slog.String("deployment_id", d.ID.String()),
			slog.String("error", err.Error()),
		)
	}
	return d.ID
}

func (c *Configurator) recordFailure(ctx context.Context, logger *slog.Logger, id uuid.UUID, deployErr error) {
	if c.ledger == nil || id == uuid.Nil {
		return
	}

	var txHash *string
	var depErr *chain.DeploymentError
	if errors.As(deployErr, &depErr) && depErr.TxHash != (common.Hash{}) {
		h := depErr.TxHash.Hex()
		txHash = &h
	}

	if err := c.ledger.FailDeployment(context.WithoutCancel(ctx), id, txHash, deployErr.Error()); err != nil {
		logger.Warn("failed to record deployment failure",
			slog.String("deployment_id", id.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Configurator) recordSuccess(ctx context.Context, logger *slog.Logger, id uuid.UUID, deployed *chain.DeploymentResult) {
	if c.ledger == nil || id == uuid.Nil {
		return
	}

	err := c.ledger.CompleteDeployment(context.WithoutCancel(ctx), id, repository.Completion{
		TxHash:          deployed.TransactionHash.Hex(),
		ContractAddress: deployed.ContractAddress.Hex(),
		BlockNumber:     int64(deployed.BlockNumber),
	})
	if err != nil {
		logger.Warn("failed to record deployment completion",
			slog.String("deployment_id", id.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Configurator) recordNetwork(ctx context.Context, logger *slog.Logger, name string, deployed *chain.DeploymentResult) {
	if !c.target.RecordNetwork {
		return
	}
	recorder, ok := c.registry.(artifact.NetworkRecorder)
	if !ok {
		return
	}

	err := recorder.RecordNetwork(ctx, name, deployed.ChainID, deployed.ContractAddress, deployed.TransactionHash)
	if err != nil {
		logger.Warn("failed to record network in artifact",
			slog.String("artifact", name),
			slog.String("error", err.Error()),
		)
	}
}
