package deploy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Bidon15/indicator-deployer/internal/artifact"
	"github.com/Bidon15/indicator-deployer/internal/chain"
	"github.com/Bidon15/indicator-deployer/internal/indicator"
	"github.com/Bidon15/indicator-deployer/internal/lock"
	"github.com/Bidon15/indicator-deployer/internal/metrics"
	"github.com/Bidon15/indicator-deployer/internal/repository"
)

const indicatorABI = `[{
	"inputs": [
		{"name": "pool", "type": "address"},
		{"name": "longTermTimePeriods", "type": "uint256[]"},
		{"name": "shortTermTimePeriods", "type": "uint256[]"},
		{"name": "uncertainIsBullish", "type": "bool"},
		{"name": "operator", "type": "address"}
	],
	"stateMutability": "nonpayable",
	"type": "constructor"
}]`

var (
	deployerAccount = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	contractAddress = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	deployTxHash    = common.HexToHash("0x6a1f0e7b1c4ad4b8c1f0c5c2b2a3f1f2e3d4c5b6a7980f1e2d3c4b5a69788796")
)

// MockRegistry is a mock implementation of artifact.Registry for testing.
type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) Resolve(ctx context.Context, name string) (*artifact.Artifact, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*artifact.Artifact), args.Error(1)
}

// MockRecordingRegistry also writes deployed addresses back.
type MockRecordingRegistry struct {
	MockRegistry
}

func (m *MockRecordingRegistry) RecordNetwork(ctx context.Context, name string, chainID int64, address common.Address, txHash common.Hash) error {
	args := m.Called(ctx, name, chainID, address, txHash)
	return args.Error(0)
}

// MockDeployer is a mock implementation of Deployer for testing.
type MockDeployer struct {
	mock.Mock
}

func (m *MockDeployer) Deploy(ctx context.Context, art *artifact.Artifact, constructorArgs ...any) (*chain.DeploymentResult, error) {
	args := m.Called(ctx, art, constructorArgs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chain.DeploymentResult), args.Error(1)
}

// MockLedger is a mock implementation of Ledger for testing.
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) CreateDeployment(ctx context.Context, d *repository.Deployment) error {
	args := m.Called(ctx, d)
	if args.Error(0) == nil && d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockLedger) MarkRunning(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockLedger) CompleteDeployment(ctx context.Context, id uuid.UUID, c repository.Completion) error {
	return m.Called(ctx, id, c).Error(0)
}

func (m *MockLedger) FailDeployment(ctx context.Context, id uuid.UUID, txHash *string, errMsg string) error {
	return m.Called(ctx, id, txHash, errMsg).Error(0)
}

// MockLocker is a mock implementation of Locker for testing.
type MockLocker struct {
	mock.Mock
	released int
}

func (m *MockLocker) Lock(ctx context.Context, chainID int64, account common.Address) (func(context.Context) error, error) {
	args := m.Called(ctx, chainID, account)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func(context.Context) error {
		m.released++
		return nil
	}, nil
}

// MockRecorder is a mock implementation of Recorder for testing.
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) ObserveRun(result string, d time.Duration) {
	m.Called(result, d)
}

func (m *MockRecorder) ObserveDeployment(gasUsed, blockNumber uint64) {
	m.Called(gasUsed, blockNumber)
}

func testArtifact() *artifact.Artifact {
	return &artifact.Artifact{
		ContractName: indicator.ContractName,
		ABI:          json.RawMessage(indicatorABI),
		Bytecode:     artifact.NewBytecode("0x600a600c600039600a6000f3602a60005260206000f3"),
	}
}

func testResult() *chain.DeploymentResult {
	return &chain.DeploymentResult{
		ContractName:    indicator.ContractName,
		ContractAddress: contractAddress,
		TransactionHash: deployTxHash,
		BlockNumber:     19_000_000,
		GasUsed:         1_850_000,
		Deployer:        deployerAccount,
		ChainID:         1,
	}
}

func fixtureArgs() []any {
	return []any{
		common.HexToAddress("0x8ad599c3A0ff1De082011EFDDc58f1908eb6e6D8"),
		[]uint64{302400, 259200, 216000, 172800},
		[]uint64{43200, 32400, 21600, 10800},
		false,
		common.HexToAddress("0xD20673d9c07BaA5400B9DF075C3077DfE75A1a1F"),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTarget() Target {
	return Target{ArtifactName: indicator.ContractName, ChainID: 1, Account: deployerAccount}
}

func newTestConfigurator(registry artifact.Registry, deployer Deployer, opts ...Option) *Configurator {
	return NewConfigurator(registry, deployer, testTarget(), discardLogger(), opts...)
}

func TestRunFixtureDeploysOnceInConstructorOrder(t *testing.T) {
	registry := new(MockRegistry)
	deployer := new(MockDeployer)
	art := testArtifact()

	registry.On("Resolve", mock.Anything, indicator.ContractName).Return(art, nil)
	deployer.On("Deploy", mock.Anything, art, fixtureArgs()).Return(testResult(), nil).Once()

	c := newTestConfigurator(registry, deployer)
	result, err := c.Run(context.Background(), indicator.DefaultParams())
	require.NoError(t, err)

	assert.Equal(t, testResult(), result.Deployment)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, uuid.Nil, result.DeploymentID)
	deployer.AssertNumberOfCalls(t, "Deploy", 1)
	deployer.AssertExpectations(t)
}

func TestRunArgumentOrderPreserved(t *testing.T) {
	registry := new(MockRegistry)
	deployer := new(MockDeployer)
	registry.On("Resolve", mock.Anything, mock.Anything).Return(testArtifact(), nil)

	params := indicator.Params{
		Pool:                 common.HexToAddress("0x1111111111111111111111111111111111111111"),
		LongTermTimePeriods:  []uint64{900, 800},
		ShortTermTimePeriods: []uint64{90, 80},
		UncertainIsBullish:   true,
		Operator:             common.HexToAddress("0x2222222222222222222222222222222222222222"),
	}

	var got []any
	deployer.On("Deploy", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(2).([]any) }).
		Return(testResult(), nil)

	_, err := newTestConfigurator(registry, deployer).Run(context.Background(), params)
	require.NoError(t, err)

	require.Len(t, got, 5)
	assert.Equal(t, params.Pool, got[0])
	assert.Equal(t, params.LongTermTimePeriods, got[1])
	assert.Equal(t, params.ShortTermTimePeriods, got[2])
	assert.Equal(t, true, got[3])
	assert.Equal(t, params.Operator, got[4])
}

func TestRunDoesNotShareSlicesWithCaller(t *testing.T) {
	registry := new(MockRegistry)
	deployer := new(MockDeployer)
	registry.On("Resolve", mock.Anything, mock.Anything).Return(testArtifact(), nil)

	params := indicator.DefaultParams()
	var got []any
	deployer.On("Deploy", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			got = args.Get(2).([]any)
			params.LongTermTimePeriods[0] = 1
		}).
		Return(testResult(), nil)

	_, err := newTestConfigurator(registry, deployer).Run(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, uint64(302400), got[1].([]uint64)[0])
}

func TestRunLengthMismatchNeverDeploys(t *testing.T) {
	for _, tc := range []struct {
		name        string
		long, short []uint64
	}{
		{"short list shorter", []uint64{302400, 259200, 216000, 172800}, []uint64{43200, 32400, 21600}},
		{"short list longer", []uint64{302400}, []uint64{43200, 32400}},
		{"short list empty", []uint64{302400}, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			registry := new(MockRegistry)
			deployer := new(MockDeployer)
			recorder := new(MockRecorder)
			recorder.On("ObserveRun", metrics.ResultConfigError, mock.Anything).Once()

			params := indicator.DefaultParams()
			params.LongTermTimePeriods = tc.long
			params.ShortTermTimePeriods = tc.short

			_, err := newTestConfigurator(registry, deployer, WithRecorder(recorder)).Run(context.Background(), params)

			var cfgErr *indicator.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, "shortTermTimePeriods", cfgErr.Field)
			registry.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
			deployer.AssertNotCalled(t, "Deploy", mock.Anything, mock.Anything, mock.Anything)
			recorder.AssertExpectations(t)
		})
	}
}

func TestRunPairingViolationNeverDeploys(t *testing.T) {
	base := indicator.DefaultParams()
	for i := range base.LongTermTimePeriods {
		for _, delta := range []uint64{0, 1} {
			t.Run(fmt.Sprintf("index %d delta %d", i, delta), func(t *testing.T) {
				registry := new(MockRegistry)
				deployer := new(MockDeployer)

				params := base.Clone()
				params.LongTermTimePeriods[i] = params.ShortTermTimePeriods[i] - delta

				_, err := newTestConfigurator(registry, deployer).Run(context.Background(), params)

				var cfgErr *indicator.ConfigError
				require.True(t, errors.As(err, &cfgErr))
				assert.Equal(t, fmt.Sprintf("longTermTimePeriods[%d]", i), cfgErr.Field)
				deployer.AssertNotCalled(t, "Deploy", mock.Anything, mock.Anything, mock.Anything)
			})
		}
	}
}

func TestRunInvalidAddressesNeverDeploy(t *testing.T) {
	for _, field := range []string{"pool", "operator"} {
		t.Run(field, func(t *testing.T) {
			deployer := new(MockDeployer)
			params := indicator.DefaultParams()
			if field == "pool" {
				params.Pool = common.Address{}
			} else {
				params.Operator = common.Address{}
			}

			_, err := newTestConfigurator(new(MockRegistry), deployer).Run(context.Background(), params)

			var cfgErr *indicator.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, field, cfgErr.Field)
			deployer.AssertNotCalled(t, "Deploy", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRunReturnsDeployerErrorUnchanged(t *testing.T) {
	for _, deployErr := range []error{
		errors.New("dial tcp 127.0.0.1:8545: connect: connection refused"),
		&chain.DeploymentError{Contract: indicator.ContractName, Stage: chain.StageReceipt, TxHash: deployTxHash, Err: chain.ErrReverted},
	} {
		t.Run(deployErr.Error(), func(t *testing.T) {
			registry := new(MockRegistry)
			deployer := new(MockDeployer)
			registry.On("Resolve", mock.Anything, mock.Anything).Return(testArtifact(), nil)
			deployer.On("Deploy", mock.Anything, mock.Anything, mock.Anything).Return(nil, deployErr)

			result, err := newTestConfigurator(registry, deployer).Run(context.Background(), indicator.DefaultParams())

			assert.Nil(t, result)
			assert.True(t, err == deployErr, "error must be returned as is, got %v", err)
			assert.False(t, indicator.IsConfigError(err))
			deployer.AssertNumberOfCalls(t, "Deploy", 1)
		})
	}
}

func TestRunIsNotIdempotent(t *testing.T) {
	registry := new(MockRegistry)
	deployer := new(MockDeployer)
	registry.On("Resolve", mock.Anything, mock.Anything).Return(testArtifact(), nil)
	deployer.On("Deploy", mock.Anything, mock.Anything, fixtureArgs()).Return(testResult(), nil)

	c := newTestConfigurator(registry, deployer)
	first, err := c.Run(context.Background(), indicator.DefaultParams())
	require.NoError(t, err)
	second, err := c.Run(context.Background(), indicator.DefaultParams())
	require.NoError(t, err)

	deployer.AssertNumberOfCalls(t, "Deploy", 2)
	registry.AssertNumberOfCalls(t, "Resolve", 2)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRunArtifactNotFound(t *testing.T) {
	registry := new(MockRegistry)
	deployer := new(MockDeployer)
	recorder := new(MockRecorder)
	registry.On("Resolve", mock.Anything, indicator.ContractName).
		Return(nil, fmt.Errorf("%w: build/contracts/%s.json", artifact.ErrArtifactNotFound, indicator.ContractName))
	recorder.On("ObserveRun", metrics.ResultAborted, mock.Anything).Once()

	_, err := newTestConfigurator(registry, deployer, WithRecorder(recorder)).Run(context.Background(), indicator.DefaultParams())

	assert.ErrorIs(t, err, artifact.ErrArtifactNotFound)
	deployer.AssertNotCalled(t, "Deploy", mock.Anything, mock.Anything, mock.Anything)
	recorder.AssertExpectations(t)
}

func TestRunRecordsLedgerLifecycle(t *testing.T) {
	registry := new(MockRegistry)
	deployer := new(MockDeployer)
	ledger := new(MockLedger)
	recorder := new(MockRecorder)
	registry.On("Resolve", mock.Anything, mock.Anything).Return(testArtifact(), nil)
	deployer.On("Deploy", mock.Anything, mock.Anything, mock.Anything).Return(testResult(), nil)

	var created *repository.Deployment
	ledger.On("CreateDeployment", mock.Anything, mock.AnythingOfType("*repository.Deployment")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*repository.Deployment) }).
		Return(nil)
	ledger.On("MarkRunning", mock.Anything, mock.Anything).Return(nil)
	ledger.On("CompleteDeployment", mock.Anything, mock.Anything, repository.Completion{
		TxHash:          deployTxHash.Hex(),
		ContractAddress: contractAddress.Hex(),
		BlockNumber:     19_000_000,
	}).Return(nil)
	recorder.On("ObserveDeployment", uint64(1_850_000), uint64(19_000_000)).Once()
	recorder.On("ObserveRun", metrics.ResultCompleted, mock.Anything).Once()

	c := newTestConfigurator(registry, deployer, WithLedger(ledger), WithRecorder(recorder))
	result, err := c.Run(context.Background(), indicator.DefaultParams())
	require.NoError(t, err)

	require.NotNil(t, created)
	assert.Equal(t, result.RunID, created.RunID)
	assert.Equal(t, result.DeploymentID, created.ID)
	assert.Equal(t, repository.StatusPending, created.Status)
	assert.Equal(t, int64(1), created.ChainID)
	assert.Equal(t, indicator.ContractName, created.Artifact)
	assert.Equal(t, indicator.MainnetWETHUSDCPool.Hex(), created.Pool)

	var stored indicator.Params
	require.NoError(t, json.Unmarshal(created.Params, &stored))
	assert.Equal(t, indicator.DefaultParams(), stored)

	ledger.AssertCalled(t, "MarkRunning", mock.Anything, created.ID)
	ledger.AssertExpectations(t)
	recorder.AssertExpectations(t)
}

func TestRunRecordsFailureWithTxHash(t *testing.T) {
	registry := new(MockRegistry)
	deployer := new(MockDeployer)
	ledger := new(MockLedger)
	deployErr := &chain.DeploymentError{Contract: indicator.ContractName, Stage: chain.StageReceipt, TxHash: deployTxHash, Err: chain.ErrReverted}

	registry.On("Resolve", mock.Anything, mock.Anything).Return(testArtifact(), nil)
	deployer.On("Deploy", mock.Anything, mock.Anything, mock.Anything).Return(nil, deployErr)
	ledger.On("CreateDeployment", mock.Anything, mock.Anything).Return(nil)
	ledger.On("MarkRunning", mock.Anything, mock.Anything).Return(nil)

	hash := deployTxHash.Hex()
	ledger.On("FailDeployment", mock.Anything, mock.Anything, &hash, deployErr.Error()).Return(nil).Once()

	_, err := newTestConfigurator(registry, deployer, WithLedger(ledger)).Run(context.Background(), indicator.DefaultParams())
	assert.True(t, err == error(deployErr))
	ledger.AssertExpectations(t)
	ledger.AssertNotCalled(t, "CompleteDeployment", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunLedgerFailuresDoNotChangeOutcome(t *testing.T) {
	registry := new(MockRegistry)
	deployer := new(MockDeployer)
	ledger := new(MockLedger)
	registry.On("Resolve", mock.Anything, mock.Anything).Return(testArtifact(), nil)
	deployer.On("Deploy", mock.Anything, mock.Anything, mock.Anything).Return(testResult(), nil)
	ledger.On("CreateDeployment", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	result, err := newTestConfigurator(registry, deployer, WithLedger(ledger)).Run(context.Background(), indicator.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, result.DeploymentID)
	deployer.AssertNumberOfCalls(t, "Deploy", 1)
	ledger.AssertNotCalled(t, "CompleteDeployment", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunCompletionFailureStillSucceeds(t *testing.T) {
	registry := new(MockRegistry)
	deployer := new(MockDeployer)
	ledger := new(MockLedger)
	registry.On("Resolve", mock.Anything, mock.Anything).Return(testArtifact(), nil)
	deployer.On("Deploy", mock.Anything, mock.Anything, mock.Anything).Return(testResult(), nil)
	ledger.On("CreateDeployment", mock.Anything, mock.Anything).Return(nil)
	ledger.On("MarkRunning", mock.Anything, mock.Anything).Return(repository.ErrNotFound)
	ledger.On("CompleteDeployment", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("timeout"))

	result, err := newTestConfigurator(registry, deployer, WithLedger(ledger)).Run(context.Background(), indicator.DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, contractAddress, result.Deployment.ContractAddress)
}

func TestRunLockHeldNeverDeploys(t *testing.T) {
	registry := new(MockRegistry)
	deployer := new(MockDeployer)
	locker := new(MockLocker)
	registry.On("Resolve", mock.Anything, mock.Anything).Return(testArtifact(), nil)
	locker.On("Lock", mock.Anything, int64(1), deployerAccount).Return(lock.ErrLocked)

	_, err := newTestConfigurator(registry, deployer, WithLocker(locker)).Run(context.Background(), indicator.DefaultParams())

	assert.ErrorIs(t, err, lock.ErrLocked)
	deployer.AssertNotCalled(t, "Deploy", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunLockUnavailableNeverDeploys(t *testing.T) {
	registry := new(MockRegistry)
	deployer := new(MockDeployer)
	locker := new(MockLocker)
	registry.On("Resolve", mock.Anything, mock.Anything).Return(testArtifact(), nil)
	locker.On("Lock", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis: connection refused"))

	_, err := newTestConfigurator(registry, deployer, WithLocker(locker)).Run(context.Background(), indicator.DefaultParams())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "lock deployer account")
	deployer.AssertNotCalled(t, "Deploy", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunReleasesLock(t *testing.T) {
	for _, deployErr := range []error{nil, errors.New("boom")} {
		registry := new(MockRegistry)
		deployer := new(MockDeployer)
		locker := new(MockLocker)
		registry.On("Resolve", mock.Anything, mock.Anything).Return(testArtifact(), nil)
		locker.On("Lock", mock.Anything, int64(1), deployerAccount).Return(nil)
		if deployErr == nil {
			deployer.On("Deploy", mock.Anything, mock.Anything, mock.Anything).Return(testResult(), nil)
		} else {
			deployer.On("Deploy", mock.Anything, mock.Anything, mock.Anything).Return(nil, deployErr)
		}

		_, err := newTestConfigurator(registry, deployer, WithLocker(locker)).Run(context.Background(), indicator.DefaultParams())
		assert.Equal(t, deployErr, err)
		assert.Equal(t, 1, locker.released)
	}
}

func TestRunRecordsNetworkInArtifact(t *testing.T) {
	registry := new(MockRecordingRegistry)
	deployer := new(MockDeployer)
	registry.On("Resolve", mock.Anything, mock.Anything).Return(testArtifact(), nil)
	deployer.On("Deploy", mock.Anything, mock.Anything, mock.Anything).Return(testResult(), nil)
	registry.On("RecordNetwork", mock.Anything, indicator.ContractName, int64(1), contractAddress, deployTxHash).
		Return(errors.New("read-only file system")).Once()

	target := testTarget()
	target.RecordNetwork = true
	c := NewConfigurator(registry, deployer, target, discardLogger())

	_, err := c.Run(context.Background(), indicator.DefaultParams())
	require.NoError(t, err)
	registry.AssertExpectations(t)
}

func TestRunSkipsNetworkRecordWhenDisabled(t *testing.T) {
	registry := new(MockRecordingRegistry)
	deployer := new(MockDeployer)
	registry.On("Resolve", mock.Anything, mock.Anything).Return(testArtifact(), nil)
	deployer.On("Deploy", mock.Anything, mock.Anything, mock.Anything).Return(testResult(), nil)

	_, err := newTestConfigurator(registry, deployer).Run(context.Background(), indicator.DefaultParams())
	require.NoError(t, err)
	registry.AssertNotCalled(t, "RecordNetwork", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNewConfiguratorDefaultsArtifactName(t *testing.T) {
	c := NewConfigurator(new(MockRegistry), new(MockDeployer), Target{ChainID: 1}, nil)
	assert.Equal(t, indicator.ContractName, c.target.ArtifactName)
	assert.NotNil(t, c.logger)
}

func TestPlan(t *testing.T) {
	registry := new(MockRegistry)
	deployer := new(MockDeployer)
	art := testArtifact()
	registry.On("Resolve", mock.Anything, indicator.ContractName).Return(art, nil)

	plan, err := newTestConfigurator(registry, deployer).Plan(context.Background(), indicator.DefaultParams())
	require.NoError(t, err)

	want, err := art.CreationData(fixtureArgs()...)
	require.NoError(t, err)
	assert.Equal(t, want, []byte(plan.CreationData))
	assert.Equal(t, indicator.ContractName, plan.ArtifactName)
	assert.Equal(t, int64(1), plan.ChainID)
	assert.Equal(t, indicator.DefaultParams(), plan.Params)

	// The pool address is the first constructor word after the bytecode.
	code, err := art.Bytecode.Bytes()
	require.NoError(t, err)
	pool := common.BytesToAddress(plan.CreationData[len(code) : len(code)+32])
	assert.Equal(t, indicator.MainnetWETHUSDCPool, pool)

	deployer.AssertNotCalled(t, "Deploy", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlanRejectsInvalidParams(t *testing.T) {
	registry := new(MockRegistry)
	params := indicator.DefaultParams()
	params.ShortTermTimePeriods = params.ShortTermTimePeriods[:2]

	_, err := newTestConfigurator(registry, new(MockDeployer)).Plan(context.Background(), params)
	assert.True(t, indicator.IsConfigError(err))
	registry.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestPlanEncodeError(t *testing.T) {
	registry := new(MockRegistry)
	art := testArtifact()
	art.ABI = json.RawMessage(`[{"inputs":[{"name":"pool","type":"address"}],"type":"constructor"}]`)
	registry.On("Resolve", mock.Anything, mock.Anything).Return(art, nil)

	_, err := newTestConfigurator(registry, new(MockDeployer)).Plan(context.Background(), indicator.DefaultParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expects 1 arguments, got 5")
}
