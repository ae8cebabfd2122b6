package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Bidon15/indicator-deployer/internal/artifact"
)

// Default gas parameters
const (
	DefaultGasPriceBoostPercent = 150
	DefaultMinGasPrice          = 2_000_000_000 // 2 gwei
	DefaultFallbackGasLimit     = 6_000_000
	DefaultMaxGasLimit          = 15_000_000
	DefaultConfirmTimeout       = 10 * time.Minute
)

// DeployerConfig tunes gas pricing and confirmation.
type DeployerConfig struct {
	GasPriceBoostPercent int64
	MinGasPrice          *big.Int
	FallbackGasLimit     uint64
	MaxGasLimit          uint64
	ConfirmTimeout       time.Duration
}

func (c DeployerConfig) withDefaults() DeployerConfig {
	if c.GasPriceBoostPercent <= 0 {
		c.GasPriceBoostPercent = DefaultGasPriceBoostPercent
	}
	if c.MinGasPrice == nil {
		c.MinGasPrice = big.NewInt(DefaultMinGasPrice)
	}
	if c.FallbackGasLimit == 0 {
		c.FallbackGasLimit = DefaultFallbackGasLimit
	}
	if c.MaxGasLimit == 0 {
		c.MaxGasLimit = DefaultMaxGasLimit
	}
	if c.ConfirmTimeout <= 0 {
		c.ConfirmTimeout = DefaultConfirmTimeout
	}
	return c
}

// DeploymentResult describes a mined contract creation.
type DeploymentResult struct {
	ContractName    string         `json:"contractName"`
	ContractAddress common.Address `json:"contractAddress"`
	TransactionHash common.Hash    `json:"transactionHash"`
	BlockNumber     uint64         `json:"blockNumber"`
	GasUsed         uint64         `json:"gasUsed"`
	Deployer        common.Address `json:"deployer"`
	ChainID         int64          `json:"chainId"`
}

// ContractDeployer sends one contract-creation transaction per Deploy call and
// waits for it to be mined.
type ContractDeployer struct {
	client EthClient
	signer TransactionSigner
	config DeployerConfig
	logger *slog.Logger
}

// NewContractDeployer creates a deployer that signs with signer and broadcasts
// through client.
func NewContractDeployer(client EthClient, signer TransactionSigner, cfg DeployerConfig, logger *slog.Logger) *ContractDeployer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContractDeployer{
		client: client,
		signer: signer,
		config: cfg.withDefaults(),
		logger: logger,
	}
}

// Deploy creates art on chain with the given constructor arguments.
// A broadcast is attempted at most once; every failure is a *DeploymentError.
func (d *ContractDeployer) Deploy(ctx context.Context, art *artifact.Artifact, args ...any) (*DeploymentResult, error) {
	name := art.ContractName
	fail := func(stage Stage, txHash common.Hash, err error) (*DeploymentResult, error) {
		return nil, &DeploymentError{Contract: name, Stage: stage, TxHash: txHash, Err: err}
	}
	from := d.signer.Address()

	d.logger.Info("starting contract deployment",
		slog.String("contract", name),
		slog.String("deployer", from.Hex()),
		slog.String("chain_id", d.signer.ChainID().String()),
	)

	chainID, err := d.client.ChainID(ctx)
	if err != nil {
		return fail(StageChainID, common.Hash{}, fmt.Errorf("get chain ID: %w", err))
	}
	if chainID.Cmp(d.signer.ChainID()) != 0 {
		return fail(StageChainID, common.Hash{}, fmt.Errorf("chain ID mismatch: expected %s, got %s", d.signer.ChainID(), chainID))
	}

	balance, err := d.client.BalanceAt(ctx, from, nil)
	if err != nil {
		return fail(StageBalance, common.Hash{}, fmt.Errorf("get balance: %w", err))
	}
	d.logger.Info("deployer balance",
		slog.String("address", from.Hex()),
		slog.String("balance_wei", balance.String()),
	)
	if balance.Sign() == 0 {
		return fail(StageBalance, common.Hash{}, fmt.Errorf("deployer address %s has no ETH balance", from.Hex()))
	}

	data, err := art.CreationData(args...)
	if err != nil {
		return fail(StageEncode, common.Hash{}, err)
	}

	nonce, err := d.client.PendingNonceAt(ctx, from)
	if err != nil {
		return fail(StageNonce, common.Hash{}, fmt.Errorf("get nonce: %w", err))
	}

	gasPrice, err := d.gasPrice(ctx)
	if err != nil {
		return fail(StageGasPrice, common.Hash{}, fmt.Errorf("get gas price: %w", err))
	}

	gasLimit := d.gasLimit(ctx, from, gasPrice, data)

	tx := types.NewContractCreation(nonce, big.NewInt(0), gasLimit, gasPrice, data)

	signedTx, err := d.signer.SignTransaction(ctx, tx)
	if err != nil {
		return fail(StageSign, common.Hash{}, fmt.Errorf("sign transaction: %w", err))
	}
	txHash := signedTx.Hash()

	d.logger.Info("sending contract creation transaction",
		slog.String("contract", name),
		slog.String("tx_hash", txHash.Hex()),
		slog.Uint64("nonce", nonce),
		slog.Uint64("gas_limit", gasLimit),
		slog.String("gas_price", gasPrice.String()),
		slog.Int("data_len", len(data)),
	)

	if err := d.client.SendTransaction(ctx, signedTx); err != nil {
		return fail(StageSend, txHash, fmt.Errorf("send transaction: %w", err))
	}

	waitCtx, cancel := context.WithTimeout(ctx, d.config.ConfirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, d.client, signedTx)
	if err != nil {
		return fail(StageWait, txHash, fmt.Errorf("wait for receipt: %w", err))
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fail(StageReceipt, txHash, ErrReverted)
	}

	var blockNumber uint64
	if receipt.BlockNumber != nil {
		blockNumber = receipt.BlockNumber.Uint64()
	}

	d.logger.Info("contract deployed",
		slog.String("contract", name),
		slog.String("address", receipt.ContractAddress.Hex()),
		slog.String("tx_hash", txHash.Hex()),
		slog.Uint64("block_number", blockNumber),
		slog.Uint64("gas_used", receipt.GasUsed),
	)

	return &DeploymentResult{
		ContractName:    name,
		ContractAddress: receipt.ContractAddress,
		TransactionHash: txHash,
		BlockNumber:     blockNumber,
		GasUsed:         receipt.GasUsed,
		Deployer:        from,
		ChainID:         chainID.Int64(),
	}, nil
}

// gasPrice returns the suggested gas price boosted for faster inclusion,
// never below the configured floor.
func (d *ContractDeployer) gasPrice(ctx context.Context) (*big.Int, error) {
	suggested, err := d.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	boosted := new(big.Int).Mul(suggested, big.NewInt(d.config.GasPriceBoostPercent))
	boosted.Div(boosted, big.NewInt(100))

	if boosted.Cmp(d.config.MinGasPrice) < 0 {
		boosted = new(big.Int).Set(d.config.MinGasPrice)
	}
	return boosted, nil
}

// gasLimit estimates creation gas with a 20% buffer, capped at MaxGasLimit.
func (d *ContractDeployer) gasLimit(ctx context.Context, from common.Address, gasPrice *big.Int, data []byte) uint64 {
	gasLimit, err := d.client.EstimateGas(ctx, ethereum.CallMsg{
		From:     from,
		To:       nil, // contract creation
		GasPrice: gasPrice,
		Value:    big.NewInt(0),
		Data:     data,
	})
	if err != nil {
		gasLimit = d.config.FallbackGasLimit
		d.logger.Warn("gas estimation failed, using default",
			slog.Uint64("gas_limit", gasLimit),
			slog.String("error", err.Error()),
		)
	}

	gasLimit = gasLimit * 120 / 100

	if gasLimit > d.config.MaxGasLimit {
		d.logger.Warn("gas limit capped to max",
			slog.Uint64("original", gasLimit),
			slog.Uint64("capped", d.config.MaxGasLimit),
		)
		gasLimit = d.config.MaxGasLimit
	}
	return gasLimit
}
