package main

import (
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Bidon15/indicator-deployer/internal/artifact"
	"github.com/Bidon15/indicator-deployer/internal/chain"
	"github.com/Bidon15/indicator-deployer/internal/config"
	"github.com/Bidon15/indicator-deployer/internal/indicator"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitConfig  = 2
)

func exitCode(err error) int {
	if indicator.IsConfigError(err) {
		return exitConfig
	}
	return exitFailure
}

// newSigner builds the transaction signer selected by cfg.Mode.
func newSigner(cfg config.SignerConfig, chainID int64) (chain.TransactionSigner, error) {
	switch cfg.Mode {
	case config.SignerLocal:
		signer, err := chain.NewLocalSigner(cfg.PrivateKey, chainID)
		if err != nil {
			return nil, indicator.NewConfigError("signer.private_key", err.Error())
		}
		return signer, nil
	case config.SignerAnvil:
		if chain.IsProductionChain(chainID) {
			return nil, indicator.NewConfigError("signer.mode",
				fmt.Sprintf("anvil keys are publicly known and cannot sign on chain %d", chainID))
		}
		signer, err := chain.NewAnvilSigner(cfg.AnvilIndex, big.NewInt(chainID))
		if err != nil {
			return nil, indicator.NewConfigError("signer.anvil_index", err.Error())
		}
		return signer, nil
	case config.SignerRemote:
		signer, err := chain.NewRemoteSigner(chain.RemoteSignerConfig{
			Endpoint:   cfg.Remote.Endpoint,
			APIKey:     cfg.Remote.APIKey,
			ClientCert: cfg.Remote.ClientCert,
			ClientKey:  cfg.Remote.ClientKey,
			CACert:     cfg.Remote.CACert,
			ChainID:    big.NewInt(chainID),
			Address:    common.HexToAddress(cfg.Remote.Address),
		})
		if err != nil {
			return nil, err
		}
		return signer, nil
	default:
		return nil, indicator.NewConfigError("signer.mode", fmt.Sprintf("unknown mode %q", cfg.Mode))
	}
}

// newRegistry prefers a pinned archive over the local build directory.
func newRegistry(cfg config.ArtifactsConfig) (artifact.Registry, error) {
	if cfg.ArchiveURL != "" {
		registry, err := artifact.NewArchiveRegistry(cfg.ArchiveURL, cfg.ArchiveChecksum, &http.Client{Timeout: time.Minute})
		if err != nil {
			return nil, indicator.NewConfigError("artifacts.archive_checksum", err.Error())
		}
		return registry, nil
	}
	return artifact.NewDirectoryRegistry(cfg.Dir), nil
}

func deployerConfig(cfg *config.Config) chain.DeployerConfig {
	return chain.DeployerConfig{
		GasPriceBoostPercent: cfg.Gas.PriceBoostPercent,
		MinGasPrice:          big.NewInt(cfg.Gas.MinPriceWei),
		FallbackGasLimit:     cfg.Gas.FallbackLimit,
		MaxGasLimit:          cfg.Gas.MaxLimit,
		ConfirmTimeout:       cfg.Network.ConfirmTimeout,
	}
}
