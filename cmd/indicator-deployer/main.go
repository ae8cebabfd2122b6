// Command indicator-deployer deploys the MultipleMovingAverageCrossoverIndicator
// contract with the configured parameter bundle.
//
// Usage:
//
//	indicator-deployer [-config deploy.yaml] [-env-file .env] [-dry-run] [-timeout 15m]
//
// Exit status is 2 for configuration errors and 1 for any other failure.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bidon15/indicator-deployer/internal/chain"
	"github.com/Bidon15/indicator-deployer/internal/config"
	"github.com/Bidon15/indicator-deployer/internal/database"
	"github.com/Bidon15/indicator-deployer/internal/deploy"
	"github.com/Bidon15/indicator-deployer/internal/lock"
	"github.com/Bidon15/indicator-deployer/internal/metrics"
	"github.com/Bidon15/indicator-deployer/internal/repository"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("indicator-deployer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", "", "path to config file (default: search for deploy.yaml)")
	envFile := fs.String("env-file", ".env", "dotenv file loaded before reading the environment")
	dryRun := fs.Bool("dry-run", false, "validate and print the creation payload without deploying")
	timeout := fs.Duration("timeout", 15*time.Minute, "overall deadline for the run")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitConfig
	}

	cfg, err := config.Load(config.Options{ConfigFile: *configFile, EnvFile: *envFile})
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return exitCode(err)
	}

	logger := cfg.Log.NewLogger(stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}

	params, err := cfg.Deployment.ToParams()
	if err != nil {
		logger.Error("invalid deployment parameters", slog.String("error", err.Error()))
		return exitCode(err)
	}

	registry, err := newRegistry(cfg.Artifacts)
	if err != nil {
		logger.Error("failed to open artifact registry", slog.String("error", err.Error()))
		return exitCode(err)
	}

	target := deploy.Target{
		ArtifactName:  cfg.Artifacts.Name,
		ChainID:       cfg.Network.ChainID,
		RecordNetwork: cfg.Artifacts.RecordNetwork,
	}

	if *dryRun {
		plan, err := deploy.NewConfigurator(registry, nil, target, logger).Plan(ctx, params)
		if err != nil {
			logger.Error("dry run failed", slog.String("error", err.Error()))
			return exitCode(err)
		}
		return writeJSON(stdout, stderr, plan)
	}

	signer, err := newSigner(cfg.Signer, cfg.Network.ChainID)
	if err != nil {
		logger.Error("failed to create signer", slog.String("error", err.Error()))
		return exitCode(err)
	}
	target.Account = signer.Address()

	client, err := chain.Dial(ctx, cfg.Network.RPCURL)
	if err != nil {
		logger.Error("failed to connect to RPC", slog.String("error", err.Error()))
		return exitFailure
	}
	defer client.Close()

	deployer := chain.NewContractDeployer(client, signer, deployerConfig(cfg), logger)

	m := metrics.New()
	opts := []deploy.Option{deploy.WithRecorder(m)}

	if cfg.Database.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logger.Error("failed to connect to database", slog.String("error", err.Error()))
			return exitFailure
		}
		defer db.Close()
		if err := db.RunMigrations(cfg.Database); err != nil {
			logger.Error("failed to run migrations", slog.String("error", err.Error()))
			return exitFailure
		}
		opts = append(opts, deploy.WithLedger(repository.NewPostgresRepository(db.Pool())))
	}

	if cfg.Redis.Enabled {
		rdb, err := database.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logger.Error("failed to connect to Redis", slog.String("error", err.Error()))
			return exitFailure
		}
		defer rdb.Close()
		opts = append(opts, deploy.WithLocker(lock.NewRedisLocker(rdb.Client(), cfg.Redis.LockTTL)))
	}

	logger.Info("starting deployment",
		slog.String("network", cfg.Network.Name),
		slog.Int64("chain_id", cfg.Network.ChainID),
		slog.String("deployer", signer.Address().Hex()),
	)

	result, runErr := deploy.NewConfigurator(registry, deployer, target, logger, opts...).Run(ctx, params)

	if cfg.Metrics.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		if err := m.Push(pushCtx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job); err != nil {
			logger.Warn("failed to push metrics", slog.String("error", err.Error()))
		}
		cancel()
	}

	if runErr != nil {
		return exitCode(runErr)
	}
	return writeJSON(stdout, stderr, result)
}

func writeJSON(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stderr, "Failed to write result: %v\n", err)
		return exitFailure
	}
	return exitOK
}
