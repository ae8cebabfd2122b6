// Package main is the entry point for the deployment status API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Bidon15/indicator-deployer/internal/config"
	"github.com/Bidon15/indicator-deployer/internal/database"
	"github.com/Bidon15/indicator-deployer/internal/handler"
	"github.com/Bidon15/indicator-deployer/internal/metrics"
	"github.com/Bidon15/indicator-deployer/internal/repository"
)

func main() {
	configFile := flag.String("config", "", "path to config file (default: search for deploy.yaml)")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(config.Options{ConfigFile: *configFile, EnvFile: *envFile, SkipSigner: true})
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.Log.Format = "json"
	logger := cfg.Log.NewLogger(os.Stdout)
	slog.SetDefault(logger)

	logger.Info("Starting deployment status API", slog.Int("port", cfg.Server.Port))

	ctx := context.Background()

	// Connect to PostgreSQL
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	// Run migrations
	if err := db.RunMigrations(cfg.Database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Database migrations completed")

	registry := metrics.New().WithProcessCollectors().Registry()

	srv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: handler.NewRouter(handler.RouterConfig{
			Deployments:    repository.NewPostgresRepository(db.Pool()),
			DB:             db,
			Registry:       registry,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Logger:         logger,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  time.Minute,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("Shutting down server", slog.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	logger.Info("Server stopped gracefully")
}
