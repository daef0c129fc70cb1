package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/optctl/opt-orchestrator/internal/config"
	"github.com/optctl/opt-orchestrator/internal/httpapi"
	"github.com/optctl/opt-orchestrator/internal/metrics"
	"github.com/optctl/opt-orchestrator/internal/obslog"
	"github.com/optctl/opt-orchestrator/internal/optstore/postgres"
	"github.com/optctl/opt-orchestrator/internal/orchestrator"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting optimization orchestrator")

	cfg := config.FromEnv()

	domainLog := obslog.New(obslog.Config{
		Enabled:   cfg.ObsEnabled,
		Component: cfg.WorkerComponent,
		Output:    cfg.ObsOutput,
		FilePath:  cfg.ObsLogFile,
	})
	reg := metrics.New(cfg.ObsMetricsEnabled)

	core := orchestrator.New(orchestrator.Config{
		ParamSpaceMax:       cfg.ParamSpaceMax,
		ConcurrencyLimitMax: cfg.ConcurrencyLimitMax,
		TopNLimit:           cfg.TopNLimit,
		MaxRetries:          cfg.MaxRetries,
		RetryBaseSeconds:    cfg.RetryBaseSeconds,
	}, domainLog, reg)

	ctx := context.Background()

	if cfg.PersistenceEnabled() {
		mirror := postgres.New(domainLog, reg)
		if err := mirror.Connect(ctx, cfg.DatabaseDSN); err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer mirror.Close()

		if err := core.ConfigurePersistence(ctx, mirror); err != nil {
			logger.Fatal("failed to hydrate orchestrator state", zap.Error(err))
		}
		logger.Info("persistence mirror configured", zap.String("backend", "postgres"))
	} else {
		logger.Info("running without a persistence mirror; state is in-memory only")
	}

	srv := httpapi.New(cfg, core)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("http server listening", zap.Int("port", cfg.HTTPPort))
	if err := srv.Run(runCtx); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}

	logger.Info("server shut down cleanly")
	os.Exit(0)
}
