package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/sandevgo/distill/internal/cache"
	"github.com/sandevgo/distill/internal/config"
	"github.com/sandevgo/distill/internal/core"
	"github.com/sandevgo/distill/internal/extract"
	"github.com/sandevgo/distill/internal/service/chat"
	"github.com/sandevgo/distill/internal/service/orchestrator"
	"github.com/sandevgo/distill/internal/storage/memory"
	"github.com/sandevgo/distill/internal/storage/sqlite"
	"github.com/sandevgo/distill/internal/transport/cli"
	"github.com/sandevgo/distill/pkg/log"
	"github.com/sandevgo/distill/pkg/srv"
)

type app struct {
	cfg      *config.AppConfig
	cache    *cache.Cache
	terminal *cli.ReadLine
	cleanups []srv.Service
}

// newApp wires configuration, storage, cache, pipeline, and the terminal
// transport together.
func newApp(ctx context.Context) *app {
	logger := log.FromCtx(ctx)

	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		logger.Fatal().Err(err).Msg("failed to init env")
	}

	appCfg := config.NewAppConfig(ctx)
	providerCfg := config.NewProviderConfig(ctx)

	store, cleanup, err := initStorage(ctx, appCfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize storage")
	}

	c := cache.New(store, appCfg.MaxCachedItems)

	terminal, err := cli.NewReadLine(appCfg, c)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize terminal")
	}

	orch := orchestrator.New(
		providerCfg,
		store,
		c,
		extract.NewPage(),
		chat.NewSessions(),
		terminal,
	)
	terminal.SetOrchestrator(orch)

	return &app{
		cfg:      appCfg,
		cache:    c,
		terminal: terminal,
		cleanups: []srv.Service{srv.NewCleanup(cleanup), terminal},
	}
}

// shutdownApp cancels the context and runs the app's teardowns.
func shutdownApp(ctx context.Context, a *app, stop context.CancelFunc) {
	stop()
	srv.ShutdownServices(ctx, a.cleanups)
}

// initStorage builds the configured KeyValueStore backend and returns its
// teardown alongside.
func initStorage(ctx context.Context, cfg *config.AppConfig) (core.KeyValueStore, func() error, error) {
	if cfg.Storage == "memory" {
		store := memory.NewStore()
		return store, store.Close, nil
	}

	db, err := sqlite.NewDB(ctx, cfg.GetDatabasePath())
	if err != nil {
		return nil, nil, err
	}

	store := sqlite.NewKVStore(db)
	return store, store.Close, nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
