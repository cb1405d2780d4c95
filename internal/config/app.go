package config

import (
	"context"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/distill/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"DISTILL_RUNTIME_PATH" envDefault:".distill"`

	// Storage backend: "sqlite" (persistent) or "memory" (ephemeral).
	Storage string `env:"DISTILL_STORAGE" envDefault:"sqlite"`

	// Cache quota (entry count, not bytes).
	MaxCachedItems int `env:"DISTILL_MAX_CACHED_ITEMS" envDefault:"10"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "distill.db")
}
