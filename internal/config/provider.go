package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/distill/internal/core"
	"github.com/sandevgo/distill/pkg/log"
)

// ProviderConfig carries the AI settings. Every field is optional: an
// incomplete config disables summarization and chat instead of erroring.
type ProviderConfig struct {
	Provider     string `env:"DISTILL_PROVIDER"`
	APIKey       string `env:"DISTILL_API_KEY"`
	Model        string `env:"DISTILL_MODEL"`
	CustomPrompt string `env:"DISTILL_PROMPT"`
}

func NewProviderConfig(ctx context.Context) *ProviderConfig {
	c := &ProviderConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Provider config")
	}
	return c
}

// IsComplete reports whether all four fields needed for AI features are set.
func (c *ProviderConfig) IsComplete() bool {
	return c != nil &&
		c.Provider != "" &&
		c.APIKey != "" &&
		c.Model != "" &&
		c.CustomPrompt != ""
}

func (c *ProviderConfig) ProviderID() core.ProviderID {
	return core.ProviderID(c.Provider)
}
