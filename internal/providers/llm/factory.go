package llm

import (
	"context"
	"fmt"

	"github.com/sandevgo/distill/internal/config"
	"github.com/sandevgo/distill/internal/core"
	"github.com/sandevgo/distill/pkg/log"
)

// NewProvider creates the appropriate SummaryProvider based on configuration.
func NewProvider(ctx context.Context, cfg *config.ProviderConfig) (core.SummaryProvider, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Msg("starting summary provider")

	switch cfg.ProviderID() {
	case core.ProviderOpenAI:
		return NewOpenAI(cfg.APIKey, cfg.Model), nil
	case core.ProviderClaude:
		return NewClaude(cfg.APIKey, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown summary provider: %s", cfg.Provider)
	}
}
