package orchestrator

import (
	"context"
	"errors"

	"github.com/sandevgo/distill/internal/cache"
	"github.com/sandevgo/distill/internal/config"
	"github.com/sandevgo/distill/internal/core"
	"github.com/sandevgo/distill/internal/extract"
	"github.com/sandevgo/distill/internal/providers/llm"
	"github.com/sandevgo/distill/internal/service/chat"
	"github.com/sandevgo/distill/pkg/log"
)

// ProviderFactory builds a SummaryProvider from configuration. Swappable
// in tests.
type ProviderFactory func(ctx context.Context, cfg *config.ProviderConfig) (core.SummaryProvider, error)

// Orchestrator is the single entry point for the extract/summarize/chat
// pipeline and the one place its failure policy lives: extraction errors
// are surfaced and final, summarization and persistence failures degrade,
// and only a torn-down storage backend is fatal.
type Orchestrator struct {
	cfg         *config.ProviderConfig
	store       core.KeyValueStore
	cache       *cache.Cache
	extractor   core.Extractor
	sessions    *chat.Sessions
	presenter   core.Presenter
	newProvider ProviderFactory
}

func New(
	cfg *config.ProviderConfig,
	store core.KeyValueStore,
	c *cache.Cache,
	extractor core.Extractor,
	sessions *chat.Sessions,
	presenter core.Presenter,
) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		store:       store,
		cache:       c,
		extractor:   extractor,
		sessions:    sessions,
		presenter:   presenter,
		newProvider: llm.NewProvider,
	}
}

// ExtractAndDisplay runs the full pipeline for an item. The cache hit
// path delivers without any network I/O; a missing summary never blocks
// transcript delivery.
func (o *Orchestrator) ExtractAndDisplay(ctx context.Context, itemID, source string) bool {
	logger := log.FromCtx(ctx)

	if !o.storeAvailable(ctx) {
		o.presenter.ShowError("storage backend is gone, restart required")
		return false
	}

	if entry := o.cache.Get(ctx, itemID); entry != nil {
		logger.Debug().Str("item", itemID).Msg("serving cached entry")
		o.sessions.LoadHistory(itemID, entry.ChatHistory)
		o.presenter.ShowEntry(entry)
		return true
	}

	o.presenter.ShowLoading()

	extraction, err := o.extractor.Extract(ctx, source)
	if err != nil {
		logger.Warn().Err(err).Str("item", itemID).Msg("extraction failed")
		o.presenter.ShowError(err.Error())
		return false
	}

	entry := &core.Entry{
		ItemID:      itemID,
		Title:       extraction.Title,
		Transcript:  extract.NewTranscript(extraction.Content),
		ChatHistory: []core.ChatMessage{},
	}

	if o.cfg.IsComplete() {
		entry.Summary = o.summarize(ctx, extraction.Content)
	} else {
		logger.Debug().Msg("no provider configured, skipping summarization")
	}

	if !o.cache.Set(ctx, itemID, entry) {
		logger.Warn().Str("item", itemID).Msg("entry not persisted, delivering in-memory result")
	}

	o.presenter.ShowEntry(entry)
	return true
}

// RegenerateSummary re-summarizes rawContent unconditionally and, on
// success, swaps the cached entry's summary and discards its chat history:
// a new summary invalidates every prior chat exchange.
func (o *Orchestrator) RegenerateSummary(ctx context.Context, itemID, rawContent string) *core.Summary {
	logger := log.FromCtx(ctx)

	if !o.cfg.IsComplete() {
		logger.Warn().Msg("cannot regenerate summary without provider config")
		return nil
	}

	summary := o.summarize(ctx, rawContent)
	if summary == nil {
		return nil
	}

	o.sessions.Clear(itemID)

	if entry := o.cache.Get(ctx, itemID); entry != nil {
		entry.Summary = summary
		entry.ChatHistory = []core.ChatMessage{}
		if !o.cache.Set(ctx, itemID, entry) {
			logger.Warn().Str("item", itemID).Msg("regenerated summary not persisted")
		}
	}

	return summary
}

// SendChatMessage runs one chat turn for an item and syncs the session
// snapshot back into the cached entry. Chat requires both a configured
// provider and a prior extraction.
func (o *Orchestrator) SendChatMessage(ctx context.Context, itemID, userMessage string) (string, error) {
	logger := log.FromCtx(ctx)

	if !o.cfg.IsComplete() {
		return "", core.ErrNotConfigured
	}

	entry := o.cache.Get(ctx, itemID)
	if entry == nil {
		return "", core.ErrNoEntry
	}

	if !o.sessions.HasHistory(itemID) && len(entry.ChatHistory) > 0 {
		o.sessions.LoadHistory(itemID, entry.ChatHistory)
	}

	o.sessions.AddMessage(itemID, core.RoleUser, userMessage)
	payload := o.sessions.BuildPayload(itemID, chat.ContextText(entry), o.cfg.ProviderID())

	provider, err := o.newProvider(ctx, o.cfg)
	if err != nil {
		return "", err
	}

	reply, err := provider.Chat(ctx, payload.Messages, payload.System)
	if err != nil {
		return "", err
	}

	o.sessions.AddMessage(itemID, core.RoleAssistant, reply)

	entry.ChatHistory = o.sessions.History(itemID)
	if !o.cache.Set(ctx, itemID, entry) {
		logger.Warn().Str("item", itemID).Msg("chat history not persisted")
	}

	return reply, nil
}

// ClearChat discards an item's chat history, both the in-memory session
// and the persisted copy.
func (o *Orchestrator) ClearChat(ctx context.Context, itemID string) {
	o.sessions.Clear(itemID)

	if entry := o.cache.Get(ctx, itemID); entry != nil && len(entry.ChatHistory) > 0 {
		entry.ChatHistory = []core.ChatMessage{}
		if !o.cache.Set(ctx, itemID, entry) {
			log.FromCtx(ctx).Warn().Str("item", itemID).Msg("chat reset not persisted")
		}
	}
}

// summarize attempts streaming first and falls back to the single-shot
// call. Returns nil when both fail; the caller treats that as "no summary
// this cycle", never as a pipeline error.
func (o *Orchestrator) summarize(ctx context.Context, content string) *core.Summary {
	logger := log.FromCtx(ctx)

	provider, err := o.newProvider(ctx, o.cfg)
	if err != nil {
		logger.Error().Err(err).Msg("provider construction failed")
		return nil
	}

	instruction := o.cfg.CustomPrompt

	result, err := provider.Stream(ctx, instruction, content, o.presenter.StreamChunk)
	if err != nil {
		logger.Warn().Err(err).Msg("streaming failed, falling back to single call")
		result, err = provider.Summarize(ctx, instruction, content)
	}
	if err != nil {
		logger.Error().Err(err).Msg("summarization failed")
		return nil
	}

	return &core.Summary{
		Provider: o.cfg.ProviderID(),
		Model:    o.cfg.Model,
		Prompt:   instruction,
		Result:   result,
	}
}

// storeAvailable probes the backend without touching any keys.
func (o *Orchestrator) storeAvailable(ctx context.Context) bool {
	_, err := o.store.Get(ctx, nil)
	return !errors.Is(err, core.ErrStoreClosed)
}
