package core

import "context"

// ChunkFunc receives incremental text deltas during streaming.
type ChunkFunc func(text string)

// SummaryProvider is the uniform capability surface over the concrete
// LLM vendors. Request shaping (token parameter naming, temperature
// support, system message placement) stays behind this interface.
type SummaryProvider interface {
	Summarize(ctx context.Context, instruction, content string) (string, error)
	Stream(ctx context.Context, instruction, content string, onChunk ChunkFunc) (string, error)
	Chat(ctx context.Context, messages []ChatMessage, system string) (string, error)
	Models(ctx context.Context) ([]Model, error)
}

// Extractor produces transcript-like content for a source. How the content
// is located is the implementation's business.
type Extractor interface {
	Extract(ctx context.Context, source string) (*Extraction, error)
}

// Presenter is the downstream consumer of pipeline results.
type Presenter interface {
	ShowLoading()
	ShowEntry(entry *Entry)
	ShowError(message string)
	StreamChunk(text string)
}
