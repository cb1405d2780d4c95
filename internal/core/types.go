package core

import "time"

const (
	DistillName      = "Distill"
	DistillUserAgent = "Distill-Agent/0.1"
	DistillVersion   = "0.1.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ProviderID selects a concrete summary provider implementation.
type ProviderID string

const (
	ProviderOpenAI ProviderID = "openai"
	ProviderClaude ProviderID = "claude"
)

const (
	// MaxCacheEntries bounds the persistent transcript cache.
	MaxCacheEntries = 10
	// MaxChatMessages bounds the per-item conversation history.
	MaxChatMessages = 20
	// ChatContextTokens bounds the transcript excerpt used as chat context
	// when no summary exists.
	ChatContextTokens = 1000
	// ChatContextChars is the fallback bound when the tokenizer is unavailable.
	ChatContextChars = 4000
)

// Segment is a single timestamped line of a transcript.
type Segment struct {
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

// Transcript holds the raw extracted text plus its parsed segments.
type Transcript struct {
	Raw      string    `json:"raw"`
	Segments []Segment `json:"segments,omitempty"`
}

// Summary records a generated summary together with the provider, model and
// instruction that produced it.
type Summary struct {
	Provider ProviderID `json:"provider"`
	Model    string     `json:"model"`
	Prompt   string     `json:"prompt"`
	Result   string     `json:"result"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Entry is the unit the cache stores per item: transcript, optional summary
// and a snapshot of the chat history.
type Entry struct {
	ItemID      string        `json:"item_id"`
	Title       string        `json:"title"`
	Transcript  Transcript    `json:"transcript"`
	Summary     *Summary      `json:"summary,omitempty"`
	ChatHistory []ChatMessage `json:"chat_history,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Extraction is the result the extractor collaborator hands back.
type Extraction struct {
	ItemID  string
	Title   string
	Content string
}

// Model describes a selectable provider model.
type Model struct {
	ID   string
	Name string
}
