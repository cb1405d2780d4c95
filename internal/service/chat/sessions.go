package chat

import (
	"fmt"
	"sync"

	"github.com/sandevgo/distill/internal/core"
)

// Payload is a provider-ready conversation. System is set for providers
// whose convention carries system content in a top-level field; otherwise
// the system instruction travels as the first message.
type Payload struct {
	System   string
	Messages []core.ChatMessage
}

// Sessions holds per-item chat history for the lifetime of the process.
// The cache keeps the durable copy; this is the working set.
type Sessions struct {
	mu        sync.Mutex
	histories map[string][]core.ChatMessage
}

func NewSessions() *Sessions {
	return &Sessions{
		histories: make(map[string][]core.ChatMessage),
	}
}

// AddMessage appends to an item's history, retaining only the newest
// MaxChatMessages entries.
func (s *Sessions) AddMessage(itemID, role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.histories[itemID], core.ChatMessage{Role: role, Content: content})
	s.histories[itemID] = tail(history, core.MaxChatMessages)
}

// LoadHistory replaces an item's in-memory history with the tail of a
// stored one, used to rehydrate from a cached entry.
func (s *Sessions) LoadHistory(itemID string, history []core.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := tail(history, core.MaxChatMessages)
	s.histories[itemID] = append([]core.ChatMessage(nil), kept...)
}

func (s *Sessions) History(itemID string) []core.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]core.ChatMessage(nil), s.histories[itemID]...)
}

func (s *Sessions) Clear(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.histories, itemID)
}

func (s *Sessions) HasHistory(itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.histories[itemID]) > 0
}

// BuildPayload assembles the conversation for a provider call, embedding
// contextText (the summary, or a bounded excerpt of the raw content) into
// the system instruction.
func (s *Sessions) BuildPayload(itemID, contextText string, provider core.ProviderID) Payload {
	history := s.History(itemID)
	system := fmt.Sprintf(
		"You are a helpful assistant discussing a web page. Here is the page summary for context:\n\n%s\n\nAnswer questions about this page based on the summary provided. Be concise and helpful.",
		contextText,
	)

	if provider == core.ProviderClaude {
		return Payload{System: system, Messages: history}
	}

	messages := make([]core.ChatMessage, 0, len(history)+1)
	messages = append(messages, core.ChatMessage{Role: core.RoleSystem, Content: system})
	messages = append(messages, history...)
	return Payload{Messages: messages}
}

func tail(history []core.ChatMessage, max int) []core.ChatMessage {
	if len(history) > max {
		return history[len(history)-max:]
	}
	return history
}
