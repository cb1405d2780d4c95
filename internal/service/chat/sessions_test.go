package chat

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sandevgo/distill/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_AddMessageTruncatesOldest(t *testing.T) {
	s := NewSessions()

	for i := 0; i < core.MaxChatMessages+5; i++ {
		s.AddMessage("item", core.RoleUser, fmt.Sprintf("message %d", i))
	}

	history := s.History("item")
	require.Len(t, history, core.MaxChatMessages)
	assert.Equal(t, "message 5", history[0].Content)
	assert.Equal(t, fmt.Sprintf("message %d", core.MaxChatMessages+4), history[len(history)-1].Content)
}

func TestSessions_LoadHistoryKeepsTail(t *testing.T) {
	s := NewSessions()

	var stored []core.ChatMessage
	for i := 0; i < 30; i++ {
		stored = append(stored, core.ChatMessage{Role: core.RoleUser, Content: fmt.Sprintf("m%d", i)})
	}
	s.LoadHistory("item", stored)

	history := s.History("item")
	require.Len(t, history, core.MaxChatMessages)
	assert.Equal(t, "m10", history[0].Content)
	assert.Equal(t, "m29", history[len(history)-1].Content)
}

func TestSessions_IsolatedPerItem(t *testing.T) {
	s := NewSessions()
	s.AddMessage("a", core.RoleUser, "hello a")
	s.AddMessage("b", core.RoleUser, "hello b")

	assert.True(t, s.HasHistory("a"))
	assert.True(t, s.HasHistory("b"))

	s.Clear("a")
	assert.False(t, s.HasHistory("a"))
	assert.True(t, s.HasHistory("b"))
	assert.Empty(t, s.History("a"))
}

func TestSessions_HistoryReturnsCopy(t *testing.T) {
	s := NewSessions()
	s.AddMessage("item", core.RoleUser, "original")

	history := s.History("item")
	history[0].Content = "mutated"

	assert.Equal(t, "original", s.History("item")[0].Content)
}

func TestSessions_BuildPayload(t *testing.T) {
	s := NewSessions()
	s.AddMessage("item", core.RoleUser, "what is this about?")
	s.AddMessage("item", core.RoleAssistant, "a summary tool")

	t.Run("claude carries system top-level", func(t *testing.T) {
		payload := s.BuildPayload("item", "the summary", core.ProviderClaude)

		assert.Contains(t, payload.System, "the summary")
		require.Len(t, payload.Messages, 2)
		assert.Equal(t, core.RoleUser, payload.Messages[0].Role)
	})

	t.Run("openai inlines system as first message", func(t *testing.T) {
		payload := s.BuildPayload("item", "the summary", core.ProviderOpenAI)

		assert.Empty(t, payload.System)
		require.Len(t, payload.Messages, 3)
		assert.Equal(t, core.RoleSystem, payload.Messages[0].Role)
		assert.Contains(t, payload.Messages[0].Content, "the summary")
	})
}

func TestContextText(t *testing.T) {
	t.Run("summary wins when present", func(t *testing.T) {
		entry := &core.Entry{
			Transcript: core.Transcript{Raw: "raw words"},
			Summary:    &core.Summary{Result: "the summary"},
		}
		assert.Equal(t, "the summary", ContextText(entry))
	})

	t.Run("falls back to a bounded transcript prefix", func(t *testing.T) {
		raw := strings.Repeat("many words in a long transcript ", 2000)
		entry := &core.Entry{Transcript: core.Transcript{Raw: raw}}

		got := ContextText(entry)
		assert.True(t, len(got) < len(raw))
		assert.True(t, strings.HasPrefix(raw, got))
	})
}

func TestTruncateToTokens(t *testing.T) {
	short := "a few words"
	assert.Equal(t, short, TruncateToTokens(short, 100))

	long := strings.Repeat("word ", 5000)
	got := TruncateToTokens(long, 50)
	assert.True(t, len(got) < len(long))
	assert.NotEmpty(t, got)
}
