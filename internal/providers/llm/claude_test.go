package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sandevgo/distill/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClaude(t *testing.T, handler http.Handler) *Claude {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p := NewClaude("test-key", "claude-3-5-haiku-20241022")
	p.baseURL = server.URL
	p.retrier = fastRetrier()
	return p
}

func TestClaude_RequestConventions(t *testing.T) {
	var gotHeaders http.Header
	var captured map[string]any
	p := testClaude(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, `{"content":[{"type":"text","text":"answer"}],"stop_reason":"end_turn"}`)
	}))

	history := []core.ChatMessage{{Role: core.RoleUser, Content: "question"}}
	result, err := p.Chat(context.Background(), history, "system context")
	require.NoError(t, err)
	assert.Equal(t, "answer", result)

	assert.Equal(t, "test-key", gotHeaders.Get("x-api-key"))
	assert.Equal(t, anthropicAPIVersion, gotHeaders.Get("anthropic-version"))

	// System content travels top-level, never inside messages.
	assert.Equal(t, "system context", captured["system"])
	messages, ok := captured["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 1)
	assert.Equal(t, float64(claudeMaxTokens), captured["max_tokens"])
}

func TestClaude_ConcatenatesTextBlocks(t *testing.T) {
	p := testClaude(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content":[
			{"type":"text","text":"part one"},
			{"type":"tool_use","text":"ignored"},
			{"type":"text","text":" part two"}
		],"stop_reason":"end_turn"}`)
	}))

	result, err := p.Summarize(context.Background(), "summarize", "text")
	require.NoError(t, err)
	assert.Equal(t, "part one part two", result)
}

func TestClaude_EmptyResultIncludesStopReason(t *testing.T) {
	p := testClaude(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"content":[],"stop_reason":"max_tokens"}`)
	}))

	_, err := p.Summarize(context.Background(), "summarize", "text")

	var ferr *core.FormatError
	require.ErrorAs(t, err, &ferr)
	assert.Contains(t, ferr.Error(), "max_tokens")
}

func TestClaude_Stream(t *testing.T) {
	p := testClaude(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: message_start\n")
		fmt.Fprint(w, "data: {\"type\":\"message_start\"}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\"Hello\"}}\n\n")
		fmt.Fprint(w, "data: not valid json\n\n")
		fmt.Fprint(w, "data: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":\" world\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"message_delta\",\"delta\":{\"stop_reason\":\"end_turn\"}}\n\n")
		fmt.Fprint(w, "data: {\"type\":\"message_stop\"}\n\n")
	}))

	var chunks []string
	result, err := p.Stream(context.Background(), "summarize", "text", func(text string) {
		chunks = append(chunks, text)
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", result)
	assert.Equal(t, []string{"Hello", " world"}, chunks)
}

func TestClaude_RetryOn429(t *testing.T) {
	attempts := 0
	p := testClaude(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"type":"rate_limit_error","message":"slow down"}}`)
	}))

	_, err := p.Summarize(context.Background(), "summarize", "text")

	var perr *core.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusTooManyRequests, perr.Status)
	assert.Contains(t, perr.Message, "slow down")
	assert.Equal(t, 3, attempts)
}

func TestClaude_ModelsWithoutKey(t *testing.T) {
	p := NewClaude("", "claude-3-5-haiku-20241022")

	models, err := p.Models(context.Background())
	require.NoError(t, err)
	assert.Equal(t, curatedClaudeModels, models)
}

func TestClaude_ModelsProbe(t *testing.T) {
	t.Run("invalid key", func(t *testing.T) {
		p := testClaude(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))

		_, err := p.Models(context.Background())

		var perr *core.ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, http.StatusUnauthorized, perr.Status)
	})

	t.Run("bad request still proves the key", func(t *testing.T) {
		p := testClaude(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))

		models, err := p.Models(context.Background())
		require.NoError(t, err)
		assert.Equal(t, curatedClaudeModels, models)
	})
}
