package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sandevgo/distill/internal/core"
	"github.com/sandevgo/distill/pkg/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetrier() *retry.Retrier {
	return retry.NewRetrier(&retry.Config{
		MaxRetries: 2,
		Delays:     []time.Duration{time.Millisecond},
	})
}

func testOpenAI(t *testing.T, model string, handler http.Handler) (*OpenAI, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	p := NewOpenAI("test-key", model)
	p.baseURL = server.URL
	p.retrier = fastRetrier()
	return p, server
}

func TestOpenAI_RequestShaping(t *testing.T) {
	tests := []struct {
		model           string
		wantTemperature bool
		wantTokenParam  string
		wantBudget      int
	}{
		{"gpt-3.5-turbo", true, "max_tokens", 4000},
		{"gpt-4", true, "max_tokens", 4000},
		{"gpt-4-turbo", true, "max_tokens", 4000},
		{"gpt-4o", true, "max_completion_tokens", 4000},
		{"gpt-4o-mini", true, "max_completion_tokens", 4000},
		{"o1-preview", false, "max_completion_tokens", 4000},
		{"o1-mini", false, "max_completion_tokens", 4000},
		{"chatgpt-4o-latest", true, "max_completion_tokens", 4000},
		{"gpt-5-nano", true, "max_completion_tokens", 16384},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			p := NewOpenAI("k", tt.model)
			body := p.buildBody([]core.ChatMessage{{Role: core.RoleUser, Content: "hi"}}, false)

			_, hasTemp := body["temperature"]
			assert.Equal(t, tt.wantTemperature, hasTemp, "temperature presence")

			budget, ok := body[tt.wantTokenParam]
			require.True(t, ok, "expected %s parameter", tt.wantTokenParam)
			assert.Equal(t, tt.wantBudget, budget)

			other := "max_tokens"
			if tt.wantTokenParam == "max_tokens" {
				other = "max_completion_tokens"
			}
			_, hasOther := body[other]
			assert.False(t, hasOther, "token parameters are mutually exclusive")
		})
	}
}

func TestOpenAI_RetryBudgetOn503(t *testing.T) {
	attempts := 0
	p, _ := testOpenAI(t, "gpt-4o", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := p.Summarize(context.Background(), "summarize", "text")
	require.Error(t, err)

	var perr *core.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusServiceUnavailable, perr.Status)
	// 1 initial call + 2 retries.
	assert.Equal(t, 3, attempts)
}

func TestOpenAI_TerminalStatusNotRetried(t *testing.T) {
	attempts := 0
	p, _ := testOpenAI(t, "gpt-4o", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"bad key"}}`)
	}))

	_, err := p.Summarize(context.Background(), "summarize", "text")

	var perr *core.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusUnauthorized, perr.Status)
	assert.Contains(t, perr.Message, "bad key")
	assert.Equal(t, 1, attempts)
}

func TestOpenAI_TransientThenSuccess(t *testing.T) {
	attempts := 0
	p, _ := testOpenAI(t, "gpt-4o", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"the summary"},"finish_reason":"stop"}]}`)
	}))

	result, err := p.Summarize(context.Background(), "summarize", "text")
	require.NoError(t, err)
	assert.Equal(t, "the summary", result)
	assert.Equal(t, 2, attempts)
}

func TestOpenAI_EmptyResultIncludesFinishReason(t *testing.T) {
	p, _ := testOpenAI(t, "gpt-4o", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[{"message":{"content":""},"finish_reason":"content_filter"}]}`)
	}))

	_, err := p.Summarize(context.Background(), "summarize", "text")

	var ferr *core.FormatError
	require.ErrorAs(t, err, &ferr)
	assert.Contains(t, ferr.Error(), "content_filter")
}

func TestOpenAI_EmptyChoices(t *testing.T) {
	p, _ := testOpenAI(t, "gpt-4o", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))

	_, err := p.Summarize(context.Background(), "summarize", "text")

	var ferr *core.FormatError
	require.ErrorAs(t, err, &ferr)
}

func TestOpenAI_ChatPlacesSystemFirst(t *testing.T) {
	var captured struct {
		Messages []core.ChatMessage `json:"messages"`
	}
	p, _ := testOpenAI(t, "gpt-4o", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, `{"choices":[{"message":{"content":"answer"},"finish_reason":"stop"}]}`)
	}))

	history := []core.ChatMessage{
		{Role: core.RoleUser, Content: "question one"},
		{Role: core.RoleAssistant, Content: "answer one"},
		{Role: core.RoleUser, Content: "question two"},
	}
	result, err := p.Chat(context.Background(), history, "system context")
	require.NoError(t, err)
	assert.Equal(t, "answer", result)

	require.Len(t, captured.Messages, 4)
	assert.Equal(t, core.RoleSystem, captured.Messages[0].Role)
	assert.Equal(t, "system context", captured.Messages[0].Content)
	assert.Equal(t, "question one", captured.Messages[1].Content)
}

func TestOpenAI_Stream(t *testing.T) {
	p, _ := testOpenAI(t, "gpt-4o", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hello\"}}]}\n\n")
		fmt.Fprint(w, "data: this frame is not json\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\" world\"}}]}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))

	var chunks []string
	result, err := p.Stream(context.Background(), "summarize", "text", func(text string) {
		chunks = append(chunks, text)
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", result)
	assert.Equal(t, []string{"Hello", " world"}, chunks)
}

func TestOpenAI_StreamEmpty(t *testing.T) {
	p, _ := testOpenAI(t, "gpt-4o", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"length\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))

	_, err := p.Stream(context.Background(), "summarize", "text", nil)

	var ferr *core.FormatError
	require.True(t, errors.As(err, &ferr))
	assert.Contains(t, ferr.Error(), "length")
}

func TestOpenAI_ModelsFilteredAndSorted(t *testing.T) {
	p, _ := testOpenAI(t, "gpt-4o", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[
			{"id":"text-embedding-3-small"},
			{"id":"gpt-3.5-turbo"},
			{"id":"whisper-1"},
			{"id":"gpt-4o"},
			{"id":"dall-e-3"},
			{"id":"o1-mini"},
			{"id":"tts-1"}
		]}`)
	}))

	models, err := p.Models(context.Background())
	require.NoError(t, err)

	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	assert.Equal(t, []string{"gpt-4o", "o1-mini", "gpt-3.5-turbo"}, ids)
}
