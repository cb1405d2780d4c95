package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sandevgo/distill/internal/core"
)

const (
	claudeBaseURL       = "https://api.anthropic.com"
	claudeMaxTokens     = 4096
	claudeEndpoint      = "/v1/messages"
	anthropicAPIVersion = "2023-06-01"
)

type Claude struct {
	baseProvider
}

func NewClaude(apiKey, model string) *Claude {
	return &Claude{
		baseProvider: newBaseProvider(claudeBaseURL, apiKey, model),
	}
}

func (c *Claude) headers() map[string]string {
	return map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": anthropicAPIVersion,
	}
}

func (c *Claude) buildBody(messages []core.ChatMessage, system string, stream bool) map[string]any {
	body := map[string]any{
		"model":      c.model,
		"max_tokens": claudeMaxTokens,
		"messages":   messages,
	}
	if system != "" {
		// Claude convention: system content is a top-level field.
		body["system"] = system
	}
	if stream {
		body["stream"] = true
	}
	return body
}

func (c *Claude) Summarize(ctx context.Context, instruction, content string) (string, error) {
	messages := []core.ChatMessage{
		{Role: core.RoleUser, Content: instruction + "\n\n" + content},
	}
	return c.complete(ctx, messages, "")
}

func (c *Claude) Chat(ctx context.Context, messages []core.ChatMessage, system string) (string, error) {
	return c.complete(ctx, messages, system)
}

func (c *Claude) complete(ctx context.Context, messages []core.ChatMessage, system string) (string, error) {
	resp, err := c.doWithRetry(ctx, http.MethodPost, claudeEndpoint, c.buildBody(messages, system, false), c.headers())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", terminalError(resp, data)
	}

	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	var text strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", &core.FormatError{Reason: result.StopReason}
	}
	return text.String(), nil
}

// Stream runs the summarization with incremental delivery over the
// messages event stream. Frames that fail to decode are skipped.
func (c *Claude) Stream(ctx context.Context, instruction, content string, onChunk core.ChunkFunc) (string, error) {
	messages := []core.ChatMessage{
		{Role: core.RoleUser, Content: instruction + "\n\n" + content},
	}

	resp, err := c.doWithRetry(ctx, http.MethodPost, claudeEndpoint, c.buildBody(messages, "", true), c.headers())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", terminalError(resp, data)
	}

	var full strings.Builder
	stopReason := ""

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")

		var event struct {
			Type  string `json:"type"`
			Delta struct {
				Type       string `json:"type"`
				Text       string `json:"text"`
				StopReason string `json:"stop_reason"`
			} `json:"delta"`
		}
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			continue
		}

		switch event.Type {
		case "content_block_delta":
			if event.Delta.Text != "" {
				full.WriteString(event.Delta.Text)
				if onChunk != nil {
					onChunk(event.Delta.Text)
				}
			}
		case "message_delta":
			if event.Delta.StopReason != "" {
				stopReason = event.Delta.StopReason
			}
		case "message_stop":
			// Provider signalled completion; remaining frames are noise.
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read stream: %w", err)
	}

	if full.Len() == 0 {
		return "", &core.FormatError{Reason: stopReason}
	}
	return full.String(), nil
}

// curatedClaudeModels is the fallback listing used when no key is
// configured; the Anthropic models API needs authentication.
var curatedClaudeModels = []core.Model{
	{ID: "claude-opus-4-5-20251101", Name: "Claude Opus 4.5 (Latest)"},
	{ID: "claude-sonnet-4-5-20250929", Name: "Claude Sonnet 4.5"},
	{ID: "claude-haiku-4-5-20251001", Name: "Claude Haiku 4.5"},
	{ID: "claude-3-7-sonnet-20250219", Name: "Claude 3.7 Sonnet"},
	{ID: "claude-3-5-sonnet-20241022", Name: "Claude 3.5 Sonnet v2"},
	{ID: "claude-3-5-haiku-20241022", Name: "Claude 3.5 Haiku"},
	{ID: "claude-3-opus-20240229", Name: "Claude 3 Opus"},
	{ID: "claude-3-haiku-20240307", Name: "Claude 3 Haiku"},
}

// Models returns the curated list, validating the key with a one-token
// probe when one is configured. A 400 still proves the key works.
func (c *Claude) Models(ctx context.Context) ([]core.Model, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return curatedClaudeModels, nil
	}

	probe := map[string]any{
		"model":      curatedClaudeModels[0].ID,
		"max_tokens": 1,
		"messages": []core.ChatMessage{
			{Role: core.RoleUser, Content: "test"},
		},
	}

	resp, err := c.doRequest(ctx, http.MethodPost, claudeEndpoint, probe, c.headers())
	if err != nil {
		// Probe is best-effort; network trouble should not hide the list.
		return curatedClaudeModels, nil
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, &core.ProviderError{Status: resp.StatusCode, Message: "invalid API key"}
	}
	return curatedClaudeModels, nil
}
