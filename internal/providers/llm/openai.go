package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/sandevgo/distill/internal/core"
)

const (
	openAIBaseURL      = "https://api.openai.com"
	openAIMaxTokens    = 4000
	nanoMaxTokens      = 16384
	openAITemperature  = 0.7
	openAIChatEndpoint = "/v1/chat/completions"
)

type OpenAI struct {
	baseProvider
}

func NewOpenAI(apiKey, model string) *OpenAI {
	return &OpenAI{
		baseProvider: newBaseProvider(openAIBaseURL, apiKey, model),
	}
}

// usesLegacyTokenParam reports whether the model still takes max_tokens.
// gpt-3.5 and pre-4o gpt-4 variants do; everything newer takes
// max_completion_tokens.
func usesLegacyTokenParam(model string) bool {
	return strings.HasPrefix(model, "gpt-3.5") ||
		(strings.HasPrefix(model, "gpt-4") && !strings.Contains(model, "4o"))
}

// supportsTemperature reports whether the model accepts a temperature
// parameter. The o1 family rejects it.
func supportsTemperature(model string) bool {
	return !strings.Contains(model, "o1")
}

func tokenBudgetFor(model string) int {
	if strings.Contains(model, "nano") {
		return nanoMaxTokens
	}
	return openAIMaxTokens
}

// buildBody assembles a chat-completions request shaped for the model.
func (o *OpenAI) buildBody(messages []core.ChatMessage, stream bool) map[string]any {
	body := map[string]any{
		"model":    o.model,
		"messages": messages,
	}
	if supportsTemperature(o.model) {
		body["temperature"] = openAITemperature
	}
	if usesLegacyTokenParam(o.model) {
		body["max_tokens"] = tokenBudgetFor(o.model)
	} else {
		body["max_completion_tokens"] = tokenBudgetFor(o.model)
	}
	if stream {
		body["stream"] = true
	}
	return body
}

func (o *OpenAI) authHeaders() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + o.apiKey,
	}
}

func (o *OpenAI) Summarize(ctx context.Context, instruction, content string) (string, error) {
	messages := []core.ChatMessage{
		{Role: core.RoleUser, Content: instruction + "\n\n" + content},
	}
	return o.complete(ctx, messages)
}

func (o *OpenAI) Chat(ctx context.Context, messages []core.ChatMessage, system string) (string, error) {
	// OpenAI convention: system content travels as the first message.
	all := make([]core.ChatMessage, 0, len(messages)+1)
	if system != "" {
		all = append(all, core.ChatMessage{Role: core.RoleSystem, Content: system})
	}
	all = append(all, messages...)
	return o.complete(ctx, all)
}

func (o *OpenAI) complete(ctx context.Context, messages []core.ChatMessage) (string, error) {
	resp, err := o.doWithRetry(ctx, http.MethodPost, openAIChatEndpoint, o.buildBody(messages, false), o.authHeaders())
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
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", &core.FormatError{}
	}
	if result.Choices[0].Message.Content == "" {
		return "", &core.FormatError{Reason: result.Choices[0].FinishReason}
	}
	return result.Choices[0].Message.Content, nil
}

// Stream runs the same completion with incremental delivery. Malformed
// frames are skipped; onChunk sees each text delta as it arrives.
func (o *OpenAI) Stream(ctx context.Context, instruction, content string, onChunk core.ChunkFunc) (string, error) {
	messages := []core.ChatMessage{
		{Role: core.RoleUser, Content: instruction + "\n\n" + content},
	}

	resp, err := o.doWithRetry(ctx, http.MethodPost, openAIChatEndpoint, o.buildBody(messages, true), o.authHeaders())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", terminalError(resp, data)
	}

	var full strings.Builder
	finishReason := ""

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		payload := strings.TrimPrefix(line, "data: ")
		if payload == "[DONE]" {
			break
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
				FinishReason string `json:"finish_reason"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if fr := chunk.Choices[0].FinishReason; fr != "" {
			finishReason = fr
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			full.WriteString(delta)
			if onChunk != nil {
				onChunk(delta)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read stream: %w", err)
	}

	if full.Len() == 0 {
		return "", &core.FormatError{Reason: finishReason}
	}
	return full.String(), nil
}

// chatModelPriority orders the well-known chat models first.
var chatModelPriority = []struct {
	prefix string
	rank   int
}{
	{"chatgpt-4o-latest", 1},
	{"gpt-4o", 2},
	{"gpt-4o-mini", 3},
	{"o1-preview", 4},
	{"o1-mini", 5},
	{"o1", 6},
	{"gpt-4-turbo", 7},
	{"gpt-4", 8},
	{"gpt-3.5-turbo", 9},
}

func modelRank(id string) int {
	for _, p := range chatModelPriority {
		if strings.HasPrefix(id, p.prefix) {
			return p.rank
		}
	}
	return 999
}

// isChatModel filters the model listing down to chat-completion models.
func isChatModel(id string) bool {
	id = strings.ToLower(id)
	for _, excluded := range []string{"embedding", "whisper", "tts", "dall-e", "davinci", "babbage", "ada", "curie"} {
		if strings.Contains(id, excluded) {
			return false
		}
	}
	return strings.Contains(id, "gpt") || strings.Contains(id, "o1") || strings.Contains(id, "chatgpt")
}

func (o *OpenAI) Models(ctx context.Context) ([]core.Model, error) {
	resp, err := o.doWithRetry(ctx, http.MethodGet, "/v1/models", nil, o.authHeaders())
	if err != nil {
		return nil, fmt.Errorf("fetch models: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, terminalError(resp, data)
	}

	var apiResp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &apiResp); err != nil {
		return nil, fmt.Errorf("decode models response: %w", err)
	}

	models := make([]core.Model, 0, len(apiResp.Data))
	for _, m := range apiResp.Data {
		if isChatModel(m.ID) {
			models = append(models, core.Model{ID: m.ID, Name: m.ID})
		}
	}

	sort.SliceStable(models, func(i, j int) bool {
		return modelRank(models[i].ID) < modelRank(models[j].ID)
	})

	return models, nil
}
