package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sandevgo/distill/internal/core"
	"github.com/sandevgo/distill/pkg/retry"
)

// Transient statuses worth another attempt. Everything else is terminal.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
}

type baseProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
	retrier *retry.Retrier
}

func newBaseProvider(baseURL, apiKey, model string) baseProvider {
	return baseProvider{
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		retrier: retry.NewDefaultRetrier(),
	}
}

func (b *baseProvider) doRequest(ctx context.Context, method, path string, body any, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	return resp, nil
}

// doWithRetry repeats doRequest while the response carries a transient
// status. The response it returns either succeeded or failed terminally;
// exhausting the budget surfaces the last attempt as a ProviderError.
func (b *baseProvider) doWithRetry(ctx context.Context, method, path string, body any, headers map[string]string) (*http.Response, error) {
	var resp *http.Response

	err := b.retrier.Do(ctx, func() error {
		r, err := b.doRequest(ctx, method, path, body, headers)
		if err != nil {
			return err
		}

		if retryableStatus[r.StatusCode] {
			data, _ := io.ReadAll(r.Body)
			r.Body.Close()
			return retry.Transient(&core.ProviderError{
				Status:  r.StatusCode,
				Message: apiErrorMessage(data, r.StatusCode),
			})
		}

		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// apiErrorMessage pulls the human-readable message out of an error payload,
// falling back to the status text.
func apiErrorMessage(data []byte, status int) string {
	var payload struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error.Message != "" {
		if payload.Error.Type != "" {
			return fmt.Sprintf("%s: %s", payload.Error.Type, payload.Error.Message)
		}
		return payload.Error.Message
	}

	if text := strings.TrimSpace(string(data)); text != "" && len(text) < 200 {
		return text
	}
	return http.StatusText(status)
}

func terminalError(resp *http.Response, data []byte) error {
	return &core.ProviderError{
		Status:  resp.StatusCode,
		Message: apiErrorMessage(data, resp.StatusCode),
	}
}
