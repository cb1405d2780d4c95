package chat

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/sandevgo/distill/internal/core"
)

var (
	tk     *tiktoken.Tiktoken
	tkErr  error
	tkOnce sync.Once
)

func getTokenizer() (*tiktoken.Tiktoken, error) {
	tkOnce.Do(func() {
		tk, tkErr = tiktoken.GetEncoding("cl100k_base")
	})
	return tk, tkErr
}

// ContextText picks the chat context for an entry: the summary when one
// exists, otherwise a budgeted prefix of the raw transcript.
func ContextText(entry *core.Entry) string {
	if entry.Summary != nil && entry.Summary.Result != "" {
		return entry.Summary.Result
	}
	return TruncateToTokens(entry.Transcript.Raw, core.ChatContextTokens)
}

// TruncateToTokens bounds text to maxTokens. When the encoding cannot
// load it falls back to a character limit.
func TruncateToTokens(text string, maxTokens int) string {
	enc, err := getTokenizer()
	if err != nil {
		if len(text) > core.ChatContextChars {
			return text[:core.ChatContextChars]
		}
		return text
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return enc.Decode(tokens[:maxTokens])
}
