package core

import (
	"errors"
	"fmt"
)

// ErrStoreClosed reports that the storage backend has been torn down. The
// process needs a restart; callers must not retry.
var ErrStoreClosed = errors.New("storage backend is closed")

// ErrNotConfigured reports that an AI feature was requested without a
// complete provider configuration.
var ErrNotConfigured = errors.New("ai provider is not configured")

// ErrNoEntry reports a chat attempt for an item that was never extracted.
var ErrNoEntry = errors.New("no cached entry for item")

// ProviderError is a terminal non-2xx provider response, surfaced after the
// retry budget is exhausted.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider http %d", e.Status)
	}
	return fmt.Sprintf("provider http %d: %s", e.Status, e.Message)
}

// FormatError reports a provider payload that decoded fine but lacked a
// usable result. Reason carries the finish/stop reason when the provider
// supplied one.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	if e.Reason == "" {
		return "provider returned an empty or malformed result"
	}
	return fmt.Sprintf("provider returned an empty or malformed result (reason: %s)", e.Reason)
}

// ExtractionError reports that the extractor could not produce content.
// The message is surfaced to the user verbatim and never retried.
type ExtractionError struct {
	Message string
}

func (e *ExtractionError) Error() string {
	return e.Message
}
