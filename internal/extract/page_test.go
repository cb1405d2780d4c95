package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sandevgo/distill/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPage_Extract(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		fmt.Fprint(w, `<html><head><title>Interesting Article</title></head>
<body><p>[0:00] first line</p><p>[0:10] second line</p></body></html>`)
	}))
	defer server.Close()

	result, err := NewPage().Extract(context.Background(), server.URL+"/article")
	require.NoError(t, err)

	assert.Equal(t, core.DistillUserAgent, gotAgent)
	assert.Equal(t, "Interesting Article", result.Title)
	assert.Contains(t, result.Content, "[0:00] first line")
	assert.NotEmpty(t, result.ItemID)
}

func TestPage_ExtractFailures(t *testing.T) {
	t.Run("non-200 status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		_, err := NewPage().Extract(context.Background(), server.URL)

		var eerr *core.ExtractionError
		require.ErrorAs(t, err, &eerr)
		assert.Contains(t, eerr.Message, "404")
	})

	t.Run("empty page", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html><body></body></html>")
		}))
		defer server.Close()

		_, err := NewPage().Extract(context.Background(), server.URL)

		var eerr *core.ExtractionError
		require.ErrorAs(t, err, &eerr)
	})

	t.Run("unreachable host", func(t *testing.T) {
		_, err := NewPage().Extract(context.Background(), "http://127.0.0.1:1/nope")

		var eerr *core.ExtractionError
		require.ErrorAs(t, err, &eerr)
	})
}
