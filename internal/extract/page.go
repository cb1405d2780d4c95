package extract

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/inbucket/html2text"
	"github.com/sandevgo/distill/internal/core"
	"github.com/sandevgo/distill/pkg/log"
)

const unknownTitle = "Unknown Page"

var titlePattern = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// Page fetches a URL and turns its readable content into a transcript.
// It implements core.Extractor.
type Page struct {
	client *http.Client
}

func NewPage() *Page {
	return &Page{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (p *Page) Extract(ctx context.Context, source string) (*core.Extraction, error) {
	logger := log.FromCtx(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, &core.ExtractionError{Message: fmt.Sprintf("invalid source: %v", err)}
	}

	// Mimic a browser to avoid some basic blocking
	req.Header.Set("User-Agent", core.DistillUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &core.ExtractionError{Message: fmt.Sprintf("failed to fetch page: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &core.ExtractionError{Message: fmt.Sprintf("page returned http %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.ExtractionError{Message: fmt.Sprintf("failed to read page: %v", err)}
	}

	content, err := html2text.FromString(string(body), html2text.Options{TextOnly: true})
	if err != nil {
		logger.Warn().Err(err).Msg("html conversion failed, using raw body")
		content = string(body)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &core.ExtractionError{
			Message: "no readable content found on this page",
		}
	}

	extraction := &core.Extraction{
		ItemID:  ItemID(source),
		Title:   pageTitle(string(body)),
		Content: content,
	}
	logger.Debug().
		Str("item_id", extraction.ItemID).
		Str("title", extraction.Title).
		Int("content_len", len(extraction.Content)).
		Msg("page extracted")

	return extraction, nil
}

// ItemID derives a stable identifier for a source URL. A content id in the
// query string wins; otherwise the normalized URL is hashed.
func ItemID(source string) string {
	if u, err := url.Parse(source); err == nil {
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		u.Fragment = ""
		source = strings.TrimSuffix(u.String(), "/")
	}
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])[:16]
}

func pageTitle(body string) string {
	match := titlePattern.FindStringSubmatch(body)
	if match == nil {
		return unknownTitle
	}
	title := strings.TrimSpace(html.UnescapeString(match[1]))
	if title == "" {
		return unknownTitle
	}
	return title
}
