package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/sandevgo/distill/internal/cache"
	"github.com/sandevgo/distill/internal/config"
	"github.com/sandevgo/distill/internal/core"
	"github.com/sandevgo/distill/internal/extract"
	"github.com/sandevgo/distill/internal/service/orchestrator"
	"github.com/sandevgo/distill/pkg/conv"
	"github.com/sandevgo/distill/pkg/log"
)

const helpText = `Commands:
  <url>              extract and summarize a page
  chat <message>     ask about the current page
  regenerate         rebuild the summary (clears chat context)
  clearchat          discard the chat history for the current page
  stats              show cache statistics
  clearcache         remove all cached pages
  help               show this help
  exit               quit`

// ReadLine is the interactive terminal transport. It doubles as the
// pipeline's presentation layer.
type ReadLine struct {
	cfg  *config.AppConfig
	orch *orchestrator.Orchestrator
	c    *cache.Cache
	rl   *readline.Instance

	// last delivered entry, the subject of chat/regenerate commands
	currentItem string
	currentRaw  string
}

func NewReadLine(cfg *config.AppConfig, c *cache.Cache) (*ReadLine, error) {
	// Ensure runtime directory exists
	if err := os.MkdirAll(cfg.RuntimePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create runtime directory: %w", err)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     filepath.Join(cfg.RuntimePath, "input_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, err
	}

	return &ReadLine{
		cfg: cfg,
		c:   c,
		rl:  rl,
	}, nil
}

// SetOrchestrator wires the pipeline in after construction; the
// orchestrator needs this transport as its presenter.
func (r *ReadLine) SetOrchestrator(orch *orchestrator.Orchestrator) {
	r.orch = orch
}

func (r *ReadLine) Start(ctx context.Context) error {
	logger := log.FromCtx(ctx)
	logger.Info().Msg("interactive session started")

	fmt.Fprintln(r.rl.Stdout(), "Distill — paste a URL to get started, 'help' for commands.")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line, err := r.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if len(line) == 0 {
					return nil
				}
				continue
			} else if err == io.EOF {
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		r.dispatch(ctx, line)
	}
}

func (r *ReadLine) dispatch(ctx context.Context, line string) {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "help":
		fmt.Fprintln(r.rl.Stdout(), helpText)
	case "chat":
		r.cmdChat(ctx, rest)
	case "regenerate":
		r.cmdRegenerate(ctx)
	case "clearchat":
		r.cmdClearChat(ctx)
	case "stats":
		r.cmdStats(ctx)
	case "clearcache":
		r.cmdClearCache(ctx)
	default:
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			r.orch.ExtractAndDisplay(ctx, extract.ItemID(line), line)
			return
		}
		fmt.Fprintf(r.rl.Stdout(), "Unknown command %q — 'help' lists what I understand.\n", cmd)
	}
}

func (r *ReadLine) cmdChat(ctx context.Context, message string) {
	if message == "" {
		fmt.Fprintln(r.rl.Stdout(), "Usage: chat <message>")
		return
	}
	if r.currentItem == "" {
		fmt.Fprintln(r.rl.Stdout(), "Extract a page first.")
		return
	}

	reply, err := r.orch.SendChatMessage(ctx, r.currentItem, message)
	if err != nil {
		r.ShowError(chatErrorMessage(err))
		return
	}
	fmt.Fprintf(r.rl.Stdout(), "\n%s\n", conv.MarkdownToText([]byte(reply)))
}

func (r *ReadLine) cmdRegenerate(ctx context.Context) {
	if r.currentItem == "" {
		fmt.Fprintln(r.rl.Stdout(), "Extract a page first.")
		return
	}

	fmt.Fprintln(r.rl.Stdout(), "Regenerating summary...")
	summary := r.orch.RegenerateSummary(ctx, r.currentItem, r.currentRaw)
	if summary == nil {
		r.ShowError("summary regeneration failed, check your provider configuration")
		return
	}
	fmt.Fprintf(r.rl.Stdout(), "\n%s\n", conv.MarkdownToText([]byte(summary.Result)))
}

func (r *ReadLine) cmdClearChat(ctx context.Context) {
	if r.currentItem == "" {
		fmt.Fprintln(r.rl.Stdout(), "Extract a page first.")
		return
	}
	r.orch.ClearChat(ctx, r.currentItem)
	fmt.Fprintln(r.rl.Stdout(), "Chat history cleared.")
}

func (r *ReadLine) cmdStats(ctx context.Context) {
	stats := r.c.Stats(ctx)
	fmt.Fprintf(r.rl.Stdout(), "Cached pages: %d (~%d bytes)\n", stats.Count, stats.ByteSize)
	for _, id := range stats.ItemIDs {
		fmt.Fprintf(r.rl.Stdout(), "  %s\n", id)
	}
	if !stats.LastCleanup.IsZero() {
		fmt.Fprintf(r.rl.Stdout(), "Last eviction: %s\n", stats.LastCleanup.Format("2006-01-02 15:04:05"))
	}
}

func (r *ReadLine) cmdClearCache(ctx context.Context) {
	if r.c.Clear(ctx) {
		r.currentItem = ""
		r.currentRaw = ""
		fmt.Fprintln(r.rl.Stdout(), "Cache cleared.")
		return
	}
	r.ShowError("failed to clear the cache")
}

func (r *ReadLine) Shutdown(ctx context.Context) error {
	if r.rl != nil {
		return r.rl.Close()
	}
	return nil
}

// ShowLoading implements core.Presenter.
func (r *ReadLine) ShowLoading() {
	fmt.Fprintln(r.rl.Stdout(), "Extracting page content...")
}

// ShowEntry implements core.Presenter.
func (r *ReadLine) ShowEntry(entry *core.Entry) {
	r.currentItem = entry.ItemID
	r.currentRaw = entry.Transcript.Raw

	out := r.rl.Stdout()
	fmt.Fprintf(out, "\n# %s\n\n", entry.Title)

	if entry.Summary != nil {
		fmt.Fprintf(out, "%s\n", conv.MarkdownToText([]byte(entry.Summary.Result)))
	} else {
		fmt.Fprintln(out, "(no summary — run 'regenerate' once a provider is configured)")
		fmt.Fprintf(out, "\n%s\n", excerpt(entry.Transcript.Raw, 800))
	}
	fmt.Fprintln(out, "\nAsk about it with 'chat <message>'.")
}

// ShowError implements core.Presenter.
func (r *ReadLine) ShowError(msg string) {
	fmt.Fprintf(r.rl.Stdout(), "Error: %s\n", msg)
}

// StreamChunk implements core.Presenter, echoing summary text as it
// arrives.
func (r *ReadLine) StreamChunk(text string) {
	fmt.Fprint(r.rl.Stdout(), text)
}

func chatErrorMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrNotConfigured):
		return "no provider configured — run 'distill setup' first"
	case errors.Is(err, core.ErrNoEntry):
		return "no cached page for this item, extract it first"
	default:
		return err.Error()
	}
}

func excerpt(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "…"
}
