// Package batch generates and exports decks for every entry of a batch file.
package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"codeberg.org/snonux/studycards/internal/audio"
	"codeberg.org/snonux/studycards/internal/deck"
	"codeberg.org/snonux/studycards/internal/export"
	"codeberg.org/snonux/studycards/internal/generation"
	"codeberg.org/snonux/studycards/internal/image"
	"codeberg.org/snonux/studycards/internal/notify"
)

// Options configures a Runner
type Options struct {
	Parallel  int    // entries generated at once, at least 1
	OutputDir string // where decks are exported
	Format    export.Format
	DeckName  string         // prefix for deck names; the entry name is appended
	Speaker   audio.Provider // optional spoken answers in exported decks
	Notifier  notify.Pusher
	Timeout   time.Duration // per entry
	Logger    *slog.Logger
}

// DefaultOptions returns the options used by `studycards batch`
func DefaultOptions() *Options {
	return &Options{
		Parallel:  2,
		OutputDir: "./decks",
		Format:    export.FormatAPKG,
		DeckName:  export.DefaultDeckName,
	}
}

// EntryResult is how one entry ended
type EntryResult struct {
	Entry      Entry
	Cards      int
	OutputPath string
	Err        error
}

// Summary collects the results of a run in entry order
type Summary struct {
	Results []EntryResult
}

// Generated returns the number of entries that produced a deck
func (s *Summary) Generated() int {
	n := 0
	for _, r := range s.Results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

// Failed returns the number of entries that did not produce a deck
func (s *Summary) Failed() int {
	return len(s.Results) - s.Generated()
}

// Cards returns the total number of cards generated
func (s *Summary) Cards() int {
	n := 0
	for _, r := range s.Results {
		n += r.Cards
	}
	return n
}

// Print writes the summary in the same shape as the single-run output
func (s *Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "\n=== Batch Processing Summary ===\n")
	fmt.Fprintf(w, "Total inputs: %d\n", len(s.Results))
	fmt.Fprintf(w, "Generated: %d (%d cards)\n", s.Generated(), s.Cards())
	if failed := s.Failed(); failed > 0 {
		fmt.Fprintf(w, "Errors: %d\n", failed)
		for _, r := range s.Results {
			if r.Err != nil {
				fmt.Fprintf(w, "  line %d %s: %v\n", r.Entry.Line, r.Entry.Path, r.Err)
			}
		}
	}
	fmt.Fprintf(w, "================================\n")
}

// Runner generates and exports a deck per entry
type Runner struct {
	generator generation.Generator
	loader    *image.Loader
	opts      Options
	logger    *slog.Logger
}

// NewRunner creates a runner generating through generator
func NewRunner(generator generation.Generator, opts *Options) *Runner {
	if opts == nil {
		opts = DefaultOptions()
	}
	r := &Runner{
		generator: generator,
		loader:    image.NewLoader(nil),
		opts:      *opts,
		logger:    opts.Logger,
	}
	if r.opts.Parallel < 1 {
		r.opts.Parallel = 1
	}
	if r.opts.Format == "" {
		r.opts.Format = export.FormatAPKG
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Run processes every entry. A failing entry is recorded in the summary and
// does not stop the others; only cancellation of ctx ends the run early.
func (r *Runner) Run(ctx context.Context, entries []Entry) (*Summary, error) {
	if err := os.MkdirAll(r.opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	summary := &Summary{Results: make([]EntryResult, len(entries))}
	names := uniqueNames(entries)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Parallel)

	var progress sync.Mutex
	done := 0
	for i, entry := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				summary.Results[i] = EntryResult{Entry: entry, Err: err}
				return err
			}

			res := r.process(gctx, entry, names[i])
			summary.Results[i] = res

			progress.Lock()
			done++
			r.logger.Info("batch entry finished", "done", done, "total", len(entries),
				"path", entry.Path, "cards", res.Cards, "error", res.Err)
			progress.Unlock()

			// entry failures are reported, not propagated
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}

	err := g.Wait()
	return summary, err
}

func (r *Runner) process(ctx context.Context, entry Entry, name string) EntryResult {
	res := EntryResult{Entry: entry}

	req, err := r.request(ctx, entry)
	if err != nil {
		res.Err = err
		return res
	}

	var result *deck.Result
	controller := generation.NewController(r.generator, &generation.Options{
		Notifier: r.opts.Notifier,
		OnResult: func(rs *deck.Result) { result = rs },
		Timeout:  r.opts.Timeout,
		Logger:   r.logger.With("entry", name),
	})
	if _, err := controller.Submit(ctx, req); err != nil {
		res.Err = err
		return res
	}

	outputPath := filepath.Join(r.opts.OutputDir, fmt.Sprintf("%s.%s", name, r.opts.Format))
	n, err := export.Deck(ctx, result, &export.Options{
		OutputPath: outputPath,
		Format:     r.opts.Format,
		DeckName:   r.opts.DeckName + "::" + name,
		Speaker:    r.opts.Speaker,
		Logger:     r.logger,
	})
	if err != nil {
		res.Err = fmt.Errorf("export failed: %w", err)
		return res
	}

	res.Cards = n
	res.OutputPath = outputPath
	return res
}

func (r *Runner) request(ctx context.Context, entry Entry) (generation.Request, error) {
	switch entry.Kind {
	case generation.KindImage:
		upload, err := r.loader.Load(ctx, entry.Path)
		if err != nil {
			return generation.Request{}, err
		}
		return generation.ImageRequest(upload), nil
	default:
		data, err := os.ReadFile(entry.Path)
		if err != nil {
			return generation.Request{}, fmt.Errorf("failed to read text: %w", err)
		}
		return generation.TextRequest(string(data)), nil
	}
}

// uniqueNames gives every entry a distinct output name
func uniqueNames(entries []Entry) []string {
	names := make([]string, len(entries))
	seen := make(map[string]int)
	for i, e := range entries {
		name := e.Name()
		if name == "" {
			name = "deck"
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		names[i] = name
	}
	return names
}
