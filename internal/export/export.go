package export

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"codeberg.org/snonux/studycards/internal"
	"codeberg.org/snonux/studycards/internal/apperr"
	"codeberg.org/snonux/studycards/internal/audio"
	"codeberg.org/snonux/studycards/internal/deck"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatAPKG Format = "apkg"
)

// DefaultDeckName names exported decks when none is configured
const DefaultDeckName = "Study Cards"

// Options configures Deck
type Options struct {
	OutputPath string
	Format     Format // inferred from OutputPath when empty
	DeckName   string
	Speaker    audio.Provider // nil exports without audio
	MediaDir   string         // where synthesized audio is kept, next to the output by default
	Logger     *slog.Logger
}

// FormatFromPath picks the format from a file extension, defaulting to apkg
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatAPKG
}

// Deck writes result to opts.OutputPath and returns the number of notes written
func Deck(ctx context.Context, result *deck.Result, opts *Options) (int, error) {
	if result.Len() == 0 {
		return 0, apperr.ErrEmptyState
	}
	if opts == nil || opts.OutputPath == "" {
		return 0, apperr.Validation("output", "no output path given")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	format := opts.Format
	if format == "" {
		format = FormatFromPath(opts.OutputPath)
	}
	deckName := opts.DeckName
	if deckName == "" {
		deckName = DefaultDeckName
	}

	notes := NotesFromResult(result)
	if opts.Speaker != nil {
		mediaDir := opts.MediaDir
		if mediaDir == "" {
			mediaDir = strings.TrimSuffix(opts.OutputPath, filepath.Ext(opts.OutputPath)) + "_media"
		}
		if err := AttachAudio(ctx, notes, opts.Speaker, mediaDir); err != nil {
			return 0, err
		}
	}

	switch format {
	case FormatCSV:
		if err := WriteCSV(notes, &CSVOptions{OutputPath: opts.OutputPath, IncludeHeaders: true, HTML: true}); err != nil {
			return 0, err
		}
	case FormatAPKG:
		gen := NewAPKGGenerator(deckName)
		for _, n := range notes {
			gen.AddNote(n)
		}
		if err := gen.Generate(opts.OutputPath); err != nil {
			return 0, err
		}
	default:
		return 0, apperr.Validation("format", "unknown export format %q", format)
	}

	logger.Info("exported deck", "path", opts.OutputPath, "format", format, "notes", len(notes),
		"audio", opts.Speaker != nil)
	return len(notes), nil
}

// DefaultFileName derives an output file name from the first question
func DefaultFileName(result *deck.Result, format Format) string {
	name := "flashcards"
	if result != nil {
		if c, ok := result.Cards.Card(0); ok {
			words := strings.Fields(strings.ToLower(c.Question))
			if len(words) > 5 {
				words = words[:5]
			}
			if s := strings.Trim(internal.SanitizeFilename(strings.Join(words, "_")), "_"); s != "" {
				name = s
			}
		}
	}
	return fmt.Sprintf("%s.%s", name, format)
}
