package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"codeberg.org/snonux/studycards/internal"
	"codeberg.org/snonux/studycards/internal/apperr"
	"codeberg.org/snonux/studycards/internal/audio"
	"codeberg.org/snonux/studycards/internal/deck"
	"codeberg.org/snonux/studycards/internal/image"
	"codeberg.org/snonux/studycards/internal/remote"
	"codeberg.org/snonux/studycards/internal/stats"
)

// Failure details reported to callers, matching what the HTTP collaborator sends
const (
	DetailNoCards          = "Failed to generate flashcards. Text may be too short or invalid."
	DetailNoCardsFromImage = "Failed to generate flashcards from extracted text"
	DetailNoText           = "No text could be extracted from image"
	DetailNoAudio          = "Audio synthesis is not configured"
)

// ClientOptions are the optional collaborators of a Client
type ClientOptions struct {
	Speaker audio.Provider // nil disables SynthesizeAudio
	Stats   *stats.Store   // nil keeps no counters
	Logger  *slog.Logger
}

// Client runs generation in process. It satisfies remote.Client.
type Client struct {
	gen     Generator
	speaker audio.Provider
	stats   *stats.Store
	logger  *slog.Logger
}

var _ remote.Client = (*Client)(nil)

// NewClient creates a client generating with gen
func NewClient(gen Generator, opts *ClientOptions) *Client {
	if opts == nil {
		opts = &ClientOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		gen:     gen,
		speaker: opts.Speaker,
		stats:   opts.Stats,
		logger:  logger,
	}
}

// GenerateFromText turns text into a flashcard result
func (c *Client) GenerateFromText(ctx context.Context, text string) (*deck.Result, error) {
	const op = "generate-from-text"
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Validation("text", "must not be empty")
	}

	result, err := c.generate(ctx, op, text, DetailNoCards)
	if err != nil {
		return nil, err
	}
	c.record(ctx, func(ctx context.Context) error { return c.stats.RecordGeneration(ctx, result.Count) })
	return result, nil
}

// GenerateFromImage extracts the text of img and turns it into a flashcard result
func (c *Client) GenerateFromImage(ctx context.Context, img *image.Upload) (*deck.Result, error) {
	const op = "generate-from-image"
	if err := img.Validate(); err != nil {
		return nil, err
	}

	text, err := c.extract(ctx, op, img)
	if err != nil {
		return nil, err
	}

	result, err := c.generate(ctx, op, text, DetailNoCardsFromImage)
	if err != nil {
		return nil, err
	}
	c.record(ctx, func(ctx context.Context) error { return c.stats.RecordGeneration(ctx, result.Count) })
	return result, nil
}

// ExtractText returns only the recognized text of img
func (c *Client) ExtractText(ctx context.Context, img *image.Upload) (*remote.Extraction, error) {
	const op = "extract-text"
	if err := img.Validate(); err != nil {
		return nil, err
	}

	text, err := c.extract(ctx, op, img)
	if err != nil {
		return nil, err
	}
	return &remote.Extraction{Text: text, WordCount: internal.WordCount(text), Success: true}, nil
}

// SynthesizeAudio speaks text with the configured audio provider
func (c *Client) SynthesizeAudio(ctx context.Context, text string) (*remote.Clip, error) {
	const op = "synthesize-audio"
	if err := audio.ValidateSpeechText(text); err != nil {
		return nil, err
	}
	if c.speaker == nil {
		return nil, &remote.Failure{Op: op, Status: http.StatusServiceUnavailable, Message: DetailNoAudio}
	}

	clip, err := c.speaker.Synthesize(ctx, text)
	if err != nil {
		if f := cancelled(ctx, op); f != nil {
			return nil, f
		}
		return nil, &remote.Failure{Op: op, Status: http.StatusInternalServerError,
			Message: fmt.Sprintf("Error generating audio: %v", err), Err: err}
	}
	return clip, nil
}

// FetchStatistics returns the usage counters, all zero without a store
func (c *Client) FetchStatistics(ctx context.Context) (deck.Statistics, error) {
	if c.stats == nil {
		return deck.Statistics{}, nil
	}
	st, err := c.stats.Get(ctx)
	if err != nil {
		return deck.Statistics{}, &remote.Failure{Op: "fetch-statistics", Status: http.StatusInternalServerError,
			Message: "Error retrieving statistics", Err: err}
	}
	return st, nil
}

// ResetStatistics zeroes the usage counters
func (c *Client) ResetStatistics(ctx context.Context) error {
	if c.stats == nil {
		return nil
	}
	if err := c.stats.Reset(ctx); err != nil {
		return &remote.Failure{Op: "reset-statistics", Status: http.StatusInternalServerError,
			Message: "Error resetting statistics", Err: err}
	}
	return nil
}

// Health reports whether the client can serve requests
func (c *Client) Health(ctx context.Context) error {
	if c.gen == nil {
		return &remote.Failure{Op: "health", Status: http.StatusServiceUnavailable, Message: "no model backend"}
	}
	return nil
}

func (c *Client) generate(ctx context.Context, op, text, emptyDetail string) (*deck.Result, error) {
	words := internal.WordCount(text)
	count := CardCount(words)

	cards, err := c.gen.GenerateCards(ctx, text, count)
	if err != nil {
		if f := cancelled(ctx, op); f != nil {
			return nil, f
		}
		return nil, &remote.Failure{Op: op, Status: http.StatusInternalServerError,
			Message: fmt.Sprintf("Error generating flashcards: %v", err), Err: err}
	}
	if len(cards) == 0 {
		return nil, &remote.Failure{Op: op, Status: http.StatusBadRequest, Message: emptyDetail}
	}

	set := deck.NewSet(cards)
	answerWords := 0
	for _, card := range set.Cards() {
		answerWords += internal.WordCount(card.Answer)
	}

	c.logger.Info("generated flashcards", "backend", c.gen.Name(),
		"requested", count, "cards", set.Len(), "duplicates", set.Duplicates(), "words", words)

	return &deck.Result{
		Cards: set,
		Counters: deck.Counters{
			Count:              set.Len(),
			TextWordCount:      words,
			FlashcardWordCount: answerWords,
		},
	}, nil
}

func (c *Client) extract(ctx context.Context, op string, img *image.Upload) (string, error) {
	text, err := c.gen.ExtractText(ctx, img)
	if err != nil {
		if f := cancelled(ctx, op); f != nil {
			return "", f
		}
		return "", &remote.Failure{Op: op, Status: http.StatusInternalServerError,
			Message: fmt.Sprintf("Error processing image: %v", err), Err: err}
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", &remote.Failure{Op: op, Status: http.StatusBadRequest, Message: DetailNoText}
	}
	c.record(ctx, func(ctx context.Context) error { return c.stats.RecordImage(ctx) })
	return text, nil
}

// cancelled turns a done context into a Failure; deadlines carry 504
func cancelled(ctx context.Context, op string) *remote.Failure {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return &remote.Failure{Op: op, Status: http.StatusGatewayTimeout, Message: "request timed out", Err: err}
	default:
		return &remote.Failure{Op: op, Message: "request cancelled", Err: err}
	}
}

// record updates a counter; counter failures never fail the request
func (c *Client) record(ctx context.Context, fn func(context.Context) error) {
	if c.stats == nil {
		return
	}
	if err := fn(ctx); err != nil {
		c.logger.Warn("failed to update statistics", "error", err)
	}
}
