package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"codeberg.org/snonux/studycards/internal/deck"
	"codeberg.org/snonux/studycards/internal/generation"
	"codeberg.org/snonux/studycards/internal/image"
)

// Text generates cards from a text file, or standard input for "-"
func (p *Processor) Text(ctx context.Context, input string) error {
	text, err := p.readText(input)
	if err != nil {
		return err
	}
	return p.generate(ctx, generation.TextRequest(text))
}

// Image generates cards from the text in a local image or image URL
func (p *Processor) Image(ctx context.Context, source string) error {
	fmt.Fprintf(p.out, "Loading image %s...\n", source)
	upload, err := image.NewLoader(nil).Load(ctx, source)
	if err != nil {
		return err
	}
	return p.generate(ctx, generation.ImageRequest(upload))
}

func (p *Processor) readText(input string) (string, error) {
	if input == "" || input == "-" {
		data, err := io.ReadAll(p.in)
		if err != nil {
			return "", fmt.Errorf("failed to read standard input: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}
	return string(data), nil
}

// generate submits req through a controller and hands the result to review
func (p *Processor) generate(ctx context.Context, req generation.Request) error {
	controller := generation.NewController(p.client, &generation.Options{
		Notifier: p.queue,
		Timeout:  p.config.Remote.Timeout,
		Logger:   p.logger,
	})
	controller.OnChange(func(state generation.State) {
		if state == generation.StateSubmitting {
			fmt.Fprintf(p.out, "Generating flashcards from %s...\n", req.Kind)
		}
	})

	result, err := controller.Submit(ctx, req)
	if err != nil {
		return err
	}

	if p.flags.SaveFile != "" {
		if err := saveResult(p.flags.SaveFile, result); err != nil {
			return err
		}
		fmt.Fprintf(p.out, "Saved %d cards to %s\n", result.Len(), p.flags.SaveFile)
	}

	if p.flags.NoReview {
		p.printCards(result)
		return nil
	}
	return p.review(ctx, result)
}

func (p *Processor) printCards(result *deck.Result) {
	p.printCounters(result.Counters, result.Len())
	for i, card := range result.Cards.Cards() {
		fmt.Fprintf(p.out, "\n%d. Q: %s\n   A: %s\n", i+1, card.Question, card.Answer)
	}
}

func (p *Processor) printCounters(c deck.Counters, cards int) {
	fmt.Fprintf(p.out, "%d cards", cards)
	if c.TextWordCount > 0 {
		fmt.Fprintf(p.out, " from %d words (%d answer words, %d%%)", c.TextWordCount, c.FlashcardWordCount, c.Compression())
	}
	fmt.Fprintln(p.out)
}

// saveResult writes result as the JSON the collaborator returns
func saveResult(path string, result *deck.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

// loadResult reads a result saved by saveResult
func loadResult(path string) (*deck.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}
	var result deck.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse result file %s: %w", path, err)
	}
	return &result, nil
}
