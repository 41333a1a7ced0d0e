package models

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Catalog is the set of usable models by purpose
type Catalog struct {
	Chat   []string // card generation
	Vision []string // card generation from images
	Speech []string // read aloud
	Other  int      // models not usable by studycards
}

// Lister lists available OpenAI models
type Lister struct {
	apiKey string
	client *openai.Client
}

// NewLister creates a lister; baseURL may be empty for the public API
func NewLister(apiKey, baseURL string) *Lister {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Lister{
		apiKey: apiKey,
		client: openai.NewClientWithConfig(config),
	}
}

// List fetches and categorizes the models
func (l *Lister) List(ctx context.Context) (*Catalog, error) {
	if l.apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key not found. Set OPENAI_API_KEY environment variable or configure in .studycards.yaml")
	}

	models, err := l.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	catalog := &Catalog{}
	for _, model := range models.Models {
		id := model.ID
		switch {
		case strings.Contains(id, "tts"):
			catalog.Speech = append(catalog.Speech, id)
		case isChat(id):
			catalog.Chat = append(catalog.Chat, id)
			if isVision(id) {
				catalog.Vision = append(catalog.Vision, id)
			}
		default:
			catalog.Other++
		}
	}

	sort.Strings(catalog.Chat)
	sort.Strings(catalog.Vision)
	sort.Strings(catalog.Speech)
	return catalog, nil
}

func isChat(id string) bool {
	if strings.Contains(id, "audio") || strings.Contains(id, "realtime") ||
		strings.Contains(id, "transcribe") || strings.Contains(id, "search") ||
		strings.Contains(id, "instruct") || strings.Contains(id, "image") {
		return false
	}
	return strings.HasPrefix(id, "gpt-") || strings.HasPrefix(id, "chatgpt-") ||
		strings.HasPrefix(id, "o1") || strings.HasPrefix(id, "o3") || strings.HasPrefix(id, "o4")
}

func isVision(id string) bool {
	return strings.HasPrefix(id, "gpt-4o") || strings.HasPrefix(id, "gpt-4.1") ||
		strings.HasPrefix(id, "gpt-4-turbo") || strings.HasPrefix(id, "gpt-5") ||
		strings.HasPrefix(id, "o3") || strings.HasPrefix(id, "o4") || strings.HasPrefix(id, "chatgpt-4o")
}

// Print writes the catalog as a human readable listing
func (c *Catalog) Print(w io.Writer) {
	fmt.Fprintln(w, "Available OpenAI Models:")
	section := func(title string, models []string) {
		fmt.Fprintf(w, "\n%s:\n", title)
		if len(models) == 0 {
			fmt.Fprintln(w, "  none found")
			return
		}
		for _, m := range models {
			fmt.Fprintf(w, "  %s\n", m)
		}
	}
	section("Card Generation Models (backend.openai_model)", c.Chat)
	section("Image Reading Models", c.Vision)
	section("Text-to-Speech Models (audio.openai_model)", c.Speech)
	if c.Other > 0 {
		fmt.Fprintf(w, "\n(%d other models not used by studycards)\n", c.Other)
	}
}

// ListAvailableModels fetches the catalog and prints it to w
func (l *Lister) ListAvailableModels(ctx context.Context, w io.Writer) error {
	catalog, err := l.List(ctx)
	if err != nil {
		return err
	}
	catalog.Print(w)
	return nil
}
