package llm

import (
	"context"
	"fmt"
	"log/slog"

	"codeberg.org/snonux/studycards/internal/deck"
	"codeberg.org/snonux/studycards/internal/image"
)

// Generator is a language model that can write cards and read images
type Generator interface {
	// GenerateCards asks for count cards about text, in the order of the text
	GenerateCards(ctx context.Context, text string, count int) ([]deck.Card, error)

	// ExtractText returns the readable text in img
	ExtractText(ctx context.Context, img *image.Upload) (string, error)

	// Name identifies the backend and model for logs
	Name() string
}

// Config selects and configures the model backend
type Config struct {
	Backend string // "openai" or "gemini"

	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	GeminiKey   string
	GeminiModel string
}

// DefaultConfig returns the default backend configuration
func DefaultConfig() *Config {
	return &Config{
		Backend:     "openai",
		OpenAIModel: "gpt-4o-mini",
		GeminiModel: "gemini-2.5-flash",
	}
}

// NewGenerator creates the generator named by config.Backend
func NewGenerator(ctx context.Context, config *Config, logger *slog.Logger) (Generator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	switch config.Backend {
	case "openai":
		return NewOpenAIGenerator(config, logger)
	case "gemini":
		return NewGeminiGenerator(ctx, config, logger)
	default:
		return nil, fmt.Errorf("unknown model backend: %s", config.Backend)
	}
}
