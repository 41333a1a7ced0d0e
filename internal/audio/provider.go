package audio

import (
	"context"
	"fmt"
	"log/slog"

	"codeberg.org/snonux/studycards/internal/remote"
)

// Provider defines the interface for text-to-speech engines
type Provider interface {
	// Synthesize turns text into a playable clip
	Synthesize(ctx context.Context, text string) (*remote.Clip, error)

	// Name returns the provider name
	Name() string

	// IsAvailable checks if the provider is properly configured and available
	IsAvailable() error
}

// Config holds common configuration for audio providers
type Config struct {
	Provider string // "openai" or "espeak"

	// On-disk cache of synthesized clips; empty CacheDir disables it
	CacheDir    string
	EnableCache bool

	OpenAIKey         string
	OpenAIBaseURL     string  // Optional, for OpenAI compatible servers
	OpenAIModel       string  // "tts-1", "tts-1-hd" or "gpt-4o-mini-tts"
	OpenAIVoice       string  // "alloy", "echo", "fable", "nova", "onyx", "shimmer", ...
	OpenAISpeed       float64 // 0.25 to 4.0
	OpenAIInstruction string  // Voice instructions, gpt-4o-mini-tts only

	ESpeak *ESpeakConfig
}

// DefaultProviderConfig returns the default provider configuration
func DefaultProviderConfig() *Config {
	return &Config{
		Provider:          "openai",
		EnableCache:       true,
		OpenAIModel:       "gpt-4o-mini-tts",
		OpenAIVoice:       "alloy",
		OpenAISpeed:       1.0,
		OpenAIInstruction: "Read this study card answer clearly and at a calm pace for a student.",
		ESpeak:            DefaultESpeakConfig(),
	}
}

// NewProvider creates the provider named in config. An OpenAI provider gets
// espeak-ng as its fallback when espeak-ng is installed.
func NewProvider(config *Config, logger *slog.Logger) (Provider, error) {
	if config == nil {
		config = DefaultProviderConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	switch config.Provider {
	case "openai":
		if config.OpenAIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		primary, err := NewOpenAIProvider(config, logger)
		if err != nil {
			return nil, err
		}
		fallback, err := NewESpeakProvider(config.ESpeak)
		if err != nil {
			logger.Debug("no speech fallback available", "error", err)
			return primary, nil
		}
		return NewProviderWithFallback(primary, fallback, logger), nil

	case "espeak":
		return NewESpeakProvider(config.ESpeak)

	default:
		return nil, fmt.Errorf("unknown audio provider: %s", config.Provider)
	}
}

// ProviderWithFallback wraps a primary provider with a fallback option
type ProviderWithFallback struct {
	primary  Provider
	fallback Provider
	logger   *slog.Logger
}

// NewProviderWithFallback creates a provider that falls back to secondary if primary fails
func NewProviderWithFallback(primary, fallback Provider, logger *slog.Logger) Provider {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProviderWithFallback{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Synthesize tries the primary provider first and falls back to the secondary on error
func (p *ProviderWithFallback) Synthesize(ctx context.Context, text string) (*remote.Clip, error) {
	clip, err := p.primary.Synthesize(ctx, text)
	if err == nil {
		return clip, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	p.logger.Warn("primary speech provider failed, falling back",
		"primary", p.primary.Name(), "fallback", p.fallback.Name(), "error", err)
	return p.fallback.Synthesize(ctx, text)
}

// Name returns the provider name
func (p *ProviderWithFallback) Name() string {
	return fmt.Sprintf("%s (fallback: %s)", p.primary.Name(), p.fallback.Name())
}

// IsAvailable checks if at least one provider is available
func (p *ProviderWithFallback) IsAvailable() error {
	primaryErr := p.primary.IsAvailable()
	if primaryErr == nil {
		return nil
	}

	fallbackErr := p.fallback.IsAvailable()
	if fallbackErr == nil {
		return nil
	}

	return fmt.Errorf("both providers unavailable: primary=%v, fallback=%v",
		primaryErr, fallbackErr)
}
