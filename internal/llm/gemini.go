package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"codeberg.org/snonux/studycards/internal/deck"
	"codeberg.org/snonux/studycards/internal/image"
)

// GeminiGenerator implements Generator with the Gemini API
type GeminiGenerator struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiGenerator creates a generator for config.GeminiModel
func NewGeminiGenerator(ctx context.Context, config *Config, logger *slog.Logger) (*GeminiGenerator, error) {
	if config.GeminiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.GeminiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.GeminiModel
	if model == "" {
		model = DefaultConfig().GeminiModel
	}

	return &GeminiGenerator{client: client, model: model, logger: logger}, nil
}

// GenerateCards asks Gemini for cards with a JSON response type
func (g *GeminiGenerator) GenerateCards(ctx context.Context, text string, count int) ([]deck.Card, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(cardsPrompt(text, count)), config)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}
	return parseCards(resp.Text())
}

// ExtractText sends the image bytes inline with a transcription prompt
func (g *GeminiGenerator) ExtractText(ctx context.Context, img *image.Upload) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(img.Data, img.ContentType),
			genai.NewPartFromText(extractPrompt),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	g.logger.Debug("gemini extraction", "model", g.model)
	return strings.TrimSpace(resp.Text()), nil
}

// Name returns the backend and model
func (g *GeminiGenerator) Name() string {
	return "gemini/" + g.model
}
