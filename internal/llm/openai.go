package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sashabaranov/go-openai"

	"codeberg.org/snonux/studycards/internal/deck"
	"codeberg.org/snonux/studycards/internal/image"
)

// OpenAIGenerator implements Generator with OpenAI chat completions
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIGenerator creates a generator for config.OpenAIModel
func NewOpenAIGenerator(config *Config, logger *slog.Logger) (*OpenAIGenerator, error) {
	if config.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientConfig := openai.DefaultConfig(config.OpenAIKey)
	if config.OpenAIBaseURL != "" {
		clientConfig.BaseURL = config.OpenAIBaseURL
	}

	model := config.OpenAIModel
	if model == "" {
		model = openai.GPT4oMini
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(clientConfig),
		model:  model,
		logger: logger,
	}, nil
}

// GenerateCards asks the chat model for cards in JSON mode
func (g *OpenAIGenerator) GenerateCards(ctx context.Context, text string, count int) ([]deck.Card, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: cardsPrompt(text, count)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	}

	content, err := g.complete(ctx, req)
	if err != nil {
		return nil, err
	}
	return parseCards(content)
}

// ExtractText sends the image inline as a data URI and asks for a transcription
func (g *OpenAIGenerator) ExtractText(ctx context.Context, img *image.Upload) (string, error) {
	dataURI := fmt.Sprintf("data:%s;base64,%s", img.ContentType, base64.StdEncoding.EncodeToString(img.Data))

	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: extractPrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURI, Detail: openai.ImageURLDetailHigh},
					},
				},
			},
		},
		Temperature: 0,
	}

	content, err := g.complete(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

func (g *OpenAIGenerator) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from OpenAI")
	}

	g.logger.Debug("chat completion", "model", g.model,
		"prompt_tokens", resp.Usage.PromptTokens, "completion_tokens", resp.Usage.CompletionTokens)
	return resp.Choices[0].Message.Content, nil
}

// Name returns the backend and model
func (g *OpenAIGenerator) Name() string {
	return "openai/" + g.model
}
