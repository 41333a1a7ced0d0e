package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/studycards/internal/image"
)

// chatServer answers chat completions with reply and hands each decoded request to inspect
func chatServer(t *testing.T, reply string, inspect func(map[string]interface{})) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode chat request: %v", err)
		}
		if inspect != nil {
			inspect(body)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  body["model"],
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]interface{}{"role": "assistant", "content": reply},
				},
			},
			"usage": map[string]interface{}{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestOpenAI(t *testing.T, srv *httptest.Server) *OpenAIGenerator {
	t.Helper()
	gen, err := NewOpenAIGenerator(&Config{
		OpenAIKey:     "test-key",
		OpenAIModel:   "gpt-4o-mini",
		OpenAIBaseURL: srv.URL + "/v1",
	}, nil)
	require.NoError(t, err)
	return gen
}

func TestNewOpenAIGeneratorNeedsKey(t *testing.T) {
	_, err := NewOpenAIGenerator(&Config{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OpenAI API key is required")
}

func TestOpenAIGenerateCards(t *testing.T) {
	var format interface{}
	srv := chatServer(t, `{"flashcards":[{"question":"What do mitochondria produce?","answer":"ATP"}]}`,
		func(body map[string]interface{}) { format = body["response_format"] })
	gen := newTestOpenAI(t, srv)

	cards, err := gen.GenerateCards(context.Background(), "Mitochondria produce ATP.", 3)
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "ATP", cards[0].Answer)
	assert.Equal(t, map[string]interface{}{"type": "json_object"}, format)
	assert.Equal(t, "openai/gpt-4o-mini", gen.Name())
}

func TestOpenAIExtractTextSendsDataURI(t *testing.T) {
	var url string
	srv := chatServer(t, "  Photosynthesis happens in chloroplasts.\n", func(body map[string]interface{}) {
		messages := body["messages"].([]interface{})
		parts := messages[0].(map[string]interface{})["content"].([]interface{})
		for _, p := range parts {
			part := p.(map[string]interface{})
			if part["type"] == "image_url" {
				url = part["image_url"].(map[string]interface{})["url"].(string)
			}
		}
	})
	gen := newTestOpenAI(t, srv)

	text, err := gen.ExtractText(context.Background(), image.NewUpload("notes.png", "image/png", []byte("png-bytes")))
	require.NoError(t, err)
	assert.Equal(t, "Photosynthesis happens in chloroplasts.", text)
	assert.Equal(t, "data:image/png;base64,cG5nLWJ5dGVz", url)
}

func TestOpenAIServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	t.Cleanup(srv.Close)
	gen := newTestOpenAI(t, srv)

	_, err := gen.GenerateCards(context.Background(), "text", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OpenAI API error")
}

func TestNewGenerator(t *testing.T) {
	_, err := NewGenerator(context.Background(), &Config{Backend: "parrot"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model backend: parrot")

	gen, err := NewGenerator(context.Background(), &Config{Backend: "openai", OpenAIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o-mini", gen.Name())

	_, err = NewGenerator(context.Background(), &Config{Backend: "gemini"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Gemini API key is required")
}
