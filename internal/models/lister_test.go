package models

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func newModelServer(t *testing.T, ids ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models") {
			http.NotFound(w, r)
			return
		}
		data := make([]map[string]interface{}, 0, len(ids))
		for _, id := range ids {
			data = append(data, map[string]interface{}{"id": id, "object": "model", "owned_by": "openai"})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"object": "list", "data": data})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewLister(t *testing.T) {
	lister := NewLister("test-api-key", "")

	if lister == nil {
		t.Fatal("NewLister returned nil")
	}
	if lister.apiKey != "test-api-key" {
		t.Errorf("Expected API key 'test-api-key', got '%s'", lister.apiKey)
	}
	if lister.client == nil {
		t.Error("OpenAI client not initialized")
	}
}

func TestListNoAPIKey(t *testing.T) {
	lister := NewLister("", "")

	_, err := lister.List(context.Background())
	if err == nil {
		t.Fatal("Expected error for missing API key")
	}
	if !strings.Contains(err.Error(), "OpenAI API key not found") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestList(t *testing.T) {
	srv := newModelServer(t,
		"gpt-4o-mini", "gpt-3.5-turbo", "tts-1", "gpt-4o-mini-tts", "dall-e-3",
		"whisper-1", "gpt-4o-audio-preview", "gpt-4.1", "text-embedding-3-small")
	lister := NewLister("test-key", srv.URL+"/v1")

	catalog, err := lister.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if want := []string{"gpt-3.5-turbo", "gpt-4.1", "gpt-4o-mini"}; !reflect.DeepEqual(catalog.Chat, want) {
		t.Errorf("Chat = %v, want %v", catalog.Chat, want)
	}
	if want := []string{"gpt-4.1", "gpt-4o-mini"}; !reflect.DeepEqual(catalog.Vision, want) {
		t.Errorf("Vision = %v, want %v", catalog.Vision, want)
	}
	if want := []string{"gpt-4o-mini-tts", "tts-1"}; !reflect.DeepEqual(catalog.Speech, want) {
		t.Errorf("Speech = %v, want %v", catalog.Speech, want)
	}
	if catalog.Other != 4 {
		t.Errorf("Expected 4 other models, got %d", catalog.Other)
	}
}

func TestListAvailableModelsPrints(t *testing.T) {
	srv := newModelServer(t, "gpt-4o-mini")
	lister := NewLister("test-key", srv.URL+"/v1")

	var buf bytes.Buffer
	if err := lister.ListAvailableModels(context.Background(), &buf); err != nil {
		t.Fatalf("ListAvailableModels failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "  gpt-4o-mini\n") {
		t.Errorf("Model missing from output:\n%s", out)
	}
	if !strings.Contains(out, "Text-to-Speech Models (audio.openai_model):\n  none found") {
		t.Errorf("Expected empty speech section:\n%s", out)
	}
}
