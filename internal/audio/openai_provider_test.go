package audio

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
)

func newSpeechServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/audio/speech") {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(calls, 1)

		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode speech request: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("mp3:" + body["input"].(string)))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewOpenAIProvider(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
		errMsg  string
	}{
		{
			name:    "missing API key",
			config:  &Config{OpenAIKey: ""},
			wantErr: true,
			errMsg:  "OpenAI API key is required",
		},
		{
			name:   "valid config with cache",
			config: &Config{OpenAIKey: "test-key", EnableCache: true, CacheDir: t.TempDir()},
		},
		{
			name:   "valid config without cache",
			config: &Config{OpenAIKey: "test-key"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewOpenAIProvider(tt.config, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewOpenAIProvider() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if err.Error() != tt.errMsg {
					t.Errorf("NewOpenAIProvider() error = %v, want %v", err.Error(), tt.errMsg)
				}
				return
			}
			if provider.Name() != "openai" {
				t.Errorf("Name() = %v, want openai", provider.Name())
			}
			if err := provider.IsAvailable(); err != nil {
				t.Errorf("IsAvailable() unexpected error: %v", err)
			}
		})
	}
}

func TestOpenAIProviderSynthesizeUsesCache(t *testing.T) {
	var calls int32
	srv := newSpeechServer(t, &calls)

	config := DefaultProviderConfig()
	config.OpenAIKey = "test-key"
	config.OpenAIBaseURL = srv.URL + "/v1"
	config.CacheDir = t.TempDir()

	provider, err := NewOpenAIProvider(config, nil)
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error: %v", err)
	}

	for i := 0; i < 2; i++ {
		clip, err := provider.Synthesize(context.Background(), "  The mitochondria ")
		if err != nil {
			t.Fatalf("Synthesize() error: %v", err)
		}
		if string(clip.Data) != "mp3:The mitochondria" {
			t.Errorf("Synthesize() data = %q", clip.Data)
		}
		if clip.ContentType != "audio/mpeg" {
			t.Errorf("Synthesize() content type = %q", clip.ContentType)
		}
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected 1 API call with caching, got %d", got)
	}

	files, size, err := provider.GetCacheStats()
	if err != nil {
		t.Fatalf("GetCacheStats() error: %v", err)
	}
	if files != 1 || size == 0 {
		t.Errorf("GetCacheStats() = %d files, %d bytes", files, size)
	}

	if err := provider.ClearCache(); err != nil {
		t.Fatalf("ClearCache() error: %v", err)
	}
	if _, err := os.Stat(config.CacheDir); !os.IsNotExist(err) {
		t.Error("Expected cache directory to be removed")
	}
}

func TestOpenAIProviderRejectsEmptyText(t *testing.T) {
	var calls int32
	srv := newSpeechServer(t, &calls)

	provider, err := NewOpenAIProvider(&Config{OpenAIKey: "k", OpenAIBaseURL: srv.URL + "/v1"}, nil)
	if err != nil {
		t.Fatalf("NewOpenAIProvider() error: %v", err)
	}
	if _, err := provider.Synthesize(context.Background(), "   "); err == nil {
		t.Error("Synthesize() expected error for blank text")
	}
	if calls != 0 {
		t.Errorf("Expected no API call, got %d", calls)
	}
}

func TestGetCacheFilePath(t *testing.T) {
	base := &Config{OpenAIKey: "k", OpenAIModel: "tts-1", OpenAIVoice: "alloy", OpenAISpeed: 1.0}
	p1 := &OpenAIProvider{config: base, cacheDir: "/cache"}

	other := *base
	other.OpenAIVoice = "nova"
	p2 := &OpenAIProvider{config: &other, cacheDir: "/cache"}

	path := p1.getCacheFilePath("hello")
	if !strings.HasPrefix(path, "/cache/") || !strings.HasSuffix(path, ".mp3") {
		t.Errorf("unexpected cache path %s", path)
	}
	if path != p1.getCacheFilePath(" hello ") {
		t.Error("surrounding whitespace should not change the cache key")
	}
	if path == p1.getCacheFilePath("world") {
		t.Error("different text should produce different cache paths")
	}
	if path == p2.getCacheFilePath("hello") {
		t.Error("different voice should produce different cache paths")
	}
}
