package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/snonux/studycards/internal/apperr"
	"codeberg.org/snonux/studycards/internal/image"
)

func newTestClient(t *testing.T, handler http.Handler) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	config := DefaultConfig()
	config.BaseURL = srv.URL + "/api/v1"
	config.Timeout = 5 * time.Second
	client, err := NewHTTPClient(config, nil)
	require.NoError(t, err)
	return client
}

func TestNewHTTPClientRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"ftp://example.com", "://nope", "localhost:8000"} {
		config := DefaultConfig()
		config.BaseURL = raw
		_, err := NewHTTPClient(config, nil)
		assert.Error(t, err, raw)
	}
}

func TestGenerateFromText(t *testing.T) {
	var got textRequest
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/flashcards/text", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"flashcards":{"What is ATP?":"Energy currency","Where is ATP made?":"Mitochondria"},`+
			`"count":2,"text_word_count":8,"flashcard_word_count":7}`)
	}))

	result, err := client.GenerateFromText(context.Background(), "Mitochondria produce ATP for the cell.")
	require.NoError(t, err)
	assert.Equal(t, "Mitochondria produce ATP for the cell.", got.Text)
	require.Equal(t, 2, result.Len())

	first, ok := result.Cards.Card(0)
	require.True(t, ok)
	assert.Equal(t, "What is ATP?", first.Question)
	assert.Equal(t, 8, result.TextWordCount)
	assert.Equal(t, 7, result.FlashcardWordCount)
}

func TestGenerateFromTextBlankNeverHitsNetwork(t *testing.T) {
	var hits int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))

	for _, text := range []string{"", "   ", "\n\t"} {
		_, err := client.GenerateFromText(context.Background(), text)
		assert.True(t, apperr.IsValidation(err), "text %q", text)
	}
	_, err := client.SynthesizeAudio(context.Background(), " ")
	assert.True(t, apperr.IsValidation(err))
	_, err = client.GenerateFromImage(context.Background(), nil)
	assert.True(t, apperr.IsValidation(err))

	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestFailureCarriesDetail(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"detail":"Text must be at least 10 characters long"}`)
	}))

	_, err := client.GenerateFromText(context.Background(), "short")
	require.Error(t, err)

	var f *Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, http.StatusBadRequest, f.Status)
	assert.Equal(t, "Text must be at least 10 characters long", f.Message)
	assert.Equal(t, "generate-from-text", f.Op)
}

func TestFailureKinds(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
	}{
		{
			name: "validation list detail",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				io.WriteString(w, `{"detail":[{"loc":["body","text"],"msg":"field required"}]}`)
			},
			status: http.StatusUnprocessableEntity,
		},
		{
			name: "server error without body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
			status: http.StatusInternalServerError,
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"flashcards":`)
			},
			status: http.StatusOK,
		},
		{
			name: "missing flashcards member",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"count":0}`)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			_, err := client.GenerateFromText(context.Background(), "some text that is long enough")

			var f *Failure
			require.True(t, errors.As(err, &f), "got %v", err)
			assert.Equal(t, tt.status, f.Status)
			assert.NotEmpty(t, f.Error())
		})
	}
}

func TestUnreachableCollaborator(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	config := DefaultConfig()
	config.BaseURL = base
	client, err := NewHTTPClient(config, nil)
	require.NoError(t, err)

	_, err = client.FetchStatistics(context.Background())
	assert.True(t, IsFailure(err))
}

func TestGenerateFromImageMultipart(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/ocr/extract-and-generate", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)

		assert.Equal(t, `notes "page" 1.png`, header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		assert.Equal(t, png, data)

		io.WriteString(w, `{"flashcards":{"Q":"A"},"count":1,"text_word_count":3,"flashcard_word_count":2}`)
	}))

	result, err := client.GenerateFromImage(context.Background(), image.NewUpload(`notes "page" 1.png`, "", png))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Len())
}

func TestExtractText(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/ocr/extract", r.URL.Path)
		io.WriteString(w, `{"extracted_text":"hello world","word_count":2,"success":true}`)
	}))

	extraction, err := client.ExtractText(context.Background(), image.NewUpload("a.png", "image/png", []byte("x")))
	require.NoError(t, err)
	assert.Equal(t, "hello world", extraction.Text)
	assert.Equal(t, 2, extraction.WordCount)
	assert.True(t, extraction.Success)
}

func TestSynthesizeAudio(t *testing.T) {
	audio := []byte{0xff, 0xfb, 0x90, 0x00, 0x01}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tts/generate-and-download", r.URL.Path)
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(audio)
	}))

	clip, err := client.SynthesizeAudio(context.Background(), "Mitochondria")
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", clip.ContentType)
	assert.Equal(t, audio, clip.Data)
	assert.Equal(t, "Mitochondria", clip.Text)
}

func TestSynthesizeAudioEmptyBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
	}))

	_, err := client.SynthesizeAudio(context.Background(), "Mitochondria")
	assert.True(t, IsFailure(err))
}

func TestStatistics(t *testing.T) {
	var resets int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/stats/":
			io.WriteString(w, `{"total_flashcards_generated":12,"total_texts_processed":3,"total_images_processed":1}`)
		case "/api/v1/stats/reset":
			atomic.AddInt32(&resets, 1)
			io.WriteString(w, `{"message":"Statistics reset successfully"}`)
		default:
			http.NotFound(w, r)
		}
	}))

	stats, err := client.FetchStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, stats.TotalFlashcardsGenerated)
	assert.Equal(t, 3, stats.TotalTextsProcessed)
	assert.Equal(t, 1, stats.TotalImagesProcessed)

	require.NoError(t, client.ResetStatistics(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&resets))
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	config := DefaultConfig()
	config.BaseURL = srv.URL
	config.BreakerFailures = 2
	config.BreakerCooldown = time.Minute
	client, err := NewHTTPClient(config, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := client.FetchStatistics(context.Background())
		require.True(t, IsFailure(err))
	}

	_, err = client.FetchStatistics(context.Background())
	assert.ErrorIs(t, err, ErrBreakerOpen)
	assert.True(t, IsFailure(err))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestCancelledCallDoesNotTripBreaker(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	config := DefaultConfig()
	config.BaseURL = srv.URL
	config.BreakerFailures = 1
	client, err := NewHTTPClient(config, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.FetchStatistics(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, "closed", client.breaker.State().String())
}

func TestHealthUsesServerRoot(t *testing.T) {
	var path string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		io.WriteString(w, `{"status":"healthy"}`)
	}))

	require.NoError(t, client.Health(context.Background()))
	assert.Equal(t, "/health", path)
}
