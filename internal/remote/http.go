package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"codeberg.org/snonux/studycards/internal/apperr"
	"codeberg.org/snonux/studycards/internal/deck"
	"codeberg.org/snonux/studycards/internal/image"
)

const maxErrorBody = 64 * 1024

// HTTPClient implements Client against the collaborator's REST API
type HTTPClient struct {
	baseURL    string
	healthURL  string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for the collaborator at config.BaseURL
func NewHTTPClient(config *Config, logger *slog.Logger) (*HTTPClient, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	u, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid collaborator URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid collaborator URL %q: scheme must be http or https", config.BaseURL)
	}

	failures := config.BreakerFailures
	if failures == 0 {
		failures = DefaultConfig().BreakerFailures
	}

	// The health probe lives at the server root, outside the API prefix
	health := *u
	health.Path, health.RawPath, health.RawQuery = "/health", "", ""

	c := &HTTPClient{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		healthURL:  health.String(),
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "collaborator",
		Timeout: config.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Caller cancellation and local validation say nothing about the collaborator
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || apperr.IsValidation(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return c, nil
}

type textRequest struct {
	Text string `json:"text"`
}

// GenerateFromText posts text to /flashcards/text
func (c *HTTPClient) GenerateFromText(ctx context.Context, text string) (*deck.Result, error) {
	const op = "generate-from-text"
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Validation("text", "must not be empty")
	}

	var result deck.Result
	err := c.call(op, func() error {
		return c.postJSON(ctx, op, "/flashcards/text", textRequest{Text: text}, &result)
	})
	if err != nil {
		return nil, err
	}
	if result.Cards == nil {
		return nil, &Failure{Op: op, Message: "response has no flashcards"}
	}
	return &result, nil
}

// GenerateFromImage uploads img to /ocr/extract-and-generate
func (c *HTTPClient) GenerateFromImage(ctx context.Context, img *image.Upload) (*deck.Result, error) {
	const op = "generate-from-image"
	if !img.Present() {
		return nil, apperr.Validation("image", "no image selected")
	}

	var result deck.Result
	err := c.call(op, func() error {
		return c.postImage(ctx, op, "/ocr/extract-and-generate", img, &result)
	})
	if err != nil {
		return nil, err
	}
	if result.Cards == nil {
		return nil, &Failure{Op: op, Message: "response has no flashcards"}
	}
	return &result, nil
}

// ExtractText uploads img to /ocr/extract and returns only the recognized text
func (c *HTTPClient) ExtractText(ctx context.Context, img *image.Upload) (*Extraction, error) {
	const op = "extract-text"
	if !img.Present() {
		return nil, apperr.Validation("image", "no image selected")
	}

	var extraction Extraction
	err := c.call(op, func() error {
		return c.postImage(ctx, op, "/ocr/extract", img, &extraction)
	})
	if err != nil {
		return nil, err
	}
	return &extraction, nil
}

// SynthesizeAudio posts text to /tts/generate-and-download and returns the raw audio
func (c *HTTPClient) SynthesizeAudio(ctx context.Context, text string) (*Clip, error) {
	const op = "synthesize-audio"
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Validation("text", "must not be empty")
	}

	var clip *Clip
	err := c.call(op, func() error {
		body, err := json.Marshal(textRequest{Text: text})
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		resp, err := c.do(ctx, op, http.MethodPost, "/tts/generate-and-download", "application/json", bytes.NewReader(body))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &Failure{Op: op, Status: resp.StatusCode, Message: "failed to read audio", Err: err}
		}
		if len(data) == 0 {
			return &Failure{Op: op, Status: resp.StatusCode, Message: "empty audio response"}
		}
		clip = &Clip{
			Text:        text,
			ContentType: resp.Header.Get("Content-Type"),
			Data:        data,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return clip, nil
}

// FetchStatistics reads the global counters from /stats/
func (c *HTTPClient) FetchStatistics(ctx context.Context) (deck.Statistics, error) {
	const op = "fetch-statistics"

	var stats deck.Statistics
	err := c.call(op, func() error {
		resp, err := c.do(ctx, op, http.MethodGet, "/stats/", "", nil)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		return decode(op, resp, &stats)
	})
	return stats, err
}

// ResetStatistics zeroes the global counters
func (c *HTTPClient) ResetStatistics(ctx context.Context) error {
	const op = "reset-statistics"

	return c.call(op, func() error {
		resp, err := c.do(ctx, op, http.MethodPost, "/stats/reset", "", nil)
		if err != nil {
			return err
		}
		resp.Body.Close()
		return nil
	})
}

// Health checks that the collaborator is up. It bypasses the circuit breaker
// so it can be used to probe an unavailable collaborator.
func (c *HTTPClient) Health(ctx context.Context) error {
	const op = "health"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.healthURL, nil)
	if err != nil {
		return &Failure{Op: op, Message: "failed to create request", Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Failure{Op: op, Message: "collaborator unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &Failure{Op: op, Status: resp.StatusCode, Message: errorDetail(resp.StatusCode, raw)}
	}
	return nil
}

// call runs fn through the circuit breaker and normalizes every error into a *Failure
func (c *HTTPClient) call(op string, fn func() error) error {
	start := time.Now()
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	elapsed := time.Since(start)
	if err == nil {
		c.logger.Debug("collaborator call succeeded", "op", op, "elapsed", elapsed)
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = &Failure{Op: op, Message: "service temporarily unavailable", Err: ErrBreakerOpen}
	}
	err = AsFailure(op, err)
	c.logger.Warn("collaborator call failed", "op", op, "elapsed", elapsed, "error", err)
	return err
}

func (c *HTTPClient) postJSON(ctx context.Context, op, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	resp, err := c.do(ctx, op, http.MethodPost, path, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(op, resp, out)
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (c *HTTPClient) postImage(ctx context.Context, op, path string, img *image.Upload, out interface{}) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	filename := img.Filename
	if filename == "" {
		filename = "upload"
	}

	// CreateFormFile would force application/octet-stream; the collaborator
	// checks the part's declared type.
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	header.Set("Content-Type", img.ContentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(img.Data); err != nil {
		return fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}

	resp, err := c.do(ctx, op, http.MethodPost, path, writer.FormDataContentType(), &buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decode(op, resp, out)
}

// do sends the request and turns transport errors and non-2xx statuses into failures
func (c *HTTPClient) do(ctx context.Context, op, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &Failure{Op: op, Message: "failed to create request", Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &Failure{Op: op, Message: "request cancelled", Err: ctxErr}
		}
		return nil, &Failure{Op: op, Message: "collaborator unreachable", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &Failure{Op: op, Status: resp.StatusCode, Message: errorDetail(resp.StatusCode, raw)}
	}
	return resp, nil
}

func decode(op string, resp *http.Response, out interface{}) error {
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Failure{Op: op, Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	return nil
}

// errorDetail extracts the collaborator's {"detail": "..."} message. Detail
// may also be a list of validation objects, in which case the status text is
// used instead.
func errorDetail(status int, raw []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && len(body.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(body.Detail, &detail); err == nil && detail != "" {
			return detail
		}
	}
	return http.StatusText(status)
}
