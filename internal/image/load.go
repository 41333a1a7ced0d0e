// Package image loads study images from local files or http(s) URLs.
package image

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/snonux/studycards/internal/apperr"
)

// LoadOptions configures how image inputs are read
type LoadOptions struct {
	MaxSizeBytes int64         // Maximum image size (0 = MaxUploadBytes)
	Timeout      time.Duration // Timeout for remote downloads
	HTTPClient   *http.Client
}

// DefaultLoadOptions returns sensible defaults for image inputs
func DefaultLoadOptions() *LoadOptions {
	return &LoadOptions{
		MaxSizeBytes: MaxUploadBytes,
		Timeout:      30 * time.Second,
	}
}

// Loader reads image inputs from local files or http(s) URLs
type Loader struct {
	options *LoadOptions
	client  *http.Client
}

// NewLoader creates a new image loader
func NewLoader(options *LoadOptions) *Loader {
	if options == nil {
		options = DefaultLoadOptions()
	}
	if options.MaxSizeBytes <= 0 {
		options.MaxSizeBytes = MaxUploadBytes
	}
	client := options.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: options.Timeout}
	}
	return &Loader{options: options, client: client}
}

// Load reads src, which is either a file path or an http(s) URL, and validates the result
func Load(ctx context.Context, src string) (*Upload, error) {
	return NewLoader(nil).Load(ctx, src)
}

// Load reads src, which is either a file path or an http(s) URL, and validates the result
func (l *Loader) Load(ctx context.Context, src string) (*Upload, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, apperr.Validation("image", "no image selected")
	}

	var (
		upload *Upload
		err    error
	)
	if u, perr := url.Parse(src); perr == nil && (u.Scheme == "http" || u.Scheme == "https") {
		upload, err = l.download(ctx, u)
	} else {
		upload, err = l.readFile(src)
	}
	if err != nil {
		return nil, err
	}

	if err := upload.Validate(); err != nil {
		return nil, err
	}
	return upload, nil
}

func (l *Loader) readFile(p string) (*Upload, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	data, err := l.readLimited(f)
	if err != nil {
		return nil, err
	}
	return NewUpload(filepath.Base(p), "", data), nil
}

func (l *Loader) download(ctx context.Context, u *url.URL) (*Upload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	data, err := l.readLimited(resp.Body)
	if err != nil {
		return nil, err
	}

	name := path.Base(u.Path)
	if name == "." || name == "/" {
		name = "image"
	}
	return NewUpload(name, resp.Header.Get("Content-Type"), data), nil
}

// readLimited reads at most MaxSizeBytes and fails if the input is larger
func (l *Loader) readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, l.options.MaxSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > l.options.MaxSizeBytes {
		return nil, apperr.Validation("image", "image exceeds maximum size of %d bytes", l.options.MaxSizeBytes)
	}
	return data, nil
}
