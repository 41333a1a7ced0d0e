package audio

import (
	"fmt"
	"mime"
	"os"
	"sync"
	"sync/atomic"

	"codeberg.org/snonux/studycards/internal/remote"
)

// Spool writes clips to temporary files that players can open
type Spool struct {
	dir string
}

// NewSpool creates a spool in dir, or in the system temp directory when dir is empty
func NewSpool(dir string) *Spool {
	return &Spool{dir: dir}
}

// Acquire writes clip to a new temporary file. The caller owns the returned
// handle and must release it exactly once.
func (s *Spool) Acquire(clip *remote.Clip) (*Handle, error) {
	if clip == nil || len(clip.Data) == 0 {
		return nil, fmt.Errorf("no audio data")
	}
	if s.dir != "" {
		if err := os.MkdirAll(s.dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create spool directory: %w", err)
		}
	}

	f, err := os.CreateTemp(s.dir, "studycards-*"+extensionFor(clip.ContentType))
	if err != nil {
		return nil, fmt.Errorf("failed to create audio file: %w", err)
	}
	if _, err := f.Write(clip.Data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("failed to write audio file: %w", err)
	}

	return &Handle{path: f.Name(), text: clip.Text}, nil
}

// Handle is a spooled clip on disk plus the text it was synthesized from
type Handle struct {
	path     string
	text     string
	once     sync.Once
	released atomic.Bool
	err      error
}

// Path returns the file the clip was written to
func (h *Handle) Path() string {
	return h.path
}

// Text returns the text the clip speaks
func (h *Handle) Text() string {
	return h.text
}

// Release deletes the spooled file. Later calls do nothing and return the first result.
func (h *Handle) Release() error {
	h.once.Do(func() {
		if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
			h.err = fmt.Errorf("failed to remove audio file: %w", err)
		}
		h.released.Store(true)
	})
	return h.err
}

// Released reports whether Release has run
func (h *Handle) Released() bool {
	return h.released.Load()
}

// extensionFor names the spool file after the declared type so players that
// go by extension pick the right decoder. The bytes are never inspected.
func extensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch mediaType {
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	case "audio/opus":
		return ".opus"
	case "audio/aac":
		return ".aac"
	case "audio/flac":
		return ".flac"
	default:
		return ""
	}
}
