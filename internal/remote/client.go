package remote

import (
	"context"

	"codeberg.org/snonux/studycards/internal/deck"
	"codeberg.org/snonux/studycards/internal/image"
)

// Client is the collaborator contract consumed by the session components
type Client interface {
	// GenerateFromText turns study text into a flashcard result
	GenerateFromText(ctx context.Context, text string) (*deck.Result, error)

	// GenerateFromImage extracts text from an image and turns it into a flashcard result
	GenerateFromImage(ctx context.Context, img *image.Upload) (*deck.Result, error)

	// SynthesizeAudio returns playable audio for text
	SynthesizeAudio(ctx context.Context, text string) (*Clip, error)

	// FetchStatistics returns the global usage counters
	FetchStatistics(ctx context.Context) (deck.Statistics, error)
}

// Clip is synthesized audio as received. The bytes are opaque; ContentType is
// whatever the collaborator declared.
type Clip struct {
	Text        string
	ContentType string
	Data        []byte
}

// Extraction is the result of a text-only OCR call
type Extraction struct {
	Text      string `json:"extracted_text"`
	WordCount int    `json:"word_count"`
	Success   bool   `json:"success"`
}
