package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"codeberg.org/snonux/studycards/internal"
	"codeberg.org/snonux/studycards/internal/audio"
	"codeberg.org/snonux/studycards/internal/deck"
)

// Note is one exported card
type Note struct {
	ID        string // stable per export, used for the Anki guid and media names
	Question  string
	Answer    string
	AudioFile string // optional spoken answer
}

// NotesFromResult converts a generated result into notes in review order
func NotesFromResult(result *deck.Result) []Note {
	if result == nil {
		return nil
	}
	cards := result.Cards.Cards()
	notes := make([]Note, 0, len(cards))
	for _, c := range cards {
		notes = append(notes, Note{
			ID:       internal.GenerateCardID(c.Question),
			Question: c.Question,
			Answer:   c.Answer,
		})
	}
	return notes
}

// AttachAudio synthesizes each answer with speaker into dir and records the
// file on the note. Notes that already have audio are left alone.
func AttachAudio(ctx context.Context, notes []Note, speaker audio.Provider, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create media directory: %w", err)
	}

	for i := range notes {
		if notes[i].AudioFile != "" {
			continue
		}
		clip, err := speaker.Synthesize(ctx, notes[i].Answer)
		if err != nil {
			return fmt.Errorf("failed to synthesize audio for %q: %w", notes[i].Question, err)
		}

		path := filepath.Join(dir, notes[i].ID+audioExtension(clip.ContentType))
		if err := os.WriteFile(path, clip.Data, 0644); err != nil {
			return fmt.Errorf("failed to write audio file: %w", err)
		}
		notes[i].AudioFile = path
	}
	return nil
}

func audioExtension(contentType string) string {
	switch contentType {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/ogg":
		return ".ogg"
	default:
		return ".mp3"
	}
}
