package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// CSVOptions configures the CSV export
type CSVOptions struct {
	OutputPath     string
	IncludeHeaders bool
	HTML           bool // render fields as HTML; Anki's "Allow HTML" must be on when importing
}

// DefaultCSVOptions returns sensible defaults
func DefaultCSVOptions() *CSVOptions {
	return &CSVOptions{
		OutputPath:     "flashcards.csv",
		IncludeHeaders: true,
		HTML:           true,
	}
}

// WriteCSV writes notes as Question,Answer,Audio rows
func WriteCSV(notes []Note, options *CSVOptions) error {
	if options == nil {
		options = DefaultCSVOptions()
	}

	file, err := os.Create(options.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if options.IncludeHeaders {
		if err := writer.Write([]string{"Question", "Answer", "Audio"}); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}

	var renderer *Renderer
	if options.HTML {
		renderer = NewRenderer()
	}

	for _, note := range notes {
		question, answer := note.Question, note.Answer
		if renderer != nil {
			question, answer = renderer.Render(question), renderer.Render(answer)
		}
		if err := writer.Write([]string{question, answer, formatAudioField(note.AudioFile)}); err != nil {
			return fmt.Errorf("failed to write card: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return file.Close()
}

// formatAudioField formats an audio file reference for Anki
func formatAudioField(audioFile string) string {
	if audioFile == "" {
		return ""
	}
	return fmt.Sprintf("[sound:%s]", filepath.Base(audioFile))
}
