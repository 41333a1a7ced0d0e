package internal

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"biology", "biology"},
		{"cell biology", "cell_biology"},
		{"notes/ch1.txt", "notes_ch1_txt"},
		{"ябълка", "ябълка"},
		{"a-b_c", "a-b_c"},
	}

	for _, tt := range tests {
		if got := SanitizeFilename(tt.input); got != tt.expected {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestGenerateCardID(t *testing.T) {
	id := GenerateCardID("What is the powerhouse of the cell?")
	parts := strings.Split(id, "_")
	if len(parts) != 2 {
		t.Fatalf("GenerateCardID() = %q, want epoch_hash", id)
	}
	if len(parts[1]) != 8 {
		t.Errorf("hash part = %q, want 8 characters", parts[1])
	}
}

func TestWordCount(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"", 0},
		{"   ", 0},
		{"The mitochondria is the powerhouse of the cell.", 8},
		{"one\ttwo\nthree", 3},
	}

	for _, tt := range tests {
		if got := WordCount(tt.input); got != tt.expected {
			t.Errorf("WordCount(%q) = %d, want %d", tt.input, got, tt.expected)
		}
	}
}
