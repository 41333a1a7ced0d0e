package batch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/snonux/studycards/internal/generation"
)

func TestReadBatchFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Entry
	}{
		{
			name:    "prefixed entries",
			content: "text:notes/ch1.txt\nimage: scans/page1.png\n",
			want: []Entry{
				{Kind: generation.KindText, Path: "notes/ch1.txt", Line: 1},
				{Kind: generation.KindImage, Path: "scans/page1.png", Line: 2},
			},
		},
		{
			name:    "kind from extension",
			content: "ch1.md\npage.JPG\nhttps://example.com/board.webp\n",
			want: []Entry{
				{Kind: generation.KindText, Path: "ch1.md", Line: 1},
				{Kind: generation.KindImage, Path: "page.JPG", Line: 2},
				{Kind: generation.KindImage, Path: "https://example.com/board.webp", Line: 3},
			},
		},
		{
			name:    "comments and blank lines",
			content: "# biology\n\n  ch1.txt  \r\n# end\n",
			want: []Entry{
				{Kind: generation.KindText, Path: "ch1.txt", Line: 3},
			},
		},
		{
			name:    "text prefix wins over extension",
			content: "text:transcript.png\n",
			want: []Entry{
				{Kind: generation.KindText, Path: "transcript.png", Line: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "batch.txt")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			entries, err := ReadBatchFile(path)
			if err != nil {
				t.Fatalf("ReadBatchFile failed: %v", err)
			}
			if len(entries) != len(tt.want) {
				t.Fatalf("Expected %d entries, got %d: %+v", len(tt.want), len(entries), entries)
			}
			for i, want := range tt.want {
				if !strings.HasPrefix(want.Path, "http") {
					want.Path = filepath.Join(dir, want.Path)
				}
				if entries[i] != want {
					t.Errorf("Entry %d: got %+v, want %+v", i, entries[i], want)
				}
			}
		})
	}
}

func TestReadBatchFileAbsolutePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.txt")
	abs := filepath.Join(t.TempDir(), "elsewhere.txt")
	if err := os.WriteFile(path, []byte("text:"+abs+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	entries, err := ReadBatchFile(path)
	if err != nil {
		t.Fatalf("ReadBatchFile failed: %v", err)
	}
	if entries[0].Path != abs {
		t.Errorf("Expected absolute path kept, got %s", entries[0].Path)
	}
}

func TestReadBatchFileErrors(t *testing.T) {
	if _, err := ReadBatchFile("/nonexistent/batch.txt"); err == nil {
		t.Error("Expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "batch.txt")
	if err := os.WriteFile(path, []byte("ch1.txt\nimage:   \n"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := ReadBatchFile(path)
	if err == nil || !strings.Contains(err.Error(), ":2:") {
		t.Errorf("Expected error naming line 2, got %v", err)
	}
}

func TestEntryName(t *testing.T) {
	tests := map[string]string{
		"/notes/chapter1.txt":              "chapter1",
		"https://example.com/a/board.webp": "board",
		"plain":                            "plain",
	}
	for path, want := range tests {
		if got := (Entry{Path: path}).Name(); got != want {
			t.Errorf("Name(%q) = %q, want %q", path, got, want)
		}
	}
}
