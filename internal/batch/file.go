package batch

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/snonux/studycards/internal/generation"
)

// Entry is one input of a batch file
type Entry struct {
	Kind generation.Kind
	Path string
	Line int
}

// Name is the entry's file name without extension, used for the exported deck
func (e Entry) Name() string {
	base := filepath.Base(e.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".bmp": true,
}

// ReadBatchFile reads entries from a batch file.
// Supported line formats:
//   - "text:notes/chapter1.txt"  study text from a file
//   - "image:scans/page1.png"    an image, local path or http(s) URL
//   - "notes/chapter1.md"        kind decided by the file extension
//
// Blank lines and lines starting with # are skipped. Relative paths are
// resolved against the batch file's directory.
func ReadBatchFile(filename string) ([]Entry, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	defer file.Close()

	baseDir := filepath.Dir(filename)
	var entries []Entry

	scanner := bufio.NewScanner(file)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		entry, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", filename, lineNo, err)
		}
		entry.Line = lineNo
		if !isURL(entry.Path) && !filepath.IsAbs(entry.Path) {
			entry.Path = filepath.Join(baseDir, entry.Path)
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}
	return entries, nil
}

func parseLine(line string) (Entry, error) {
	if prefix, rest, ok := strings.Cut(line, ":"); ok {
		switch strings.ToLower(strings.TrimSpace(prefix)) {
		case "text":
			return entryFor(generation.KindText, rest)
		case "image":
			return entryFor(generation.KindImage, rest)
		}
	}

	kind := generation.KindText
	if isURL(line) || imageExtensions[strings.ToLower(filepath.Ext(line))] {
		kind = generation.KindImage
	}
	return Entry{Kind: kind, Path: line}, nil
}

func entryFor(kind generation.Kind, path string) (Entry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Entry{}, fmt.Errorf("missing path after %s:", kind)
	}
	return Entry{Kind: kind, Path: path}, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
