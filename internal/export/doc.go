// Package export writes generated flashcards to files Anki can import: a
// CSV for the import dialog or a complete .apkg package. Answers are written
// as sanitized HTML rendered from Markdown, and may carry spoken audio.
package export
