// Package remote is the typed wrapper around the flashcard collaborator:
// generate from text, extract-and-generate from an image, synthesize audio
// and fetch usage statistics. Every failure, whatever its cause, surfaces as
// a *Failure; blank input is rejected locally and never sent.
package remote
