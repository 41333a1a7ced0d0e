// Package llm is the direct backend: it turns study text into flashcards
// with a chat model (OpenAI or Gemini), reads text out of images with the
// same model's vision input, speaks answers through an audio.Provider and
// keeps usage counters in a stats.Store. Client implements remote.Client, so
// the session components and the collaborator server can run on it without
// a separate service.
package llm
