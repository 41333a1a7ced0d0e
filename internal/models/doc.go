// Package models lists the OpenAI models available to the configured key,
// grouped by what studycards can use them for: card generation, image
// reading and spoken answers.
package models
