// Package generation drives a single flashcard generation from user input to
// a result: local validation, one collaborator call, one notification, and
// a one-time hand-off of the result to whoever builds the review.
package generation
