// Package gui is the fyne desktop front end. It only observes the
// generation, review, audio and notification components through their
// OnChange callbacks and marshals every update onto the UI goroutine with
// fyne.Do.
package gui
