// Package notify holds the queue of short-lived notices that the session
// components push to report outcomes. Each notice expires on its own timer
// unless it is sticky, and is removed by id only.
package notify
