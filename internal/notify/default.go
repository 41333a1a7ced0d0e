package notify

import "sync"

var (
	defaultQueue *Queue
	defaultOnce  sync.Once
)

// Default returns the process-wide queue, creating it on first use.
// It lives for the rest of the process.
func Default() *Queue {
	defaultOnce.Do(func() {
		defaultQueue = New(nil)
	})
	return defaultQueue
}
