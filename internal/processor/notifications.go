package processor

import (
	"fmt"
	"io"
	"sync"

	"codeberg.org/snonux/studycards/internal/notify"
)

var severityMarks = map[notify.Severity]string{
	notify.SeverityInfo:    "ℹ",
	notify.SeveritySuccess: "✓",
	notify.SeverityWarning: "!",
	notify.SeverityError:   "✗",
}

// notificationPrinter writes each notification once, when it first becomes active
type notificationPrinter struct {
	mu   sync.Mutex
	w    io.Writer
	seen map[string]bool
}

func newNotificationPrinter(w io.Writer) *notificationPrinter {
	return &notificationPrinter{w: w, seen: make(map[string]bool)}
}

func (p *notificationPrinter) update(active []notify.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()

	current := make(map[string]bool, len(active))
	for _, n := range active {
		current[n.ID] = true
		if p.seen[n.ID] {
			continue
		}
		fmt.Fprintf(p.w, "  %s %s\n", severityMarks[n.Severity], n.Message)
	}
	p.seen = current
}
