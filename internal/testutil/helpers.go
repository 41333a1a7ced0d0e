package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/snonux/studycards/internal/deck"
	"codeberg.org/snonux/studycards/internal/notify"
)

// NewResult builds a result from alternating question and answer strings.
// Counters are derived the way the collaborator reports them.
func NewResult(pairs ...string) *deck.Result {
	var cards []deck.Card
	words := 0
	for i := 0; i+1 < len(pairs); i += 2 {
		cards = append(cards, deck.Card{Question: pairs[i], Answer: pairs[i+1]})
		words += len(strings.Fields(pairs[i+1]))
	}
	set := deck.NewSet(cards)
	return &deck.Result{
		Cards: set,
		Counters: deck.Counters{
			Count:              set.Len(),
			FlashcardWordCount: words,
		},
	}
}

// NotificationRecorder collects every notification pushed to it
type NotificationRecorder struct {
	queue *notify.Queue
}

// NewNotificationRecorder returns a recorder backed by a sticky-only queue
// so nothing expires while a test inspects it.
func NewNotificationRecorder() *NotificationRecorder {
	return &NotificationRecorder{queue: notify.New(&notify.Options{DefaultExpiry: 1 << 62})}
}

// Queue returns the underlying queue to hand to components
func (r *NotificationRecorder) Queue() *notify.Queue {
	return r.queue
}

// Count returns how many notifications of severity are active
func (r *NotificationRecorder) Count(severity notify.Severity) int {
	n := 0
	for _, item := range r.queue.Active() {
		if item.Severity == severity {
			n++
		}
	}
	return n
}

// Messages returns the messages of all active notifications
func (r *NotificationRecorder) Messages() []string {
	var out []string
	for _, item := range r.queue.Active() {
		out = append(out, item.Message)
	}
	return out
}

// CreateTestFile creates a test file with content
func CreateTestFile(t *testing.T, path string, content []byte) {
	t.Helper()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("Failed to create directory for test file: %v", err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to create test file %s: %v", path, err)
	}
}

// AssertFileExists checks if a file exists
func AssertFileExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("Expected file to exist: %s", path)
	}
}

// AssertFileNotExists checks if a file does not exist
func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Stat(path); err == nil {
		t.Errorf("Expected file to not exist: %s", path)
	}
}

// AssertFileContains checks if a file contains a substring
func AssertFileContains(t *testing.T, path string, substring string) {
	t.Helper()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}

	if !strings.Contains(string(content), substring) {
		t.Errorf("File %s does not contain expected substring: %q", path, substring)
	}
}
