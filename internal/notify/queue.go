package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultExpiry is how long a notification stays visible unless told otherwise
	DefaultExpiry = 3 * time.Second

	// Sticky notifications stay until dismissed
	Sticky time.Duration = 0
)

// Notification is a single active notice
type Notification struct {
	ID        string
	Message   string
	Severity  Severity
	Expiry    time.Duration
	CreatedAt time.Time
}

// IsSticky reports whether the notification waits for an explicit dismissal
func (n Notification) IsSticky() bool {
	return n.Expiry <= 0
}

// Options configures a Queue
type Options struct {
	// DefaultExpiry is used by Push; zero means DefaultExpiry
	DefaultExpiry time.Duration

	// MaxActive caps the number of active notifications, dropping the oldest.
	// Zero means unbounded.
	MaxActive int

	Logger *slog.Logger
}

type timer interface {
	Stop() bool
}

// Queue is an ordered list of active notifications, oldest first
type Queue struct {
	mu        sync.Mutex
	items     []Notification
	timers    map[string]timer
	observers []func([]Notification)

	// delivery state, guarded by deliverMu
	deliverMu  sync.Mutex
	delivering bool
	dirty      bool

	defaultExpiry time.Duration
	maxActive     int
	logger        *slog.Logger

	// replaced in tests
	afterFunc func(time.Duration, func()) timer
	now       func() time.Time
}

// New creates an empty queue
func New(opts *Options) *Queue {
	if opts == nil {
		opts = &Options{}
	}
	q := &Queue{
		timers:        make(map[string]timer),
		defaultExpiry: opts.DefaultExpiry,
		maxActive:     opts.MaxActive,
		logger:        opts.Logger,
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
		now: time.Now,
	}
	if q.defaultExpiry <= 0 {
		q.defaultExpiry = DefaultExpiry
	}
	if q.logger == nil {
		q.logger = slog.Default()
	}
	return q
}

// OnChange registers fn to receive a snapshot of the active notifications
// after every change. fn runs on the goroutine that made the change, which
// for expiries is a timer goroutine. Deliveries never overlap and the last
// snapshot delivered is always the current state; changes made while another
// goroutine is delivering are coalesced into its next snapshot.
func (q *Queue) OnChange(fn func([]Notification)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.observers = append(q.observers, fn)
}

// Push adds a notification with the default expiry and returns its id
func (q *Queue) Push(message string, severity Severity) string {
	return q.PushWithExpiry(message, severity, q.defaultExpiry)
}

// PushWithExpiry adds a notification that is removed after expiry.
// An expiry of Sticky (or less) keeps it until dismissed.
func (q *Queue) PushWithExpiry(message string, severity Severity, expiry time.Duration) string {
	n := Notification{
		ID:        uuid.NewString(),
		Message:   message,
		Severity:  severity,
		Expiry:    expiry,
		CreatedAt: q.now(),
	}

	q.mu.Lock()
	q.items = append(q.items, n)
	if !n.IsSticky() {
		id := n.ID
		q.timers[id] = q.afterFunc(expiry, func() { q.expire(id) })
	}
	for q.maxActive > 0 && len(q.items) > q.maxActive {
		dropped := q.items[0]
		q.removeLocked(dropped.ID)
		q.logger.Debug("notification dropped", "id", dropped.ID, "max_active", q.maxActive)
	}
	q.mu.Unlock()

	q.logger.Debug("notification pushed", "id", n.ID, "severity", severity.String(), "expiry", expiry)
	q.publish()
	return n.ID
}

// Success pushes a success notification with the default expiry
func (q *Queue) Success(message string) string {
	return q.Push(message, SeveritySuccess)
}

// Error pushes an error notification with the default expiry
func (q *Queue) Error(message string) string {
	return q.Push(message, SeverityError)
}

// Warning pushes a warning notification with the default expiry
func (q *Queue) Warning(message string) string {
	return q.Push(message, SeverityWarning)
}

// Info pushes an info notification with the default expiry
func (q *Queue) Info(message string) string {
	return q.Push(message, SeverityInfo)
}

// Dismiss removes the notification with the given id. Unknown ids are ignored.
func (q *Queue) Dismiss(id string) {
	q.mu.Lock()
	if !q.removeLocked(id) {
		q.mu.Unlock()
		return
	}
	q.mu.Unlock()

	q.publish()
}

func (q *Queue) expire(id string) {
	q.mu.Lock()
	if !q.removeLocked(id) {
		q.mu.Unlock()
		return
	}
	q.mu.Unlock()

	q.logger.Debug("notification expired", "id", id)
	q.publish()
}

// Active returns the active notifications, oldest first
func (q *Queue) Active() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Notification(nil), q.items...)
}

// Len returns the number of active notifications
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear removes every notification and stops all pending timers
func (q *Queue) Clear() {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return
	}
	for id, t := range q.timers {
		t.Stop()
		delete(q.timers, id)
	}
	q.items = nil
	q.mu.Unlock()

	q.publish()
}

// removeLocked deletes exactly one notification and its timer
func (q *Queue) removeLocked(id string) bool {
	for i, n := range q.items {
		if n.ID != id {
			continue
		}
		q.items = append(q.items[:i:i], q.items[i+1:]...)
		if t, ok := q.timers[id]; ok {
			t.Stop()
			delete(q.timers, id)
		}
		return true
	}
	return false
}

func (q *Queue) snapshotLocked() ([]Notification, []func([]Notification)) {
	if len(q.observers) == 0 {
		return nil, nil
	}
	return append([]Notification(nil), q.items...), append([]func([]Notification){}, q.observers...)
}

// publish delivers the current snapshot to the observers. If another
// goroutine is already delivering, it is told to deliver once more instead,
// so snapshots reach observers in order and the newest one arrives last.
func (q *Queue) publish() {
	q.deliverMu.Lock()
	if q.delivering {
		q.dirty = true
		q.deliverMu.Unlock()
		return
	}
	q.delivering = true
	q.deliverMu.Unlock()

	for {
		q.mu.Lock()
		snapshot, observers := q.snapshotLocked()
		q.mu.Unlock()

		for _, fn := range observers {
			fn(snapshot)
		}

		q.deliverMu.Lock()
		if !q.dirty {
			q.delivering = false
			q.deliverMu.Unlock()
			return
		}
		q.dirty = false
		q.deliverMu.Unlock()
	}
}

// Pusher is the write side of a Queue, as used by the components that report outcomes
type Pusher interface {
	Push(message string, severity Severity) string
}

var _ Pusher = (*Queue)(nil)
