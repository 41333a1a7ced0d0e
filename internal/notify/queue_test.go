package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

// fakeTimers records scheduled expiries so tests can fire them by hand
type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (f *fakeTimers) afterFunc(d time.Duration, fn func()) timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{d: d, fn: fn}
	f.timers = append(f.timers, t)
	return t
}

func (f *fakeTimers) fire(i int) {
	f.mu.Lock()
	t := f.timers[i]
	f.mu.Unlock()
	t.fn()
}

func newFakeQueue(opts *Options) (*Queue, *fakeTimers) {
	timers := &fakeTimers{}
	q := New(opts)
	q.afterFunc = timers.afterFunc
	return q, timers
}

func messages(ns []Notification) []string {
	var out []string
	for _, n := range ns {
		out = append(out, n.Message)
	}
	return out
}

func TestPushKeepsInsertionOrder(t *testing.T) {
	q, timers := newFakeQueue(nil)

	q.Success("first")
	q.Error("second")
	q.PushWithExpiry("third", SeverityInfo, Sticky)

	assert.Equal(t, []string{"first", "second", "third"}, messages(q.Active()))
	require.Len(t, timers.timers, 2)
	assert.Equal(t, DefaultExpiry, timers.timers[0].d)
}

func TestIDsAreUnique(t *testing.T) {
	q, _ := newFakeQueue(nil)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := q.Info("same")
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestDismissRemovesOnlyThatNotification(t *testing.T) {
	q, timers := newFakeQueue(nil)

	a := q.Error("Failed to generate flashcards")
	b := q.Error("Failed to generate flashcards")
	c := q.Error("Failed to generate flashcards")

	q.Dismiss(b)

	active := q.Active()
	require.Len(t, active, 2)
	assert.Equal(t, a, active[0].ID)
	assert.Equal(t, c, active[1].ID)

	// Only b's timer was cancelled
	assert.False(t, timers.timers[0].stopped)
	assert.True(t, timers.timers[1].stopped)
	assert.False(t, timers.timers[2].stopped)
}

func TestDismissUnknownIsNoop(t *testing.T) {
	q, _ := newFakeQueue(nil)
	q.Info("hello")

	changes := 0
	q.OnChange(func([]Notification) { changes++ })

	q.Dismiss("does-not-exist")
	q.Dismiss("")

	assert.Equal(t, 1, q.Len())
	assert.Zero(t, changes)
}

func TestExpiryRemovesOwnNotification(t *testing.T) {
	q, timers := newFakeQueue(nil)

	q.Info("one")
	q.Info("two")
	q.PushWithExpiry("sticky", SeverityWarning, Sticky)

	timers.fire(0)
	assert.Equal(t, []string{"two", "sticky"}, messages(q.Active()))

	// A timer that fires after its notification was dismissed does nothing
	q.Dismiss(q.Active()[0].ID)
	timers.fire(1)
	assert.Equal(t, []string{"sticky"}, messages(q.Active()))
	assert.True(t, q.Active()[0].IsSticky())
}

func TestMaxActiveDropsOldest(t *testing.T) {
	q, timers := newFakeQueue(&Options{MaxActive: 2})

	q.Info("a")
	q.Info("b")
	q.Info("c")

	assert.Equal(t, []string{"b", "c"}, messages(q.Active()))
	assert.True(t, timers.timers[0].stopped)
}

func TestOnChangeReceivesSnapshots(t *testing.T) {
	q, timers := newFakeQueue(nil)

	var got [][]string
	q.OnChange(func(ns []Notification) { got = append(got, messages(ns)) })

	id := q.Success("done")
	q.Warning("careful")
	q.Dismiss(id)
	timers.fire(1)

	assert.Equal(t, [][]string{
		{"done"},
		{"done", "careful"},
		{"careful"},
		nil,
	}, got)
}

func TestClearStopsTimers(t *testing.T) {
	q, timers := newFakeQueue(nil)
	q.Info("a")
	q.Info("b")

	q.Clear()

	assert.Zero(t, q.Len())
	for _, tm := range timers.timers {
		assert.True(t, tm.stopped)
	}
}

func TestSeverityString(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityInfo, "info"},
		{SeveritySuccess, "success"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{Severity(42), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.severity.String())
	}
}

func TestRealTimerExpires(t *testing.T) {
	q := New(&Options{DefaultExpiry: 10 * time.Millisecond})

	done := make(chan struct{})
	q.OnChange(func(ns []Notification) {
		if len(ns) == 0 {
			close(done)
		}
	})
	q.Info("short lived")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("notification did not expire")
	}
}

func TestDefaultIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestObserverMayChangeQueue(t *testing.T) {
	q, _ := newFakeQueue(nil)

	var got [][]string
	q.OnChange(func(ns []Notification) {
		got = append(got, messages(ns))
		if len(ns) == 1 && ns[0].Message == "transient" {
			q.Dismiss(ns[0].ID)
		}
	})

	q.Info("transient")

	assert.Equal(t, [][]string{{"transient"}, nil}, got)
	assert.Zero(t, q.Len())
}

func TestLastDeliveredSnapshotIsCurrent(t *testing.T) {
	q, timers := newFakeQueue(nil)

	var (
		mu   sync.Mutex
		last []string
	)
	q.OnChange(func(ns []Notification) {
		mu.Lock()
		last = messages(ns)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := q.Info("busy")
			q.Dismiss(id)
			q.Warning("kept")
		}()
	}
	wg.Wait()

	timers.mu.Lock()
	n := len(timers.timers)
	timers.mu.Unlock()
	require.Equal(t, 40, n)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, messages(q.Active()), last)
	assert.Len(t, last, 20)
}
