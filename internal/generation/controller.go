package generation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"codeberg.org/snonux/studycards/internal/apperr"
	"codeberg.org/snonux/studycards/internal/deck"
	"codeberg.org/snonux/studycards/internal/image"
	"codeberg.org/snonux/studycards/internal/notify"
	"codeberg.org/snonux/studycards/internal/remote"
)

// ErrBusy is returned by Submit while another submission is outstanding.
// The rejected call has no other effect.
var ErrBusy = errors.New("generation already in progress")

// State is the lifecycle of a Controller
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSubmitting:
		return "Submitting"
	case StateSucceeded:
		return "Succeeded"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Generator is the part of remote.Client the controller uses
type Generator interface {
	GenerateFromText(ctx context.Context, text string) (*deck.Result, error)
	GenerateFromImage(ctx context.Context, img *image.Upload) (*deck.Result, error)
}

// Outcome records how the last submission ended
type Outcome struct {
	Kind   Kind
	State  State // StateSucceeded or StateFailed
	Result *deck.Result
	Err    error
	At     time.Time
}

// Options configures a Controller
type Options struct {
	Notifier notify.Pusher

	// OnResult receives every successful result, exactly once per submission
	OnResult func(*deck.Result)

	// Timeout bounds each collaborator call; zero means no limit
	Timeout time.Duration

	Logger *slog.Logger
}

// Controller runs one generation at a time. Succeeded and Failed are passed
// through on the way back to Idle, so a finished controller is always ready
// for the next submission.
type Controller struct {
	mu        sync.Mutex
	state     State
	last      *Outcome
	observers []func(State)

	generator Generator
	notifier  notify.Pusher
	onResult  func(*deck.Result)
	timeout   time.Duration
	logger    *slog.Logger
}

// NewController creates an idle controller
func NewController(generator Generator, opts *Options) *Controller {
	if opts == nil {
		opts = &Options{}
	}
	c := &Controller{
		generator: generator,
		notifier:  opts.Notifier,
		onResult:  opts.OnResult,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
	}
	if c.notifier == nil {
		c.notifier = notify.Default()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// OnChange registers fn to be called with every state the controller enters
func (c *Controller) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Busy reports whether a submission is outstanding
func (c *Controller) Busy() bool {
	return c.State() != StateIdle
}

// Outcome returns how the last submission ended, or nil before the first one
func (c *Controller) Outcome() *Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return nil
	}
	out := *c.last
	return &out
}

// Submit validates req, calls the collaborator and blocks until it answers.
//
// An invalid request pushes one error notification and leaves the
// controller idle without touching the network. A submission while another
// is outstanding, including from inside OnResult, returns ErrBusy and
// changes nothing. Otherwise exactly one success or error notification is
// pushed; on success the result goes to OnResult and is also returned.
func (c *Controller) Submit(ctx context.Context, req Request) (*deck.Result, error) {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		c.logger.Warn("rejected submission while another is in progress", "kind", req.Kind.String())
		return nil, ErrBusy
	}
	if err := req.Validate(); err != nil {
		c.mu.Unlock()
		c.logger.Debug("rejected invalid submission", "kind", req.Kind.String(), "error", err)
		c.notifier.Push(validationMessage(err), notify.SeverityError)
		return nil, err
	}
	c.state = StateSubmitting
	observers := c.observersLocked()
	c.mu.Unlock()
	notifyAll(observers, StateSubmitting)

	start := time.Now()
	result, err := c.dispatch(ctx, req)
	if err == nil && result == nil {
		err = &remote.Failure{Op: "generate-from-" + req.Kind.String(), Message: "empty response"}
	}

	outcome := &Outcome{Kind: req.Kind, Result: result, Err: err, At: time.Now()}
	if err != nil {
		outcome.State = StateFailed
		outcome.Result = nil
		c.logger.Warn("generation failed", "kind", req.Kind.String(), "elapsed", time.Since(start), "error", err)
		c.notifier.Push(req.failureMessage(), notify.SeverityError)
	} else {
		outcome.State = StateSucceeded
		if d := result.Cards.Duplicates(); d > 0 {
			c.logger.Warn("collaborator repeated questions, kept the last answer", "duplicates", d)
		}
		c.logger.Info("generation succeeded", "kind", req.Kind.String(), "cards", result.Len(),
			"elapsed", time.Since(start))
		c.notifier.Push(req.successMessage(), notify.SeveritySuccess)
	}

	c.mu.Lock()
	c.last = outcome
	c.state = outcome.State
	observers = c.observersLocked()
	c.mu.Unlock()
	notifyAll(observers, outcome.State)

	if err == nil && c.onResult != nil {
		c.onResult(result)
	}

	c.mu.Lock()
	c.state = StateIdle
	observers = c.observersLocked()
	c.mu.Unlock()
	notifyAll(observers, StateIdle)

	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Controller) dispatch(ctx context.Context, req Request) (*deck.Result, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	switch req.Kind {
	case KindImage:
		return c.generator.GenerateFromImage(ctx, req.Image)
	default:
		return c.generator.GenerateFromText(ctx, req.Text)
	}
}

func (c *Controller) observersLocked() []func(State) {
	return append([]func(State){}, c.observers...)
}

func notifyAll(observers []func(State), state State) {
	for _, fn := range observers {
		fn(state)
	}
}

func validationMessage(err error) string {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return err.Error()
}
