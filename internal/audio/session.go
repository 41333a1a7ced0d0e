package audio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"codeberg.org/snonux/studycards/internal/notify"
	"codeberg.org/snonux/studycards/internal/remote"
)

// MsgAudioFailed is the notification pushed when a clip cannot be produced or played
const MsgAudioFailed = "Failed to generate audio"

var (
	// ErrSuperseded is returned by a Request whose result arrived after a
	// newer request or a Cancel. The result was discarded unplayed.
	ErrSuperseded = errors.New("audio request superseded")

	// ErrClosed is returned by Request after Close
	ErrClosed = errors.New("audio session closed")
)

// State is the playback state of a Session
type State int

const (
	StateIdle State = iota
	StateRequesting
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRequesting:
		return "Requesting"
	case StatePlaying:
		return "Playing"
	default:
		return "Unknown"
	}
}

// Synthesizer produces clips; remote.Client satisfies it
type Synthesizer interface {
	SynthesizeAudio(ctx context.Context, text string) (*remote.Clip, error)
}

// SessionOptions configures a Session
type SessionOptions struct {
	Notifier notify.Pusher
	Player   Player
	Spool    *Spool
	Logger   *slog.Logger
}

// Session plays at most one clip at a time. A newer Request always wins:
// the older clip is stopped and its file released, and an older request
// that completes late is discarded before anything is acquired.
type Session struct {
	mu       sync.Mutex
	state    State
	text     string
	token    uint64
	handle   *Handle
	playback Playback
	closed   bool

	observers []func(State)

	synth    Synthesizer
	notifier notify.Pusher
	player   Player
	spool    *Spool
	logger   *slog.Logger
}

// NewSession creates an idle session
func NewSession(synth Synthesizer, opts *SessionOptions) *Session {
	if opts == nil {
		opts = &SessionOptions{}
	}
	s := &Session{
		synth:    synth,
		notifier: opts.Notifier,
		player:   opts.Player,
		spool:    opts.Spool,
		logger:   opts.Logger,
	}
	if s.notifier == nil {
		s.notifier = notify.Default()
	}
	if s.player == nil {
		s.player = NewExecPlayer("")
	}
	if s.spool == nil {
		s.spool = NewSpool("")
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// OnChange registers fn to be called with the new state after every transition
func (s *Session) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Text returns the text being requested or played, or "" when idle
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Request synthesizes text and starts playing it. It blocks until playback
// has started or the request failed; it does not wait for playback to end.
//
// A request for the text already being requested is a no-op. Anything else
// that is in flight or playing is released first. Failures push one error
// notification and leave the session idle.
func (s *Session) Request(ctx context.Context, text string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.state == StateRequesting && s.text == text {
		s.mu.Unlock()
		s.logger.Debug("audio already requested", "text_len", len(text))
		return nil
	}
	s.releaseLocked()
	s.token++
	token := s.token
	s.setStateLocked(StateRequesting, text)
	observers := s.observersLocked()
	s.mu.Unlock()
	notifyAll(observers, StateRequesting)

	clip, err := s.synth.SynthesizeAudio(ctx, text)

	s.mu.Lock()
	if token != s.token {
		s.mu.Unlock()
		s.logger.Debug("discarding superseded audio", "token", token)
		return ErrSuperseded
	}

	if err == nil {
		err = s.startLocked(token, clip)
	}
	if err != nil {
		s.setStateLocked(StateIdle, "")
		observers = s.observersLocked()
		s.mu.Unlock()

		notifyAll(observers, StateIdle)
		if errors.Is(err, context.Canceled) {
			s.logger.Debug("audio request cancelled")
			return err
		}
		s.logger.Warn("audio request failed", "error", err)
		s.notifier.Push(MsgAudioFailed, notify.SeverityError)
		return err
	}

	s.setStateLocked(StatePlaying, text)
	observers = s.observersLocked()
	s.mu.Unlock()
	notifyAll(observers, StatePlaying)
	return nil
}

// startLocked acquires the clip's file and starts the player
func (s *Session) startLocked(token uint64, clip *remote.Clip) error {
	handle, err := s.spool.Acquire(clip)
	if err != nil {
		return err
	}
	playback, err := s.player.Play(handle)
	if err != nil {
		if relErr := handle.Release(); relErr != nil {
			s.logger.Warn("failed to release audio", "error", relErr)
		}
		return fmt.Errorf("failed to start playback: %w", err)
	}

	s.handle = handle
	s.playback = playback
	go s.watch(token, playback)
	return nil
}

// watch returns the session to idle when playback ends on its own
func (s *Session) watch(token uint64, playback Playback) {
	<-playback.Done()

	s.mu.Lock()
	if token != s.token {
		// Superseded or cancelled; whoever did that already released everything
		s.mu.Unlock()
		return
	}
	s.releaseLocked()
	s.setStateLocked(StateIdle, "")
	observers := s.observersLocked()
	s.mu.Unlock()

	if err := playback.Err(); err != nil {
		s.logger.Warn("audio playback failed", "error", err)
		s.notifier.Push(MsgAudioFailed, notify.SeverityError)
	}
	notifyAll(observers, StateIdle)
}

// Cancel stops playback, releases the held clip and discards any in-flight
// request. It does nothing when idle.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	s.token++
	s.releaseLocked()
	s.setStateLocked(StateIdle, "")
	observers := s.observersLocked()
	s.mu.Unlock()

	notifyAll(observers, StateIdle)
}

// Close cancels the session and rejects further requests
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	s.token++
	s.releaseLocked()
	s.setStateLocked(StateIdle, "")
	observers := s.observersLocked()
	s.mu.Unlock()

	notifyAll(observers, StateIdle)
}

func (s *Session) releaseLocked() {
	if s.playback != nil {
		s.playback.Stop()
		s.playback = nil
	}
	if s.handle != nil {
		if err := s.handle.Release(); err != nil {
			s.logger.Warn("failed to release audio", "error", err)
		}
		s.handle = nil
	}
}

func (s *Session) setStateLocked(state State, text string) {
	s.state = state
	s.text = text
}

func (s *Session) observersLocked() []func(State) {
	return append([]func(State){}, s.observers...)
}

func notifyAll(observers []func(State), state State) {
	for _, fn := range observers {
		fn(state)
	}
}
