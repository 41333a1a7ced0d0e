// Package review tracks the position within one generated deck.
package review

import (
	"context"
	"log/slog"
	"sync"

	"codeberg.org/snonux/studycards/internal/apperr"
	"codeberg.org/snonux/studycards/internal/audio"
	"codeberg.org/snonux/studycards/internal/deck"
)

// View is what the current card looks like to the presentation layer
type View struct {
	Question string
	Answer   string
	Position int // zero based
	Total    int
	Revealed bool
}

// Session walks one deck. Navigation clamps at both ends and never fails;
// only an out-of-range jump is an error. An empty deck is a valid session
// whose Current reports apperr.ErrEmptyState.
type Session struct {
	mu        sync.Mutex
	cards     []deck.Card
	counters  deck.Counters
	position  int
	revealed  bool
	observers []func(View)

	audio  *audio.Session
	logger *slog.Logger
}

// New creates a session over result, positioned on the first card. A nil
// result gives an empty session. The session takes ownership of speaker and
// closes it in Close; speaker may be nil if reading aloud is not wanted.
func New(result *deck.Result, speaker *audio.Session, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{audio: speaker, logger: logger}
	if result != nil {
		s.cards = result.Cards.Cards()
		s.counters = result.Counters
	}
	return s
}

// OnChange registers fn to receive the current view after every move.
// It is not called for an empty session.
func (s *Session) OnChange(fn func(View)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Len returns the number of cards
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cards)
}

// Empty reports whether there is nothing to review
func (s *Session) Empty() bool {
	return s.Len() == 0
}

// Position returns the current zero based position
func (s *Session) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Counters returns the figures reported with the deck
func (s *Session) Counters() deck.Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}

// Compression returns generated words as a rounded percentage of input words
func (s *Session) Compression() int {
	return s.Counters().Compression()
}

// Cards returns all cards in review order
func (s *Session) Cards() []deck.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]deck.Card(nil), s.cards...)
}

// Current returns the card at the current position
func (s *Session) Current() (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cards) == 0 {
		return View{}, apperr.ErrEmptyState
	}
	return s.viewLocked(), nil
}

// Next moves forward one card. It reports false and does nothing on the last card.
func (s *Session) Next() bool {
	return s.move(func(pos, n int) int { return pos + 1 })
}

// Previous moves back one card. It reports false and does nothing on the first card.
func (s *Session) Previous() bool {
	return s.move(func(pos, n int) int { return pos - 1 })
}

// JumpTo moves directly to index. Indexes outside the deck are rejected
// with a validation error and leave the position unchanged.
func (s *Session) JumpTo(index int) error {
	s.mu.Lock()
	n := len(s.cards)
	if index < 0 || index >= n {
		s.mu.Unlock()
		if n == 0 {
			return apperr.Validation("index", "no cards to jump to")
		}
		return apperr.Validation("index", "%d is outside 0..%d", index, n-1)
	}
	s.mu.Unlock()

	s.move(func(int, int) int { return index })
	return nil
}

// Flip toggles between showing the question and showing the answer
func (s *Session) Flip() {
	s.mu.Lock()
	if len(s.cards) == 0 {
		s.mu.Unlock()
		return
	}
	s.revealed = !s.revealed
	view, observers := s.viewLocked(), s.observersLocked()
	s.mu.Unlock()

	notifyAll(observers, view)
}

// move applies step and clamps the result. A move to a different card hides the answer again.
func (s *Session) move(step func(pos, n int) int) bool {
	s.mu.Lock()
	n := len(s.cards)
	if n == 0 {
		s.mu.Unlock()
		return false
	}

	target := step(s.position, n)
	if target < 0 {
		target = 0
	}
	if target > n-1 {
		target = n - 1
	}
	if target == s.position {
		s.mu.Unlock()
		return false
	}

	s.position = target
	s.revealed = false
	view, observers := s.viewLocked(), s.observersLocked()
	s.mu.Unlock()

	notifyAll(observers, view)
	return true
}

// ReadCurrentAloud speaks the current answer. It blocks until playback
// starts; see audio.Session.Request.
func (s *Session) ReadCurrentAloud(ctx context.Context) error {
	view, err := s.Current()
	if err != nil {
		return err
	}
	if s.audio == nil {
		return apperr.Validation("audio", "reading aloud is not available")
	}
	s.logger.Debug("reading card aloud", "position", view.Position)
	return s.audio.Request(ctx, view.Answer)
}

// StopReading stops any audio started by ReadCurrentAloud
func (s *Session) StopReading() {
	if s.audio != nil {
		s.audio.Cancel()
	}
}

// Audio returns the owned audio session, which may be nil
func (s *Session) Audio() *audio.Session {
	return s.audio
}

// Close releases the audio session. The deck stays readable.
func (s *Session) Close() {
	if s.audio != nil {
		s.audio.Close()
	}
}

func (s *Session) viewLocked() View {
	card := s.cards[s.position]
	return View{
		Question: card.Question,
		Answer:   card.Answer,
		Position: s.position,
		Total:    len(s.cards),
		Revealed: s.revealed,
	}
}

func (s *Session) observersLocked() []func(View) {
	return append([]func(View){}, s.observers...)
}

func notifyAll(observers []func(View), view View) {
	for _, fn := range observers {
		fn(view)
	}
}
