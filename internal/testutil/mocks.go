package testutil

import (
	"context"
	"fmt"
	"sync"

	"codeberg.org/snonux/studycards/internal/audio"
	"codeberg.org/snonux/studycards/internal/deck"
	"codeberg.org/snonux/studycards/internal/image"
	"codeberg.org/snonux/studycards/internal/remote"
)

// Gate holds a fake call until released
type Gate struct {
	entered     chan struct{}
	release     chan struct{}
	enterOnce   sync.Once
	releaseOnce sync.Once
}

func newGate() *Gate {
	return &Gate{entered: make(chan struct{}), release: make(chan struct{})}
}

// Entered is closed once a call has reached the gate
func (g *Gate) Entered() <-chan struct{} {
	return g.entered
}

// Release lets the held call continue
func (g *Gate) Release() {
	g.releaseOnce.Do(func() { close(g.release) })
}

func (g *Gate) wait(ctx context.Context) error {
	g.enterOnce.Do(func() { close(g.entered) })
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FakeClient implements remote.Client with canned answers
type FakeClient struct {
	mu sync.Mutex

	TextResult  *deck.Result
	TextErr     error
	ImageResult *deck.Result
	ImageErr    error
	AudioErr    error
	Stats       deck.Statistics
	StatsErr    error

	Calls []string

	generationGate *Gate
	audioGates     map[string]*Gate
}

var _ remote.Client = (*FakeClient)(nil)

// HoldGeneration makes the next generation calls wait on the returned gate
func (f *FakeClient) HoldGeneration() *Gate {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generationGate = newGate()
	return f.generationGate
}

// HoldAudio makes synthesis of text wait on the returned gate
func (f *FakeClient) HoldAudio(text string) *Gate {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.audioGates == nil {
		f.audioGates = make(map[string]*Gate)
	}
	g := newGate()
	f.audioGates[text] = g
	return g
}

// CallCount returns how many calls of any kind were made
func (f *FakeClient) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

func (f *FakeClient) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
}

func (f *FakeClient) GenerateFromText(ctx context.Context, text string) (*deck.Result, error) {
	f.record("text: " + text)
	if err := f.waitGeneration(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TextErr != nil {
		return nil, f.TextErr
	}
	return f.TextResult, nil
}

func (f *FakeClient) GenerateFromImage(ctx context.Context, img *image.Upload) (*deck.Result, error) {
	f.record("image: " + img.Filename)
	if err := f.waitGeneration(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ImageErr != nil {
		return nil, f.ImageErr
	}
	return f.ImageResult, nil
}

func (f *FakeClient) SynthesizeAudio(ctx context.Context, text string) (*remote.Clip, error) {
	f.record("audio: " + text)

	f.mu.Lock()
	gate := f.audioGates[text]
	f.mu.Unlock()
	if gate != nil {
		if err := gate.wait(ctx); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AudioErr != nil {
		return nil, f.AudioErr
	}
	return &remote.Clip{Text: text, ContentType: "audio/mpeg", Data: []byte("mp3:" + text)}, nil
}

func (f *FakeClient) FetchStatistics(ctx context.Context) (deck.Statistics, error) {
	f.record("stats")

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Stats, f.StatsErr
}

func (f *FakeClient) waitGeneration(ctx context.Context) error {
	f.mu.Lock()
	gate := f.generationGate
	f.mu.Unlock()
	if gate == nil {
		return nil
	}
	return gate.wait(ctx)
}

// FakePlayer implements audio.Player without producing sound
type FakePlayer struct {
	mu        sync.Mutex
	PlayErr   error
	playbacks []*FakePlayback
}

var _ audio.Player = (*FakePlayer)(nil)

func (p *FakePlayer) Play(h *audio.Handle) (audio.Playback, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.PlayErr != nil {
		return nil, p.PlayErr
	}
	pb := &FakePlayback{Handle: h, done: make(chan struct{})}
	p.playbacks = append(p.playbacks, pb)
	return pb, nil
}

// Playbacks returns every playback started so far
func (p *FakePlayer) Playbacks() []*FakePlayback {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*FakePlayback(nil), p.playbacks...)
}

// Texts returns the texts of every clip that was played, in order
func (p *FakePlayer) Texts() []string {
	var texts []string
	for _, pb := range p.Playbacks() {
		texts = append(texts, pb.Handle.Text())
	}
	return texts
}

// Last returns the most recent playback or nil
func (p *FakePlayer) Last() *FakePlayback {
	pbs := p.Playbacks()
	if len(pbs) == 0 {
		return nil
	}
	return pbs[len(pbs)-1]
}

// FakePlayback is a playback that ends when the test says so
type FakePlayback struct {
	Handle *audio.Handle

	mu      sync.Mutex
	done    chan struct{}
	err     error
	stopped bool
	once    sync.Once
}

func (pb *FakePlayback) Done() <-chan struct{} {
	return pb.done
}

func (pb *FakePlayback) Err() error {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.err
}

func (pb *FakePlayback) Stop() {
	pb.mu.Lock()
	pb.stopped = true
	pb.mu.Unlock()
	pb.once.Do(func() { close(pb.done) })
}

// Stopped reports whether Stop was called
func (pb *FakePlayback) Stopped() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.stopped
}

// Finish ends playback as if the clip had played out, with err as the player's failure
func (pb *FakePlayback) Finish(err error) {
	pb.mu.Lock()
	pb.err = err
	pb.mu.Unlock()
	pb.once.Do(func() { close(pb.done) })
}

// FakeSpeaker implements audio.Provider and counts syntheses
type FakeSpeaker struct {
	mu    sync.Mutex
	Err   error
	Texts []string
}

var _ audio.Provider = (*FakeSpeaker)(nil)

func (s *FakeSpeaker) Synthesize(ctx context.Context, text string) (*remote.Clip, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Texts = append(s.Texts, text)
	if s.Err != nil {
		return nil, s.Err
	}
	return &remote.Clip{Text: text, ContentType: "audio/mpeg", Data: []byte(fmt.Sprintf("speech:%s", text))}, nil
}

func (s *FakeSpeaker) Name() string {
	return "fake"
}

func (s *FakeSpeaker) IsAvailable() error {
	return nil
}
