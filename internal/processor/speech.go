package processor

import (
	"context"

	"codeberg.org/snonux/studycards/internal/audio"
	"codeberg.org/snonux/studycards/internal/remote"
)

// providerSynth lets an audio.Session read aloud through a local provider
type providerSynth struct {
	provider audio.Provider
}

func (s providerSynth) SynthesizeAudio(ctx context.Context, text string) (*remote.Clip, error) {
	return s.provider.Synthesize(ctx, text)
}

// synthProvider exports audio synthesized by the collaborator
type synthProvider struct {
	synth audio.Synthesizer
}

func (s synthProvider) Synthesize(ctx context.Context, text string) (*remote.Clip, error) {
	return s.synth.SynthesizeAudio(ctx, text)
}

func (s synthProvider) Name() string {
	return "remote"
}

func (s synthProvider) IsAvailable() error {
	return nil
}

// newAudioSession returns nil when reading aloud is not configured
func (p *Processor) newAudioSession() *audio.Session {
	if p.synth == nil {
		return nil
	}
	return audio.NewSession(p.synth, &audio.SessionOptions{
		Notifier: p.queue,
		Player:   p.player,
		Logger:   p.logger,
	})
}
