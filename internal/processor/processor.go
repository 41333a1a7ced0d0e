package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"codeberg.org/snonux/studycards/internal/audio"
	"codeberg.org/snonux/studycards/internal/cli"
	"codeberg.org/snonux/studycards/internal/llm"
	"codeberg.org/snonux/studycards/internal/notify"
	"codeberg.org/snonux/studycards/internal/remote"
	"codeberg.org/snonux/studycards/internal/stats"
)

// Options replaces the parts of a Processor that New derives from configuration
type Options struct {
	Client  remote.Client
	Speaker audio.Provider    // synthesizes exported audio; nil falls back to Synth
	Synth   audio.Synthesizer // reads answers aloud; nil disables reading
	Player  audio.Player
	In      io.Reader
	Out     io.Writer
	Logger  *slog.Logger
}

// Processor runs the subcommands
type Processor struct {
	flags  *cli.Flags
	config *cli.Config
	logger *slog.Logger
	in     io.Reader
	out    io.Writer

	client  remote.Client
	speaker audio.Provider
	synth   audio.Synthesizer
	player  audio.Player
	queue   *notify.Queue
	printer *notificationPrinter

	closers []io.Closer
}

var _ cli.Handler = (*Processor)(nil)

// New resolves the configuration and builds every collaborator it names
func New(flags *cli.Flags) (*Processor, error) {
	config, err := cli.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(config.Log.Level, os.Stderr)

	opts := &Options{Logger: logger}
	var closers []io.Closer

	opts.Speaker, err = newSpeaker(config, logger)
	if err != nil {
		return nil, err
	}

	switch config.Backend.Kind {
	case "remote":
		remoteConfig := remote.DefaultConfig()
		remoteConfig.BaseURL = config.Remote.URL
		remoteConfig.Timeout = config.Remote.Timeout
		client, err := remote.NewHTTPClient(remoteConfig, logger)
		if err != nil {
			return nil, err
		}
		opts.Client = client

	default:
		gen, err := llm.NewGenerator(context.Background(), &llm.Config{
			Backend:       config.Backend.Kind,
			OpenAIKey:     config.Backend.OpenAIKey,
			OpenAIModel:   config.Backend.OpenAIModel,
			OpenAIBaseURL: config.Backend.OpenAIBaseURL,
			GeminiKey:     config.Backend.GeminiKey,
			GeminiModel:   config.Backend.GeminiModel,
		}, logger)
		if err != nil {
			return nil, err
		}
		store, err := stats.Open(config.Stats.DB)
		if err != nil {
			return nil, err
		}
		closers = append(closers, store)
		opts.Client = llm.NewClient(gen, &llm.ClientOptions{
			Speaker: opts.Speaker,
			Stats:   store,
			Logger:  logger,
		})
	}

	switch {
	case config.Audio.Provider == "remote":
		opts.Synth = opts.Client
	case opts.Speaker != nil:
		opts.Synth = providerSynth{opts.Speaker}
	}
	opts.Player = audio.NewExecPlayer(config.Audio.Player)

	p := NewWithOptions(flags, config, opts)
	p.closers = append(p.closers, closers...)
	return p, nil
}

// NewWithOptions builds a processor around the given collaborators
func NewWithOptions(flags *cli.Flags, config *cli.Config, opts *Options) *Processor {
	if opts == nil {
		opts = &Options{}
	}
	p := &Processor{
		flags:   flags,
		config:  config,
		logger:  opts.Logger,
		in:      opts.In,
		out:     opts.Out,
		client:  opts.Client,
		speaker: opts.Speaker,
		synth:   opts.Synth,
		player:  opts.Player,
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.in == nil {
		p.in = os.Stdin
	}
	if p.out == nil {
		p.out = os.Stdout
	}
	if p.player == nil {
		p.player = audio.NewExecPlayer("")
	}

	p.queue = notify.New(&notify.Options{
		DefaultExpiry: config.Notify.Expiry,
		MaxActive:     config.Notify.MaxActive,
		Logger:        p.logger,
	})
	p.printer = newNotificationPrinter(p.out)
	p.queue.OnChange(p.printer.update)
	return p
}

// Close releases the stats database and clears pending notifications
func (p *Processor) Close() error {
	p.queue.Clear()
	var errs []error
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newSpeaker creates the local speech provider named by audio.provider. The
// remote provider speaks through the collaborator and needs none.
func newSpeaker(config *cli.Config, logger *slog.Logger) (audio.Provider, error) {
	switch config.Audio.Provider {
	case "remote", "none":
		return nil, nil
	}

	audioConfig := audio.DefaultProviderConfig()
	audioConfig.Provider = config.Audio.Provider
	audioConfig.CacheDir = config.Audio.CacheDir
	audioConfig.OpenAIKey = cli.GetOpenAIKey()
	audioConfig.OpenAIBaseURL = config.Backend.OpenAIBaseURL
	audioConfig.OpenAIModel = config.Audio.OpenAIModel
	audioConfig.OpenAIVoice = config.Audio.OpenAIVoice
	audioConfig.OpenAISpeed = config.Audio.OpenAISpeed

	provider, err := audio.NewProvider(audioConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up %s speech: %w", config.Audio.Provider, err)
	}
	return provider, nil
}

// exportSpeaker returns the provider used for audio in exported decks, or
// nil when --with-audio is not set
func (p *Processor) exportSpeaker() audio.Provider {
	if p.flags == nil || !p.flags.WithAudio {
		return nil
	}
	if p.speaker != nil {
		return p.speaker
	}
	if p.synth != nil {
		return synthProvider{p.synth}
	}
	p.logger.Warn("audio requested but no speech provider is configured")
	return nil
}
