package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/studycards/internal"
)

// Handler runs the work behind each subcommand
type Handler interface {
	Text(ctx context.Context, input string) error
	Image(ctx context.Context, source string) error
	Review(ctx context.Context, resultFile string) error
	Batch(ctx context.Context, batchFile string) error
	Serve(ctx context.Context) error
	Stats(ctx context.Context, reset bool) error
	Export(ctx context.Context, resultFile, outputPath string) error
	Models(ctx context.Context) error
	GUI(ctx context.Context) error
}

// HandlerFactory builds the handler once flags and configuration are resolved
type HandlerFactory func(flags *Flags) (Handler, error)

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags, newHandler HandlerFactory) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "studycards",
		Short: "AI flashcard generator and study tool",
		Long: `studycards turns study text or a photographed page into question and
answer flashcards, lets you review them with spoken answers, and exports
them as Anki decks.

Examples:
  studycards                          # Launch interactive GUI (default)
  studycards text notes.txt           # Generate cards from a text file and review them
  studycards image page.png           # Extract text from an image and generate cards
  studycards batch inputs.txt         # Generate one deck per listed input
  studycards serve                    # Run the generation backend over HTTP`,
		Args:          cobra.NoArgs,
		Version:       internal.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHandler(cmd, flags, newHandler, func(h Handler) error {
				return h.GUI(cmd.Context())
			})
		},
	}

	setupFlags(rootCmd, flags)

	rootCmd.AddCommand(
		textCommand(flags, newHandler),
		imageCommand(flags, newHandler),
		reviewCommand(flags, newHandler),
		batchCommand(flags, newHandler),
		serveCommand(flags, newHandler),
		statsCommand(flags, newHandler),
		exportCommand(flags, newHandler),
		modelsCommand(flags, newHandler),
		guiCommand(flags, newHandler),
	)

	return rootCmd
}

func withHandler(cmd *cobra.Command, flags *Flags, newHandler HandlerFactory, run func(Handler) error) error {
	if newHandler == nil {
		return fmt.Errorf("no handler configured for %s", cmd.Name())
	}
	h, err := newHandler(flags)
	if err != nil {
		return err
	}
	if closer, ok := h.(io.Closer); ok {
		defer closer.Close()
	}
	return run(h)
}

func textCommand(flags *Flags, newHandler HandlerFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "text [FILE|-]",
		Short: "Generate flashcards from study text",
		Long:  "Generate flashcards from a text file, or from standard input when FILE is - or omitted.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) == 1 {
				input = args[0]
			}
			return withHandler(cmd, flags, newHandler, func(h Handler) error {
				return h.Text(cmd.Context(), input)
			})
		},
	}
	addGenerationFlags(cmd, flags)
	return cmd
}

func imageCommand(flags *Flags, newHandler HandlerFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image PATH|URL",
		Short: "Generate flashcards from the text in an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHandler(cmd, flags, newHandler, func(h Handler) error {
				return h.Image(cmd.Context(), args[0])
			})
		},
	}
	addGenerationFlags(cmd, flags)
	return cmd
}

func addGenerationFlags(cmd *cobra.Command, flags *Flags) {
	cmd.Flags().BoolVar(&flags.NoReview, "no-review", false, "Print the generated cards instead of starting a review")
	cmd.Flags().StringVarP(&flags.SaveFile, "save", "s", "", "Save the generation result as JSON for a later review or export")
}

func reviewCommand(flags *Flags, newHandler HandlerFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "review FILE",
		Short: "Review a saved generation result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHandler(cmd, flags, newHandler, func(h Handler) error {
				return h.Review(cmd.Context(), args[0])
			})
		},
	}
}

func batchCommand(flags *Flags, newHandler HandlerFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch FILE",
		Short: "Generate one deck per input listed in FILE",
		Long: `Each non-empty line of FILE names a text file, an image file or an image
URL. Lines starting with # are comments. Prefix a line with "text:" or
"image:" to override detection by extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHandler(cmd, flags, newHandler, func(h Handler) error {
				return h.Batch(cmd.Context(), args[0])
			})
		},
	}
	cmd.Flags().IntVarP(&flags.Parallel, "parallel", "p", flags.Parallel, "Number of inputs processed concurrently")
	viper.BindPFlag("batch.parallel", cmd.Flags().Lookup("parallel"))
	return cmd
}

func serveCommand(flags *Flags, newHandler HandlerFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generation backend over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHandler(cmd, flags, newHandler, func(h Handler) error {
				return h.Serve(cmd.Context())
			})
		},
	}
	cmd.Flags().StringVar(&flags.ServerAddr, "addr", flags.ServerAddr, "Listen address")
	cmd.Flags().Float64Var(&flags.ServerRate, "rate", flags.ServerRate, "Requests per second allowed on the API (0 disables limiting)")
	viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	viper.BindPFlag("server.rate", cmd.Flags().Lookup("rate"))
	return cmd
}

func statsCommand(flags *Flags, newHandler HandlerFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show or reset the usage counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHandler(cmd, flags, newHandler, func(h Handler) error {
				return h.Stats(cmd.Context(), flags.ResetStats)
			})
		},
	}
	cmd.Flags().BoolVar(&flags.ResetStats, "reset", false, "Reset all counters to zero")
	return cmd
}

func exportCommand(flags *Flags, newHandler HandlerFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "export RESULT OUTPUT",
		Short: "Export a saved generation result as an Anki deck or CSV",
		Long:  "Export a saved result. The format follows the extension of OUTPUT (.apkg or .csv).",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHandler(cmd, flags, newHandler, func(h Handler) error {
				return h.Export(cmd.Context(), args[0], args[1])
			})
		},
	}
}

func modelsCommand(flags *Flags, newHandler HandlerFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List available OpenAI models for the current API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHandler(cmd, flags, newHandler, func(h Handler) error {
				return h.Models(cmd.Context())
			})
		},
	}
}

func guiCommand(flags *Flags, newHandler HandlerFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "gui",
		Short: "Launch the interactive GUI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withHandler(cmd, flags, newHandler, func(h Handler) error {
				return h.GUI(cmd.Context())
			})
		},
	}
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	pf := cmd.PersistentFlags()

	// Global flags
	pf.StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.studycards.yaml)")
	pf.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&flags.Backend, "backend", flags.Backend, "Generation backend: remote, openai or gemini")
	pf.StringVar(&flags.RemoteURL, "remote-url", flags.RemoteURL, "Base URL of the remote generation service")

	// Export flags
	pf.StringVarP(&flags.OutputDir, "output", "o", flags.OutputDir, "Output directory for decks")
	pf.StringVarP(&flags.Format, "format", "f", flags.Format, "Deck format: apkg or csv")
	pf.StringVar(&flags.DeckName, "deck-name", flags.DeckName, "Deck name for APKG export")
	pf.BoolVar(&flags.WithAudio, "with-audio", false, "Attach spoken answers to exported decks")

	// OpenAI flags
	pf.StringVar(&flags.ChatModel, "chat-model", flags.ChatModel, "OpenAI chat model used by the openai backend")
	pf.StringVar(&flags.OpenAIModel, "openai-model", flags.OpenAIModel, "OpenAI TTS model: tts-1, tts-1-hd, gpt-4o-mini-tts")
	pf.StringVar(&flags.OpenAIVoice, "openai-voice", flags.OpenAIVoice, "OpenAI voice: alloy, ash, ballad, coral, echo, fable, onyx, nova, sage, shimmer, verse")
	pf.Float64Var(&flags.OpenAISpeed, "openai-speed", flags.OpenAISpeed, "OpenAI speech speed (0.25 to 4.0, may be ignored by gpt-4o-mini-tts)")
	pf.StringVar(&flags.Player, "player", "", "Command used to play audio (default: first of afplay, mpv, ffplay, paplay)")

	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	viper.BindPFlag("log.level", pf.Lookup("log-level"))
	viper.BindPFlag("backend.kind", pf.Lookup("backend"))
	viper.BindPFlag("backend.openai_model", pf.Lookup("chat-model"))
	viper.BindPFlag("remote.url", pf.Lookup("remote-url"))
	viper.BindPFlag("export.output_dir", pf.Lookup("output"))
	viper.BindPFlag("export.format", pf.Lookup("format"))
	viper.BindPFlag("export.deck_name", pf.Lookup("deck-name"))
	viper.BindPFlag("audio.openai_model", pf.Lookup("openai-model"))
	viper.BindPFlag("audio.openai_voice", pf.Lookup("openai-voice"))
	viper.BindPFlag("audio.openai_speed", pf.Lookup("openai-speed"))
	viper.BindPFlag("audio.player", pf.Lookup("player"))
}
