package cli

import (
	"context"
	"errors"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// resetViper gives the test a clean global viper and restores a clean one afterwards
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

// recordingHandler remembers the last call it received
type recordingHandler struct {
	call []string
	err  error
}

func (h *recordingHandler) record(args ...string) error {
	h.call = args
	return h.err
}

func (h *recordingHandler) Text(_ context.Context, input string) error {
	return h.record("text", input)
}

func (h *recordingHandler) Image(_ context.Context, source string) error {
	return h.record("image", source)
}

func (h *recordingHandler) Review(_ context.Context, file string) error {
	return h.record("review", file)
}

func (h *recordingHandler) Batch(_ context.Context, file string) error {
	return h.record("batch", file)
}

func (h *recordingHandler) Serve(_ context.Context) error {
	return h.record("serve")
}

func (h *recordingHandler) Stats(_ context.Context, reset bool) error {
	if reset {
		return h.record("stats", "reset")
	}
	return h.record("stats")
}

func (h *recordingHandler) Export(_ context.Context, result, out string) error {
	return h.record("export", result, out)
}

func (h *recordingHandler) Models(_ context.Context) error {
	return h.record("models")
}

func (h *recordingHandler) GUI(_ context.Context) error {
	return h.record("gui")
}

func TestCreateRootCommand(t *testing.T) {
	resetViper(t)
	flags := NewFlags()
	cmd := CreateRootCommand(flags, nil)

	// Test basic command properties
	if cmd.Use != "studycards" {
		t.Errorf("Expected Use to be 'studycards', got %s", cmd.Use)
	}

	if !strings.Contains(cmd.Short, "flashcard") {
		t.Errorf("Expected Short description to mention flashcards, got %q", cmd.Short)
	}

	persistent := []string{
		"config", "log-level", "backend", "remote-url", "output", "format",
		"deck-name", "with-audio", "chat-model", "openai-model", "openai-voice",
		"openai-speed", "player",
	}
	for _, name := range persistent {
		t.Run("flag_"+name, func(t *testing.T) {
			if cmd.PersistentFlags().Lookup(name) == nil {
				t.Errorf("Expected persistent flag %s to exist", name)
			}
		})
	}

	subcommands := []string{"text", "image", "review", "batch", "serve", "stats", "export", "models", "gui"}
	for _, name := range subcommands {
		t.Run("command_"+name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			if err != nil || sub.Name() != name {
				t.Errorf("Expected subcommand %s, got %v (err %v)", name, sub, err)
			}
		})
	}
}

func TestSubcommandFlags(t *testing.T) {
	resetViper(t)
	cmd := CreateRootCommand(NewFlags(), nil)

	tests := []struct {
		command string
		flag    string
	}{
		{"text", "no-review"},
		{"text", "save"},
		{"image", "no-review"},
		{"batch", "parallel"},
		{"serve", "addr"},
		{"serve", "rate"},
		{"stats", "reset"},
	}

	for _, tt := range tests {
		t.Run(tt.command+"_"+tt.flag, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{tt.command})
			if err != nil {
				t.Fatalf("Find(%s): %v", tt.command, err)
			}
			var flag *pflag.Flag = sub.Flags().Lookup(tt.flag)
			if flag == nil {
				t.Errorf("Expected %s to have flag --%s", tt.command, tt.flag)
			}
		})
	}
}

func TestCommandDispatch(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{"no args launches gui", []string{}, []string{"gui"}},
		{"gui", []string{"gui"}, []string{"gui"}},
		{"text from file", []string{"text", "notes.txt"}, []string{"text", "notes.txt"}},
		{"text from stdin", []string{"text"}, []string{"text", "-"}},
		{"image", []string{"image", "page.png"}, []string{"image", "page.png"}},
		{"review", []string{"review", "cards.json"}, []string{"review", "cards.json"}},
		{"batch", []string{"batch", "inputs.txt", "-p", "4"}, []string{"batch", "inputs.txt"}},
		{"serve", []string{"serve", "--addr", "127.0.0.1:9000"}, []string{"serve"}},
		{"stats", []string{"stats"}, []string{"stats"}},
		{"stats reset", []string{"stats", "--reset"}, []string{"stats", "reset"}},
		{"export", []string{"export", "cards.json", "deck.apkg"}, []string{"export", "cards.json", "deck.apkg"}},
		{"models", []string{"models"}, []string{"models"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			handler := &recordingHandler{}
			flags := NewFlags()
			cmd := CreateRootCommand(flags, func(*Flags) (Handler, error) {
				return handler, nil
			})
			cmd.SetArgs(tt.args)
			cmd.SetOut(&strings.Builder{})

			if err := cmd.Execute(); err != nil {
				t.Fatalf("Execute(%v) failed: %v", tt.args, err)
			}
			if !reflect.DeepEqual(handler.call, tt.expected) {
				t.Errorf("handler call = %v, want %v", handler.call, tt.expected)
			}
		})
	}
}

func TestCommandDispatchFlagsReachHandler(t *testing.T) {
	resetViper(t)
	var got *Flags
	flags := NewFlags()
	cmd := CreateRootCommand(flags, func(f *Flags) (Handler, error) {
		got = f
		return &recordingHandler{}, nil
	})
	cmd.SetArgs([]string{"batch", "inputs.txt", "--parallel", "4", "--format", "csv"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if got == nil {
		t.Fatal("handler factory was not called")
	}
	if got.Parallel != 4 || got.Format != "csv" {
		t.Errorf("flags = parallel %d format %s, want 4 csv", got.Parallel, got.Format)
	}
	if viper.GetInt("batch.parallel") != 4 {
		t.Errorf("batch.parallel = %d, want 4", viper.GetInt("batch.parallel"))
	}
}

func TestCommandErrors(t *testing.T) {
	t.Run("handler error is returned", func(t *testing.T) {
		resetViper(t)
		want := errors.New("boom")
		cmd := CreateRootCommand(NewFlags(), func(*Flags) (Handler, error) {
			return &recordingHandler{err: want}, nil
		})
		cmd.SetArgs([]string{"models"})
		cmd.SetErr(&strings.Builder{})

		if err := cmd.Execute(); !errors.Is(err, want) {
			t.Errorf("Execute() error = %v, want %v", err, want)
		}
	})

	t.Run("factory error is returned", func(t *testing.T) {
		resetViper(t)
		want := errors.New("bad config")
		cmd := CreateRootCommand(NewFlags(), func(*Flags) (Handler, error) {
			return nil, want
		})
		cmd.SetArgs([]string{"stats"})
		cmd.SetErr(&strings.Builder{})

		if err := cmd.Execute(); !errors.Is(err, want) {
			t.Errorf("Execute() error = %v, want %v", err, want)
		}
	})

	t.Run("missing argument", func(t *testing.T) {
		resetViper(t)
		cmd := CreateRootCommand(NewFlags(), func(*Flags) (Handler, error) {
			return &recordingHandler{}, nil
		})
		cmd.SetArgs([]string{"image"})
		cmd.SetErr(&strings.Builder{})
		cmd.SetOut(&strings.Builder{})

		if err := cmd.Execute(); err == nil {
			t.Error("Expected an error for image without a source")
		}
	})
}

func TestSetupFlags(t *testing.T) {
	resetViper(t)
	cmd := &cobra.Command{}
	flags := NewFlags()

	setupFlags(cmd, flags)

	tests := []struct {
		flag     string
		expected string
	}{
		{"output", "./decks"},
		{"format", "apkg"},
		{"backend", "remote"},
		{"remote-url", "http://localhost:8000/api/v1"},
		{"openai-voice", "alloy"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			flag := cmd.PersistentFlags().Lookup(tt.flag)
			if flag == nil {
				t.Fatalf("%s flag not found", tt.flag)
			}
			if flag.DefValue != tt.expected {
				t.Errorf("Expected default %s to be %s, got %s", tt.flag, tt.expected, flag.DefValue)
			}
		})
	}
}

func TestInitConfig(t *testing.T) {
	tests := []struct {
		name      string
		setupFunc func(t *testing.T) string
		check     func(t *testing.T)
	}{
		{
			name: "with config file",
			setupFunc: func(t *testing.T) string {
				cfgPath := t.TempDir() + "/test-config.yaml"
				content := `backend:
  kind: openai
  openai_key: test-key
export:
  output_dir: /test/output`
				if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
					t.Fatalf("Failed to create test config: %v", err)
				}
				return cfgPath
			},
			check: func(t *testing.T) {
				if got := viper.GetString("backend.kind"); got != "openai" {
					t.Errorf("backend.kind = %s, want openai", got)
				}
				if got := viper.GetString("export.output_dir"); got != "/test/output" {
					t.Errorf("export.output_dir = %s, want /test/output", got)
				}
			},
		},
		{
			name: "without config file",
			setupFunc: func(t *testing.T) string {
				t.Setenv("HOME", t.TempDir())
				return ""
			},
			check: func(t *testing.T) {
				if got := viper.GetString("remote.url"); got != "http://localhost:8000/api/v1" {
					t.Errorf("remote.url default = %s", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)

			InitConfig(tt.setupFunc(t))
			tt.check(t)

			// Test environment variable prefix
			t.Setenv("STUDYCARDS_TEST_VAR", "test-value")
			if viper.GetString("test_var") != "test-value" {
				t.Error("Environment variable not properly loaded")
			}

			// Nested keys map to underscored variables
			t.Setenv("STUDYCARDS_SERVER_ADDR", "0.0.0.0:9999")
			if viper.GetString("server.addr") != "0.0.0.0:9999" {
				t.Errorf("server.addr = %s, want env override", viper.GetString("server.addr"))
			}
		})
	}
}

func TestGetOpenAIKey(t *testing.T) {
	tests := []struct {
		name      string
		envKey    string
		configKey string
		expected  string
	}{
		{
			name:      "from environment",
			envKey:    "env-test-key",
			configKey: "config-test-key",
			expected:  "env-test-key",
		},
		{
			name:      "from config when no env",
			envKey:    "",
			configKey: "config-test-key",
			expected:  "config-test-key",
		},
		{
			name:      "empty when neither set",
			envKey:    "",
			configKey: "",
			expected:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			t.Setenv("OPENAI_API_KEY", tt.envKey)

			if tt.configKey != "" {
				viper.Set("backend.openai_key", tt.configKey)
			}

			got := GetOpenAIKey()
			if got != tt.expected {
				t.Errorf("GetOpenAIKey() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetGeminiKey(t *testing.T) {
	resetViper(t)
	t.Setenv("GEMINI_API_KEY", "")
	viper.Set("backend.gemini_key", "config-key")

	if got := GetGeminiKey(); got != "config-key" {
		t.Errorf("GetGeminiKey() = %s, want config-key", got)
	}

	t.Setenv("GEMINI_API_KEY", "env-key")
	if got := GetGeminiKey(); got != "env-key" {
		t.Errorf("GetGeminiKey() = %s, want env-key", got)
	}
}

func TestBindFlagsToViper(t *testing.T) {
	resetViper(t)

	cmd := &cobra.Command{}
	flags := NewFlags()
	setupFlags(cmd, flags)

	// Set some flag values
	cmd.PersistentFlags().Set("output", "/test/output")
	cmd.PersistentFlags().Set("format", "csv")
	cmd.PersistentFlags().Set("openai-model", "tts-1-hd")
	cmd.PersistentFlags().Set("backend", "gemini")

	tests := []struct {
		key      string
		expected string
	}{
		{"export.output_dir", "/test/output"},
		{"export.format", "csv"},
		{"audio.openai_model", "tts-1-hd"},
		{"backend.kind", "gemini"},
	}

	for _, tt := range tests {
		if got := viper.GetString(tt.key); got != tt.expected {
			t.Errorf("Expected %s to be %s, got %s", tt.key, tt.expected, got)
		}
	}
}
