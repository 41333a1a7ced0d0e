package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the resolved configuration of every component
type Config struct {
	Remote  RemoteConfig
	Backend BackendConfig
	Audio   AudioConfig
	Notify  NotifyConfig
	Stats   StatsConfig
	Server  ServerConfig
	Export  ExportConfig
	Batch   BatchConfig
	Log     LogConfig
}

type RemoteConfig struct {
	URL     string        `validate:"required,url"`
	Timeout time.Duration `validate:"min=0"`
}

type BackendConfig struct {
	Kind          string `validate:"oneof=remote openai gemini"`
	OpenAIKey     string `validate:"required_if=Kind openai"`
	OpenAIModel   string
	OpenAIBaseURL string `validate:"omitempty,url"`
	GeminiKey     string `validate:"required_if=Kind gemini"`
	GeminiModel   string
}

type AudioConfig struct {
	Provider    string  `validate:"oneof=remote openai espeak none"`
	OpenAIModel string  `validate:"required"`
	OpenAIVoice string  `validate:"required"`
	OpenAISpeed float64 `validate:"min=0.25,max=4"`
	CacheDir    string
	Player      string
}

type NotifyConfig struct {
	Expiry    time.Duration `validate:"min=0"`
	MaxActive int           `validate:"min=0"`
}

type StatsConfig struct {
	DB string
}

type ServerConfig struct {
	Addr string  `validate:"required,hostname_port"`
	Rate float64 `validate:"min=0"`
}

type ExportConfig struct {
	DeckName  string `validate:"required"`
	Format    string `validate:"oneof=csv apkg"`
	OutputDir string `validate:"required"`
}

type BatchConfig struct {
	Parallel int `validate:"min=1,max=16"`
}

type LogConfig struct {
	Level string `validate:"oneof=debug info warn error"`
}

var validate = validator.New()

// InitConfig initializes viper configuration
func InitConfig(cfgFile string) {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error getting home directory: %v\n", err)
			return
		}

		// $HOME/.studycards.yaml, then ./.studycards.yaml
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".studycards")
	}

	viper.SetEnvPrefix("STUDYCARDS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func setDefaults() {
	home, _ := os.UserHomeDir()
	state := filepath.Join(home, ".local", "state", "studycards")
	defaults := NewFlags()

	viper.SetDefault("remote.url", defaults.RemoteURL)
	viper.SetDefault("remote.timeout", 60*time.Second)
	viper.SetDefault("backend.kind", defaults.Backend)
	viper.SetDefault("backend.openai_model", defaults.ChatModel)
	viper.SetDefault("backend.gemini_model", "gemini-2.5-flash")
	viper.SetDefault("audio.provider", "remote")
	viper.SetDefault("audio.openai_model", defaults.OpenAIModel)
	viper.SetDefault("audio.openai_voice", defaults.OpenAIVoice)
	viper.SetDefault("audio.openai_speed", defaults.OpenAISpeed)
	viper.SetDefault("audio.cache_dir", filepath.Join(state, "audio_cache"))
	viper.SetDefault("notify.expiry", 3*time.Second)
	viper.SetDefault("notify.max_active", 0)
	viper.SetDefault("stats.db", filepath.Join(state, "stats.db"))
	viper.SetDefault("server.addr", defaults.ServerAddr)
	viper.SetDefault("server.rate", defaults.ServerRate)
	viper.SetDefault("export.deck_name", defaults.DeckName)
	viper.SetDefault("export.format", defaults.Format)
	viper.SetDefault("export.output_dir", defaults.OutputDir)
	viper.SetDefault("batch.parallel", defaults.Parallel)
	viper.SetDefault("log.level", defaults.LogLevel)
}

// LoadConfig reads the configuration from viper and validates it
func LoadConfig() (*Config, error) {
	setDefaults()

	config := &Config{
		Remote: RemoteConfig{
			URL:     viper.GetString("remote.url"),
			Timeout: viper.GetDuration("remote.timeout"),
		},
		Backend: BackendConfig{
			Kind:          viper.GetString("backend.kind"),
			OpenAIKey:     GetOpenAIKey(),
			OpenAIModel:   viper.GetString("backend.openai_model"),
			OpenAIBaseURL: viper.GetString("backend.openai_base_url"),
			GeminiKey:     GetGeminiKey(),
			GeminiModel:   viper.GetString("backend.gemini_model"),
		},
		Audio: AudioConfig{
			Provider:    viper.GetString("audio.provider"),
			OpenAIModel: viper.GetString("audio.openai_model"),
			OpenAIVoice: viper.GetString("audio.openai_voice"),
			OpenAISpeed: viper.GetFloat64("audio.openai_speed"),
			CacheDir:    viper.GetString("audio.cache_dir"),
			Player:      viper.GetString("audio.player"),
		},
		Notify: NotifyConfig{
			Expiry:    viper.GetDuration("notify.expiry"),
			MaxActive: viper.GetInt("notify.max_active"),
		},
		Stats: StatsConfig{
			DB: viper.GetString("stats.db"),
		},
		Server: ServerConfig{
			Addr: viper.GetString("server.addr"),
			Rate: viper.GetFloat64("server.rate"),
		},
		Export: ExportConfig{
			DeckName:  viper.GetString("export.deck_name"),
			Format:    viper.GetString("export.format"),
			OutputDir: viper.GetString("export.output_dir"),
		},
		Batch: BatchConfig{
			Parallel: viper.GetInt("batch.parallel"),
		},
		Log: LogConfig{
			Level: strings.ToLower(viper.GetString("log.level")),
		},
	}

	if err := validate.Struct(config); err != nil {
		return nil, configError(err)
	}
	return config, nil
}

// configError names the offending keys of a validation failure
func configError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Config.Backend.Kind -> backend.kind
		ns := strings.TrimPrefix(fe.Namespace(), "Config.")
		problems = append(problems, fmt.Sprintf("%s (%s %s, got %v)", configKey(ns), fe.Tag(), fe.Param(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
}

var configKeys = map[string]string{
	"OpenAIKey":     "openai_key",
	"OpenAIModel":   "openai_model",
	"OpenAIBaseURL": "openai_base_url",
	"OpenAIVoice":   "openai_voice",
	"OpenAISpeed":   "openai_speed",
	"GeminiKey":     "gemini_key",
	"GeminiModel":   "gemini_model",
	"CacheDir":      "cache_dir",
	"MaxActive":     "max_active",
	"DB":            "db",
	"DeckName":      "deck_name",
	"OutputDir":     "output_dir",
	"URL":           "url",
}

func configKey(namespace string) string {
	parts := strings.Split(namespace, ".")
	for i, p := range parts {
		if k, ok := configKeys[p]; ok {
			parts[i] = k
		} else {
			parts[i] = strings.ToLower(p)
		}
	}
	return strings.Join(parts, ".")
}

// GetOpenAIKey retrieves the OpenAI API key from environment or config
func GetOpenAIKey() string {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		return key
	}
	if key := viper.GetString("backend.openai_key"); key != "" {
		return key
	}
	return viper.GetString("audio.openai_key")
}

// GetGeminiKey retrieves the Gemini API key from environment or config
func GetGeminiKey() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return viper.GetString("backend.gemini_key")
}
