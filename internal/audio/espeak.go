package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"codeberg.org/snonux/studycards/internal/remote"
)

const wavContentType = "audio/wav"

// ESpeakConfig holds configuration for espeak-ng speech
type ESpeakConfig struct {
	Voice     string // Voice variant, e.g. "en", "en-us", "en+f3"
	Speed     int    // Words per minute, 80 to 450
	Pitch     int    // 0 to 99
	Amplitude int    // Volume, 0 to 200
	WordGap   int    // Gap between words in 10ms units
}

// DefaultESpeakConfig returns a neutral English voice at a study pace
func DefaultESpeakConfig() *ESpeakConfig {
	return &ESpeakConfig{
		Voice:     "en",
		Speed:     150,
		Pitch:     50,
		Amplitude: 100,
	}
}

// ESpeakProvider implements Provider with the local espeak-ng binary
type ESpeakProvider struct {
	config *ESpeakConfig
}

// NewESpeakProvider creates an espeak-ng provider, failing if espeak-ng is not installed
func NewESpeakProvider(config *ESpeakConfig) (*ESpeakProvider, error) {
	if err := checkESpeakInstalled(); err != nil {
		return nil, err
	}
	if config == nil {
		config = DefaultESpeakConfig()
	}
	return &ESpeakProvider{config: clampESpeak(*config)}, nil
}

// Synthesize renders text to WAV with espeak-ng
func (p *ESpeakProvider) Synthesize(ctx context.Context, text string) (*remote.Clip, error) {
	if err := ValidateSpeechText(text); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "studycards-espeak-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer os.RemoveAll(dir)

	outputFile := filepath.Join(dir, "speech.wav")
	cmd := exec.CommandContext(ctx, "espeak-ng", p.args(text, outputFile)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("espeak-ng failed: %w\nOutput: %s", err, string(output))
	}

	data, err := os.ReadFile(outputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read espeak-ng output: %w", err)
	}
	return &remote.Clip{Text: text, ContentType: wavContentType, Data: data}, nil
}

func (p *ESpeakProvider) args(text, outputFile string) []string {
	args := []string{
		"-v", p.config.Voice,
		"-s", strconv.Itoa(p.config.Speed),
		"-p", strconv.Itoa(p.config.Pitch),
		"-a", strconv.Itoa(p.config.Amplitude),
	}
	if p.config.WordGap > 0 {
		args = append(args, "-g", strconv.Itoa(p.config.WordGap))
	}
	// "--" keeps text starting with a dash from being read as a flag
	return append(args, "-w", outputFile, "--", text)
}

// Name returns the provider name
func (p *ESpeakProvider) Name() string {
	return "espeak-ng"
}

// IsAvailable checks if espeak-ng is installed
func (p *ESpeakProvider) IsAvailable() error {
	return checkESpeakInstalled()
}

func clampESpeak(c ESpeakConfig) *ESpeakConfig {
	if c.Voice == "" {
		c.Voice = "en"
	}
	c.Speed = clamp(c.Speed, 80, 450)
	c.Pitch = clamp(c.Pitch, 0, 99)
	c.Amplitude = clamp(c.Amplitude, 0, 200)
	if c.WordGap < 0 {
		c.WordGap = 0
	}
	return &c
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// checkESpeakInstalled verifies that espeak-ng is available on the system
func checkESpeakInstalled() error {
	if _, err := exec.LookPath("espeak-ng"); err != nil {
		return fmt.Errorf("espeak-ng is not installed or not in PATH: %w", err)
	}
	return nil
}

// ListVoices returns the English voice variants offered in the settings
func ListVoices() []string {
	return []string{
		"en",    // Default English voice
		"en-us", // American English
		"en+m1", // Male voice 1
		"en+m3", // Male voice 3
		"en+f1", // Female voice 1
		"en+f3", // Female voice 3
	}
}
