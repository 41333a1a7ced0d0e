package audio

import (
	"reflect"
	"testing"
)

func TestDefaultESpeakConfig(t *testing.T) {
	config := DefaultESpeakConfig()

	if config.Voice != "en" {
		t.Errorf("Expected voice 'en', got '%s'", config.Voice)
	}
	if config.Speed != 150 {
		t.Errorf("Expected speed 150, got %d", config.Speed)
	}
	if config.Pitch != 50 {
		t.Errorf("Expected pitch 50, got %d", config.Pitch)
	}
	if config.Amplitude != 100 {
		t.Errorf("Expected amplitude 100, got %d", config.Amplitude)
	}
}

func TestClampESpeak(t *testing.T) {
	tests := []struct {
		name string
		in   ESpeakConfig
		want ESpeakConfig
	}{
		{
			name: "defaults unchanged",
			in:   *DefaultESpeakConfig(),
			want: *DefaultESpeakConfig(),
		},
		{
			name: "out of range values clamped",
			in:   ESpeakConfig{Voice: "", Speed: 10, Pitch: 120, Amplitude: -5, WordGap: -1},
			want: ESpeakConfig{Voice: "en", Speed: 80, Pitch: 99, Amplitude: 0, WordGap: 0},
		},
		{
			name: "upper bounds",
			in:   ESpeakConfig{Voice: "en-us", Speed: 900, Pitch: -3, Amplitude: 500, WordGap: 4},
			want: ESpeakConfig{Voice: "en-us", Speed: 450, Pitch: 0, Amplitude: 200, WordGap: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clampESpeak(tt.in)
			if *got != tt.want {
				t.Errorf("clampESpeak() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestESpeakArgs(t *testing.T) {
	p := &ESpeakProvider{config: &ESpeakConfig{Voice: "en+f3", Speed: 160, Pitch: 40, Amplitude: 90, WordGap: 2}}

	got := p.args("-dash first", "/tmp/out.wav")
	want := []string{"-v", "en+f3", "-s", "160", "-p", "40", "-a", "90", "-g", "2", "-w", "/tmp/out.wav", "--", "-dash first"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("args() = %v, want %v", got, want)
	}
}

func TestListVoices(t *testing.T) {
	voices := ListVoices()

	if len(voices) == 0 {
		t.Fatal("ListVoices() returned no voices")
	}
	if voices[0] != "en" {
		t.Errorf("Expected first voice 'en', got '%s'", voices[0])
	}
}
