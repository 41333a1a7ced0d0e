package audio

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
)

// Player starts playback of a spooled clip
type Player interface {
	Play(h *Handle) (Playback, error)
}

// Playback is one running playback
type Playback interface {
	// Done is closed when playback ends, naturally or through Stop
	Done() <-chan struct{}

	// Err reports why playback ended; nil for a natural end or a Stop
	Err() error

	// Stop ends playback early. It is safe to call more than once.
	Stop()
}

// ExecPlayer plays clips through a system audio player
type ExecPlayer struct {
	// Command overrides player detection, e.g. "mpv --no-video".
	// The file path is appended as the last argument.
	Command string
}

// NewExecPlayer creates a player; an empty command means autodetect
func NewExecPlayer(command string) *ExecPlayer {
	return &ExecPlayer{Command: command}
}

// Play starts the player process in the background
func (p *ExecPlayer) Play(h *Handle) (Playback, error) {
	cmd, err := p.command(h.Path())
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start audio player: %w", err)
	}

	pb := &execPlayback{cmd: cmd, done: make(chan struct{})}
	go pb.wait()
	return pb, nil
}

// command picks the player. mpg123 handles MP3 best but cannot play WAV.
func (p *ExecPlayer) command(file string) (*exec.Cmd, error) {
	if fields := strings.Fields(p.Command); len(fields) > 0 {
		return exec.Command(fields[0], append(fields[1:], file)...), nil
	}

	switch runtime.GOOS {
	case "darwin":
		return exec.Command("afplay", file), nil
	case "linux", "freebsd", "openbsd":
		isMP3 := strings.EqualFold(filepath.Ext(file), ".mp3")
		candidates := [][]string{
			{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet"},
			{"play", "-q"},
			{"paplay"},
			{"aplay", "-q"},
		}
		if isMP3 {
			candidates = append([][]string{{"mpg123", "-q"}}, candidates...)
		}
		for _, c := range candidates {
			if _, err := exec.LookPath(c[0]); err == nil {
				return exec.Command(c[0], append(c[1:], file)...), nil
			}
		}
		return nil, fmt.Errorf("no audio player found. Install mpg123, ffplay, sox, paplay, or aplay")
	default:
		return nil, fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

type execPlayback struct {
	cmd      *exec.Cmd
	done     chan struct{}
	err      error
	stopped  atomic.Bool
	stopOnce sync.Once
}

func (pb *execPlayback) wait() {
	err := pb.cmd.Wait()
	if err != nil && !pb.stopped.Load() {
		pb.err = fmt.Errorf("audio player failed: %w", err)
	}
	close(pb.done)
}

func (pb *execPlayback) Done() <-chan struct{} {
	return pb.done
}

func (pb *execPlayback) Err() error {
	<-pb.done
	return pb.err
}

func (pb *execPlayback) Stop() {
	pb.stopOnce.Do(func() {
		pb.stopped.Store(true)
		if pb.cmd.Process != nil {
			pb.cmd.Process.Kill()
		}
	})
}
