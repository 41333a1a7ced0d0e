package gui

import (
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"

	"codeberg.org/snonux/studycards/internal/audio"
)

// AudioControls shows the read-aloud state of the current review and lets
// the user start or stop it
type AudioControls struct {
	widget.BaseWidget

	container   *fyne.Container
	playButton  *ttwidget.Button
	stopButton  *ttwidget.Button
	statusLabel *widget.Label

	mu      sync.Mutex
	session *audio.Session
	onPlay  func()
}

// NewAudioControls creates the controls; onPlay asks for the current answer to be read
func NewAudioControls(onPlay func()) *AudioControls {
	c := &AudioControls{onPlay: onPlay}

	c.playButton = ttwidget.NewButton("", c.play)
	c.playButton.Icon = theme.MediaPlayIcon()

	c.stopButton = ttwidget.NewButton("", c.stop)
	c.stopButton.Icon = theme.MediaStopIcon()

	c.statusLabel = widget.NewLabel("Audio unavailable")

	c.playButton.Disable()
	c.stopButton.Disable()

	c.container = container.NewHBox(
		c.playButton,
		c.stopButton,
		layout.NewSpacer(),
		c.statusLabel,
	)

	c.ExtendBaseWidget(c)
	return c
}

// CreateRenderer implements fyne.Widget
func (c *AudioControls) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(c.container)
}

// SetToolTips is called once the window's tooltip layer exists
func (c *AudioControls) SetToolTips() {
	c.playButton.SetToolTip("Read answer aloud (a)")
	c.stopButton.SetToolTip("Stop reading (s)")
}

// Bind follows session, which may be nil when reading aloud is not configured.
// Must be called on the UI goroutine.
func (c *AudioControls) Bind(session *audio.Session) {
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	if session == nil {
		c.playButton.Disable()
		c.stopButton.Disable()
		c.statusLabel.SetText("Audio unavailable")
		return
	}

	session.OnChange(func(state audio.State) {
		fyne.Do(func() {
			c.mu.Lock()
			current := c.session == session
			c.mu.Unlock()
			if current {
				c.show(state)
			}
		})
	})
	c.show(session.State())
}

func (c *AudioControls) show(state audio.State) {
	switch state {
	case audio.StateRequesting:
		c.playButton.Disable()
		c.stopButton.Enable()
		c.statusLabel.SetText("Fetching audio...")
	case audio.StatePlaying:
		c.playButton.Enable()
		c.stopButton.Enable()
		c.statusLabel.SetText("Playing")
	default:
		c.playButton.Enable()
		c.stopButton.Disable()
		c.statusLabel.SetText("Ready")
	}
}

func (c *AudioControls) play() {
	if c.onPlay != nil {
		c.onPlay()
	}
}

func (c *AudioControls) stop() {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session != nil {
		session.Cancel()
	}
}
