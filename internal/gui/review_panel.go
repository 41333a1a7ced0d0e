package gui

import (
	"fmt"
	"strconv"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"

	"codeberg.org/snonux/studycards/internal/review"
)

// ReviewPanel shows one card at a time of the current review session
type ReviewPanel struct {
	widget.BaseWidget

	container     *fyne.Container
	positionLabel *widget.Label
	countersLabel *widget.Label
	questionLabel *widget.Label
	answerLabel   *widget.Label
	cardGrid      *fyne.Container

	prevBtn *ttwidget.Button
	nextBtn *ttwidget.Button
	flipBtn *ttwidget.Button

	audioControls *AudioControls

	mu      sync.Mutex
	session *review.Session
}

// NewReviewPanel creates an empty panel. onRead is called when the user asks
// for the answer to be read aloud.
func NewReviewPanel(onRead func()) *ReviewPanel {
	p := &ReviewPanel{}

	p.positionLabel = widget.NewLabel("")
	p.positionLabel.TextStyle = fyne.TextStyle{Bold: true}
	p.countersLabel = widget.NewLabel("")
	p.countersLabel.TextStyle = fyne.TextStyle{Italic: true}

	p.questionLabel = widget.NewLabel("No flashcards yet. Generate some from text or an image.")
	p.questionLabel.Wrapping = fyne.TextWrapWord
	p.questionLabel.TextStyle = fyne.TextStyle{Bold: true}
	p.answerLabel = widget.NewLabel("")
	p.answerLabel.Wrapping = fyne.TextWrapWord

	p.prevBtn = ttwidget.NewButtonWithIcon("", theme.NavigateBackIcon(), p.onPrevious)
	p.nextBtn = ttwidget.NewButtonWithIcon("", theme.NavigateNextIcon(), p.onNext)
	p.flipBtn = ttwidget.NewButtonWithIcon("Show answer", theme.VisibilityIcon(), p.onFlip)

	p.audioControls = NewAudioControls(onRead)
	p.cardGrid = container.NewGridWrap(fyne.NewSize(44, 36))

	card := container.NewVBox(
		p.questionLabel,
		widget.NewSeparator(),
		p.answerLabel,
	)
	toolbar := container.NewHBox(p.prevBtn, p.flipBtn, p.nextBtn, widget.NewSeparator(), p.positionLabel)

	p.container = container.NewBorder(
		container.NewVBox(toolbar, p.countersLabel),
		container.NewVBox(p.audioControls, widget.NewSeparator(), widget.NewLabel("Jump to card:"), container.NewHScroll(p.cardGrid)),
		nil, nil,
		container.NewVScroll(card),
	)
	p.setNavigationEnabled(false)

	p.ExtendBaseWidget(p)
	return p
}

// CreateRenderer implements fyne.Widget
func (p *ReviewPanel) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(p.container)
}

// SetToolTips is called once the window's tooltip layer exists
func (p *ReviewPanel) SetToolTips() {
	p.prevBtn.SetToolTip("Previous card (←)")
	p.nextBtn.SetToolTip("Next card (→)")
	p.flipBtn.SetToolTip("Flip card (space)")
	p.audioControls.SetToolTips()
}

// SetSession switches the panel to session. Must be called on the UI goroutine.
func (p *ReviewPanel) SetSession(session *review.Session) {
	p.mu.Lock()
	p.session = session
	p.mu.Unlock()

	p.audioControls.Bind(session.Audio())
	p.buildCardGrid(session.Len())

	if session.Empty() {
		p.setNavigationEnabled(false)
		p.positionLabel.SetText("")
		p.countersLabel.SetText("")
		p.questionLabel.SetText("No flashcards were generated. Try a longer text.")
		p.answerLabel.SetText("")
		return
	}

	c := session.Counters()
	p.countersLabel.SetText(fmt.Sprintf("%d cards from %d words, answers are %d words (%d%%)",
		session.Len(), c.TextWordCount, c.FlashcardWordCount, c.Compression()))

	session.OnChange(func(view review.View) {
		fyne.Do(func() {
			if p.current() == session {
				p.show(view)
			}
		})
	})
	p.setNavigationEnabled(true)
	if view, err := session.Current(); err == nil {
		p.show(view)
	}
}

// Session returns the session on display, or nil
func (p *ReviewPanel) Session() *review.Session {
	return p.current()
}

func (p *ReviewPanel) current() *review.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

// buildCardGrid lays out one jump button per card. The count is taken before
// any button exists, so every callback sees the final length.
func (p *ReviewPanel) buildCardGrid(n int) {
	p.cardGrid.RemoveAll()
	for i := 0; i < n; i++ {
		index := i
		p.cardGrid.Add(widget.NewButton(strconv.Itoa(i+1), func() {
			if s := p.current(); s != nil {
				s.JumpTo(index)
			}
		}))
	}
	p.cardGrid.Refresh()
}

func (p *ReviewPanel) show(view review.View) {
	p.positionLabel.SetText(fmt.Sprintf("Card %d of %d", view.Position+1, view.Total))
	p.questionLabel.SetText(view.Question)
	if view.Revealed {
		p.answerLabel.SetText(view.Answer)
		p.flipBtn.SetText("Hide answer")
		p.flipBtn.SetIcon(theme.VisibilityOffIcon())
	} else {
		p.answerLabel.SetText("")
		p.flipBtn.SetText("Show answer")
		p.flipBtn.SetIcon(theme.VisibilityIcon())
	}

	if view.Position == 0 {
		p.prevBtn.Disable()
	} else {
		p.prevBtn.Enable()
	}
	if view.Position >= view.Total-1 {
		p.nextBtn.Disable()
	} else {
		p.nextBtn.Enable()
	}
}

func (p *ReviewPanel) setNavigationEnabled(enabled bool) {
	for _, b := range []*ttwidget.Button{p.prevBtn, p.nextBtn, p.flipBtn} {
		if enabled {
			b.Enable()
		} else {
			b.Disable()
		}
	}
}

func (p *ReviewPanel) onPrevious() {
	if s := p.current(); s != nil {
		s.Previous()
	}
}

func (p *ReviewPanel) onNext() {
	if s := p.current(); s != nil {
		s.Next()
	}
}

func (p *ReviewPanel) onFlip() {
	if s := p.current(); s != nil {
		s.Flip()
	}
}
