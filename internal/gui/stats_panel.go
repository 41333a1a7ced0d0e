package gui

import (
	"context"
	"fmt"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	ttwidget "github.com/dweymouth/fyne-tooltip/widget"

	"codeberg.org/snonux/studycards/internal/deck"
	"codeberg.org/snonux/studycards/internal/notify"
	"codeberg.org/snonux/studycards/internal/remote"
)

type statisticsResetter interface {
	ResetStatistics(ctx context.Context) error
}

// StatsPanel shows the collaborator's usage counters
type StatsPanel struct {
	widget.BaseWidget

	container       *fyne.Container
	flashcardsLabel *widget.Label
	textsLabel      *widget.Label
	imagesLabel     *widget.Label
	refreshBtn      *ttwidget.Button
	resetBtn        *ttwidget.Button

	client   remote.Client
	notifier notify.Pusher
	window   fyne.Window
	logger   *slog.Logger
	ctx      context.Context
}

// NewStatsPanel creates the panel; call Refresh to load the counters
func NewStatsPanel(ctx context.Context, client remote.Client, notifier notify.Pusher, window fyne.Window, logger *slog.Logger) *StatsPanel {
	p := &StatsPanel{
		client:   client,
		notifier: notifier,
		window:   window,
		logger:   logger,
		ctx:      ctx,
	}

	p.flashcardsLabel = widget.NewLabel("-")
	p.textsLabel = widget.NewLabel("-")
	p.imagesLabel = widget.NewLabel("-")

	p.refreshBtn = ttwidget.NewButtonWithIcon("Refresh", theme.ViewRefreshIcon(), p.Refresh)
	p.resetBtn = ttwidget.NewButtonWithIcon("Reset", theme.DeleteIcon(), p.onReset)
	p.resetBtn.Importance = widget.DangerImportance
	if _, ok := client.(statisticsResetter); !ok {
		p.resetBtn.Disable()
	}

	form := widget.NewForm(
		widget.NewFormItem("Flashcards generated", p.flashcardsLabel),
		widget.NewFormItem("Texts processed", p.textsLabel),
		widget.NewFormItem("Images processed", p.imagesLabel),
	)
	p.container = container.NewVBox(
		form,
		container.NewHBox(p.refreshBtn, p.resetBtn),
	)

	p.ExtendBaseWidget(p)
	return p
}

// CreateRenderer implements fyne.Widget
func (p *StatsPanel) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(p.container)
}

// SetToolTips is called once the window's tooltip layer exists
func (p *StatsPanel) SetToolTips() {
	p.refreshBtn.SetToolTip("Reload the counters")
	p.resetBtn.SetToolTip("Set all counters back to zero")
}

// Refresh fetches the counters in the background
func (p *StatsPanel) Refresh() {
	go func() {
		stats, err := p.client.FetchStatistics(p.ctx)
		if err != nil {
			p.logger.Warn("failed to fetch statistics", "error", err)
			fyne.Do(func() { p.setUnavailable() })
			return
		}
		fyne.Do(func() { p.show(stats) })
	}()
}

func (p *StatsPanel) show(stats deck.Statistics) {
	p.flashcardsLabel.SetText(fmt.Sprint(stats.TotalFlashcardsGenerated))
	p.textsLabel.SetText(fmt.Sprint(stats.TotalTextsProcessed))
	p.imagesLabel.SetText(fmt.Sprint(stats.TotalImagesProcessed))
}

func (p *StatsPanel) setUnavailable() {
	for _, l := range []*widget.Label{p.flashcardsLabel, p.textsLabel, p.imagesLabel} {
		l.SetText("unavailable")
	}
}

func (p *StatsPanel) onReset() {
	resetter, ok := p.client.(statisticsResetter)
	if !ok {
		return
	}
	dialog.ShowConfirm("Reset statistics", "Set all usage counters back to zero?", func(confirmed bool) {
		if !confirmed {
			return
		}
		go func() {
			if err := resetter.ResetStatistics(p.ctx); err != nil {
				p.logger.Warn("failed to reset statistics", "error", err)
				p.notifier.Push("Failed to reset statistics", notify.SeverityError)
				return
			}
			p.notifier.Push("Statistics reset successfully", notify.SeveritySuccess)
			p.Refresh()
		}()
	}, p.window)
}
